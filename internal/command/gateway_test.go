// internal/command/gateway_test.go
package command

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/greenhouse-bridge/internal/plc"
	"github.com/tamzrod/greenhouse-bridge/internal/registry"
	"github.com/tamzrod/greenhouse-bridge/internal/state"
)

type write struct {
	addr  uint16
	value uint16
}

type fakeWriter struct {
	err    error
	writes []write
}

func (f *fakeWriter) WriteRegister(addr, value uint16) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, write{addr, value})
	return nil
}

func newTestGateway(w Writer) (*Gateway, *state.Store) {
	table := registry.Default()
	store := state.New(table)
	var bus sync.Mutex
	return New(w, &bus, table, store), store
}

func TestSetSetpoint_UnknownName(t *testing.T) {
	w := &fakeWriter{}
	g, _ := newTestGateway(w)

	err := g.SetSetpoint("not_a_setpoint", 100)
	require.ErrorIs(t, err, ErrUnknownSetpoint)
	assert.Empty(t, w.writes, "no transport write may happen for a rejected name")
}

func TestSetSetpoint_WritesRawValueAndResetsCache(t *testing.T) {
	w := &fakeWriter{}
	g, store := newTestGateway(w)
	store.ApplySetpoints(map[string]registry.Value{
		"soil_humidity_sp": registry.FloatValue(55),
	})

	err := g.SetSetpoint("soil_humidity_sp", 6000)
	require.NoError(t, err)

	require.Len(t, w.writes, 1)
	assert.Equal(t, write{addr: 100, value: 6000}, w.writes[0])

	// The written value is deliberately not cached; the next poll cycle
	// reads the accepted value back from the controller.
	assert.Equal(t, 0.0, store.Snapshot().Setpoints["soil_humidity_sp"].Float)
}

func TestSetSetpoint_TransportFailure(t *testing.T) {
	w := &fakeWriter{err: &plc.Error{Kind: plc.KindTransport, Op: "write", Err: errors.New("broken pipe")}}
	g, store := newTestGateway(w)
	store.SetStatus(state.Connected)
	store.ApplySetpoints(map[string]registry.Value{
		"soil_humidity_sp": registry.FloatValue(55),
	})

	err := g.SetSetpoint("soil_humidity_sp", 6000)
	require.ErrorIs(t, err, ErrWriteFailed)

	snap := store.Snapshot()
	assert.Equal(t, state.Disconnected, snap.Status)
	// No partial mutation: the cached setpoint is untouched.
	assert.Equal(t, 55.0, snap.Setpoints["soil_humidity_sp"].Float)
}

func TestSetSetpoint_ProtocolFailureKeepsStatus(t *testing.T) {
	w := &fakeWriter{err: &plc.Error{Kind: plc.KindProtocol, Op: "write", Err: errors.New("illegal data address")}}
	g, store := newTestGateway(w)
	store.SetStatus(state.Connected)

	err := g.SetSetpoint("soil_humidity_sp", 6000)
	require.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, state.Connected, store.Status())
}

func TestToggleOrSet_ToggleSemantics(t *testing.T) {
	w := &fakeWriter{}
	g, store := newTestGateway(w)

	// Cached cooling_status is false; a toggle must write 1 and reflect
	// true optimistically.
	newState, err := g.ToggleOrSet("cooling_status", Action{Toggle: true})
	require.NoError(t, err)
	assert.True(t, newState)
	require.Len(t, w.writes, 1)
	assert.Equal(t, write{addr: 4, value: 1}, w.writes[0])

	v, _ := store.Value("cooling_status")
	assert.True(t, v.Bool)

	// Toggling again flips back.
	newState, err = g.ToggleOrSet("cooling_status", Action{Toggle: true})
	require.NoError(t, err)
	assert.False(t, newState)
	assert.Equal(t, write{addr: 4, value: 0}, w.writes[1])
}

func TestToggleOrSet_LiteralSet(t *testing.T) {
	w := &fakeWriter{}
	g, store := newTestGateway(w)

	newState, err := g.ToggleOrSet("lamp_status", Action{On: true})
	require.NoError(t, err)
	assert.True(t, newState)
	assert.Equal(t, write{addr: 6, value: 1}, w.writes[0])

	v, _ := store.Value("lamp_status")
	assert.True(t, v.Bool)
}

func TestToggleOrSet_RejectsNonBoolAndUnknown(t *testing.T) {
	w := &fakeWriter{}
	g, _ := newTestGateway(w)

	_, err := g.ToggleOrSet("soil_humidity", Action{Toggle: true})
	require.ErrorIs(t, err, ErrInvalidCommand)

	_, err = g.ToggleOrSet("no_such_thing", Action{Toggle: true})
	require.ErrorIs(t, err, ErrInvalidCommand)

	assert.Empty(t, w.writes)
}

func TestToggleOrSet_WriteFailureLeavesCache(t *testing.T) {
	w := &fakeWriter{err: &plc.Error{Kind: plc.KindTransport, Op: "write", Err: errors.New("reset")}}
	g, store := newTestGateway(w)
	store.SetStatus(state.Connected)

	_, err := g.ToggleOrSet("cooling_status", Action{Toggle: true})
	require.ErrorIs(t, err, ErrWriteFailed)

	v, _ := store.Value("cooling_status")
	assert.False(t, v.Bool)
	assert.Equal(t, state.Disconnected, store.Status())
}

type fakeChangeRecorder struct {
	name  string
	value registry.Value
	at    time.Time
}

func (f *fakeChangeRecorder) RecordSetpointChange(name string, v registry.Value, at time.Time) {
	f.name, f.value, f.at = name, v, at
}

func TestSetSetpoint_RecordsAcceptedChange(t *testing.T) {
	w := &fakeWriter{}
	g, _ := newTestGateway(w)
	rec := &fakeChangeRecorder{}
	g.Recorder = rec

	require.NoError(t, g.SetSetpoint("soil_temp_sp", 2500))

	assert.Equal(t, "soil_temp_sp", rec.name)
	assert.InDelta(t, 25.0, rec.value.Float, 1e-9)
	assert.False(t, rec.at.IsZero())
}
