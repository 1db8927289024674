// internal/command/gateway.go
package command

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/greenhouse-bridge/internal/plc"
	"github.com/tamzrod/greenhouse-bridge/internal/registry"
	"github.com/tamzrod/greenhouse-bridge/internal/state"
)

// Caller errors are surfaced verbatim and never retried; ErrWriteFailed
// wraps the underlying protocol failure.
var (
	ErrUnknownSetpoint = errors.New("unknown setpoint")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrWriteFailed     = errors.New("write failed")
)

// Writer is the subset of the protocol client the gateway needs.
type Writer interface {
	WriteRegister(addr, value uint16) error
}

// Recorder receives accepted setpoint changes for archival.
type Recorder interface {
	RecordSetpointChange(name string, v registry.Value, at time.Time)
}

// Action selects toggle-or-set behavior for an equipment command:
// either negate the cached state, or force it to On.
type Action struct {
	Toggle bool
	On     bool
}

// Gateway validates and executes operator-initiated writes. Transport
// access goes through the same bus mutex as the acquisition loop's
// reads, so a write never interleaves with an in-progress read.
type Gateway struct {
	conn  Writer
	bus   *sync.Mutex
	table *registry.Table
	store *state.Store

	// Recorder, when set, archives accepted setpoint changes.
	Recorder Recorder
}

// New creates a gateway sharing the loop's transport exclusion.
func New(conn Writer, bus *sync.Mutex, table *registry.Table, store *state.Store) *Gateway {
	return &Gateway{conn: conn, bus: bus, table: table, store: store}
}

// SetSetpoint writes a raw protocol-scale value to a named setpoint
// register. The caller pre-scales (display units times 100 for floats);
// no re-encoding happens here. On success the cached setpoint is reset
// to its neutral default rather than the written value: the controller
// is the authority, and the next poll cycle reads the accepted value
// back. On failure nothing in the shared state changes except a
// transport-level failure marking the connection Disconnected.
func (g *Gateway) SetSetpoint(name string, raw uint16) error {
	d, ok := g.table.Setpoint(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetpoint, name)
	}

	g.bus.Lock()
	err := g.conn.WriteRegister(d.Register, raw)
	g.bus.Unlock()
	if err != nil {
		if plc.IsTransport(err) {
			g.store.SetStatus(state.Disconnected)
		}
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	g.store.ResetSetpoint(name)
	if g.Recorder != nil {
		g.Recorder.RecordSetpointChange(name, registry.Decode(raw, d), time.Now())
	}
	return nil
}

// ToggleOrSet resolves the requested equipment state (the negation of
// the cached value for a toggle, the literal value otherwise), writes
// it, and on success reflects it optimistically in the shared state.
// It returns the state that was written.
func (g *Gateway) ToggleOrSet(name string, action Action) (bool, error) {
	d, ok := g.table.Variable(name)
	if !ok || d.Kind != registry.Bool {
		return false, fmt.Errorf("%w: %s", ErrInvalidCommand, name)
	}

	next := action.On
	if action.Toggle {
		cur, _ := g.store.Value(name)
		next = !cur.Bool
	}

	g.bus.Lock()
	err := g.conn.WriteRegister(d.Register, registry.Encode(registry.BoolValue(next), d))
	g.bus.Unlock()
	if err != nil {
		if plc.IsTransport(err) {
			g.store.SetStatus(state.Disconnected)
		}
		return false, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	g.store.ApplyCommandResult(name, registry.BoolValue(next))
	return next, nil
}
