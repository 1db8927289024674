// internal/registry/codec_test.go
package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFloatRoundTrip(t *testing.T) {
	d := Descriptor{Name: "soil_humidity", Register: 0, Kind: Float, Scale: 1}

	// Every float representable with 2 decimal places in 0-655.35 must
	// survive encode/decode.
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Uint16().Draw(t, "cents")
		want := float64(cents) / 100.0

		raw := Encode(FloatValue(want), d)
		got := Decode(raw, d)

		if got.Kind != Float {
			t.Fatalf("kind = %v, want Float", got.Kind)
		}
		if diff := got.Float - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("round trip %v -> %d -> %v", want, raw, got.Float)
		}
	})
}

func TestFloatDecodeExamples(t *testing.T) {
	d := Descriptor{Name: "v", Register: 0, Kind: Float, Scale: 1}

	assert.InDelta(t, 60.0, Decode(6000, d).Float, 1e-9)
	assert.InDelta(t, 70.0, Decode(7000, d).Float, 1e-9)
	assert.InDelta(t, 25.0, Decode(2500, d).Float, 1e-9)
	assert.InDelta(t, 22.0, Decode(2200, d).Float, 1e-9)

	scaled := Descriptor{Name: "v", Register: 0, Kind: Float, Scale: 0.5}
	assert.InDelta(t, 30.0, Decode(6000, scaled).Float, 1e-9)
}

func TestBoolRoundTrip(t *testing.T) {
	d := Descriptor{Name: "cooling_status", Register: 4, Kind: Bool}

	require.Equal(t, uint16(1), Encode(BoolValue(true), d))
	require.Equal(t, uint16(0), Encode(BoolValue(false), d))
	assert.True(t, Decode(Encode(BoolValue(true), d), d).Bool)
	assert.False(t, Decode(Encode(BoolValue(false), d), d).Bool)

	// Any non-zero raw reads as true.
	assert.True(t, Decode(7, d).Bool)
}

func TestIntDecode(t *testing.T) {
	d := Descriptor{Name: "counter", Register: 9, Kind: Int, Scale: 10}

	v := Decode(42, d)
	require.Equal(t, Int, v.Kind)
	assert.Equal(t, int64(420), v.Int)

	assert.Equal(t, uint16(42), Encode(v, d))
}

func TestValueJSON(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{FloatValue(60.5), "60.5"},
		{BoolValue(true), "true"},
		{BoolValue(false), "false"},
		{IntValue(42), "42"},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.v)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(raw))
	}
}

func TestAsFloat(t *testing.T) {
	assert.Equal(t, 1.0, BoolValue(true).AsFloat())
	assert.Equal(t, 0.0, BoolValue(false).AsFloat())
	assert.Equal(t, 42.0, IntValue(42).AsFloat())
	assert.Equal(t, 60.5, FloatValue(60.5).AsFloat())
}
