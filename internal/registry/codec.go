// internal/registry/codec.go
package registry

import (
	"encoding/json"
	"math"
)

// Value is one decoded process value tagged with its kind. The zero
// value of a kind (0, false) is the neutral default a register holds
// before the first successful read.
type Value struct {
	Kind  Kind
	Float float64
	Bool  bool
	Int   int64
}

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Kind: Float, Float: f} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: Bool, Bool: b} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{Kind: Int, Int: i} }

// Zero returns the neutral default for a descriptor's kind.
func Zero(d Descriptor) Value { return Value{Kind: d.Kind} }

// AsFloat flattens the value for archival.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case Bool:
		if v.Bool {
			return 1
		}
		return 0
	case Int:
		return float64(v.Int)
	}
	return v.Float
}

// MarshalJSON emits the bare typed value, not the tagged struct, so
// payload maps read {"soil_temp": 25.0, "cooling_status": true}.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Bool:
		return json.Marshal(v.Bool)
	case Int:
		return json.Marshal(v.Int)
	}
	return json.Marshal(v.Float)
}

// Decode converts one raw 16-bit register into its typed form.
// Floats use the controller's fixed two-decimal-place convention
// (raw/100, then scale); bools are non-zero tests; ints scale and
// truncate. No failure modes: an invalid descriptor is a programmer
// error caught at table build time.
func Decode(raw uint16, d Descriptor) Value {
	switch d.Kind {
	case Bool:
		return Value{Kind: Bool, Bool: raw != 0}
	case Int:
		return Value{Kind: Int, Int: int64(float64(raw) * d.Scale)}
	}
	return Value{Kind: Float, Float: float64(raw) / 100.0 * d.Scale}
}

// Encode is the inverse of Decode. Float values must already fit the
// representable range (0 to 655.35 scaled units); out-of-range input is
// a caller error and is not clamped here.
func Encode(v Value, d Descriptor) uint16 {
	switch d.Kind {
	case Bool:
		if v.Bool {
			return 1
		}
		return 0
	case Int:
		return uint16(float64(v.Int) / d.Scale)
	}
	// Round to the nearest whole register count: 2-decimal inputs land
	// on .999... under binary floats and plain truncation would lose a
	// full hundredth.
	return uint16(math.Round(v.Float / d.Scale * 100.0))
}
