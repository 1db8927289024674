// internal/registry/registry.go
package registry

import (
	"fmt"
	"sort"
)

// Kind is the decoded type of a register-backed value.
type Kind uint8

const (
	Float Kind = iota
	Bool
	Int
)

// ParseKind maps a config type string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "float":
		return Float, nil
	case "bool":
		return Bool, nil
	case "int":
		return Int, nil
	}
	return 0, fmt.Errorf("registry: unknown kind %q", s)
}

// Descriptor maps one symbolic name to one holding register.
// Descriptors are immutable after the table is built.
type Descriptor struct {
	Name     string
	Register uint16
	Kind     Kind
	Scale    float64
}

// Table is the fixed name->register map for one controller: process
// variables in one block, setpoints in another. There is no runtime
// discovery; changing the controller layout means changing this table.
type Table struct {
	variables map[string]Descriptor
	setpoints map[string]Descriptor
}

// New builds a table and checks the descriptor invariants: non-empty
// unique names, unique registers per block, positive scale for scaled
// kinds. An invalid descriptor set is a programmer error.
func New(variables, setpoints []Descriptor) (*Table, error) {
	t := &Table{
		variables: make(map[string]Descriptor, len(variables)),
		setpoints: make(map[string]Descriptor, len(setpoints)),
	}
	if err := fill(t.variables, variables, "variable"); err != nil {
		return nil, err
	}
	if err := fill(t.setpoints, setpoints, "setpoint"); err != nil {
		return nil, err
	}
	return t, nil
}

func fill(dst map[string]Descriptor, descs []Descriptor, what string) error {
	regs := make(map[uint16]string, len(descs))
	for _, d := range descs {
		if d.Name == "" {
			return fmt.Errorf("registry: %s with empty name (register %d)", what, d.Register)
		}
		if _, dup := dst[d.Name]; dup {
			return fmt.Errorf("registry: duplicate %s name %q", what, d.Name)
		}
		if prev, dup := regs[d.Register]; dup {
			return fmt.Errorf("registry: %s %q and %q share register %d", what, prev, d.Name, d.Register)
		}
		if d.Kind != Bool && d.Scale <= 0 {
			return fmt.Errorf("registry: %s %q: scale must be > 0", what, d.Name)
		}
		dst[d.Name] = d
		regs[d.Register] = d.Name
	}
	return nil
}

// Variable resolves a process-variable name.
func (t *Table) Variable(name string) (Descriptor, bool) {
	d, ok := t.variables[name]
	return d, ok
}

// Setpoint resolves a setpoint name.
func (t *Table) Setpoint(name string) (Descriptor, bool) {
	d, ok := t.setpoints[name]
	return d, ok
}

// Variables returns all process-variable descriptors ordered by register.
func (t *Table) Variables() []Descriptor {
	return sorted(t.variables)
}

// Setpoints returns all setpoint descriptors ordered by register.
func (t *Table) Setpoints() []Descriptor {
	return sorted(t.setpoints)
}

func sorted(m map[string]Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Register < out[j].Register })
	return out
}

// Default returns the baked-in register map for the greenhouse
// controller. Process variables live at the base of the holding
// register space, setpoints in an offset block starting at 100.
func Default() *Table {
	variables := []Descriptor{
		{Name: "soil_humidity", Register: 0, Kind: Float, Scale: 1},
		{Name: "air_humidity", Register: 1, Kind: Float, Scale: 1},
		{Name: "soil_temp", Register: 2, Kind: Float, Scale: 1},
		{Name: "air_temp", Register: 3, Kind: Float, Scale: 1},
		{Name: "cooling_status", Register: 4, Kind: Bool},
		{Name: "heating_status", Register: 5, Kind: Bool},
		{Name: "lamp_status", Register: 6, Kind: Bool},
	}
	setpoints := []Descriptor{
		{Name: "soil_humidity_sp", Register: 100, Kind: Float, Scale: 1},
		{Name: "air_humidity_sp", Register: 101, Kind: Float, Scale: 1},
		{Name: "soil_temp_sp", Register: 102, Kind: Float, Scale: 1},
	}
	t, err := New(variables, setpoints)
	if err != nil {
		panic(err) // compile-time data; cannot fail
	}
	return t
}
