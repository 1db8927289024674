// internal/state/state.go
package state

import (
	"sync"
	"time"

	"github.com/tamzrod/greenhouse-bridge/internal/registry"
)

// Status is the bridge's view of the controller connection. Transitions
// are driven by the acquisition loop and by command-gateway write
// failures; nothing else touches it.
type Status uint8

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Snapshot is an atomically consistent copy of the store at one
// instant. Callers may retain it freely; the maps are theirs.
type Snapshot struct {
	Status      Status
	Values      map[string]registry.Value
	Setpoints   map[string]registry.Value
	LastUpdated time.Time
	// Revision increments once per committed mutation. A reader that
	// sees revision N sees every field exactly as of mutation N.
	Revision uint64
}

// Connected reports whether the controller link was up at capture time.
func (s Snapshot) Connected() bool { return s.Status == Connected }

// Store is the single source of truth for current values, current
// setpoints and connection status. One logical writer pair (acquisition
// loop, command gateway), many readers. Every mutation is atomic with
// respect to Snapshot: torn reads cannot happen.
type Store struct {
	mu          sync.Mutex
	status      Status
	values      map[string]registry.Value
	setpoints   map[string]registry.Value
	lastUpdated time.Time
	revision    uint64
}

// New returns a store seeded with the neutral default for every
// registered variable and setpoint, status Disconnected. The store
// lives for the process lifetime and is only ever mutated in place.
func New(table *registry.Table) *Store {
	s := &Store{
		values:    make(map[string]registry.Value),
		setpoints: make(map[string]registry.Value),
	}
	for _, d := range table.Variables() {
		s.values[d.Name] = registry.Zero(d)
	}
	for _, d := range table.Setpoints() {
		s.setpoints[d.Name] = registry.Zero(d)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Status:      s.status,
		Values:      make(map[string]registry.Value, len(s.values)),
		Setpoints:   make(map[string]registry.Value, len(s.setpoints)),
		LastUpdated: s.lastUpdated,
		Revision:    s.revision,
	}
	for k, v := range s.values {
		snap.Values[k] = v
	}
	for k, v := range s.setpoints {
		snap.Setpoints[k] = v
	}
	return snap
}

// Status returns the current connection status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Value returns the cached value for one variable name.
func (s *Store) Value(name string) (registry.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// ApplyReading commits one successful variable-block decode together
// with the connection status observed on the same cycle. Values and
// status land in a single mutation.
func (s *Store) ApplyReading(values map[string]registry.Value, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	s.status = status
	s.lastUpdated = time.Now()
	s.revision++
}

// ApplySetpoints commits a setpoint-block decode.
func (s *Store) ApplySetpoints(setpoints map[string]registry.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range setpoints {
		s.setpoints[k] = v
	}
	s.revision++
}

// SetStatus records a connection status transition on its own.
func (s *Store) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.revision++
}

// ApplyCommandResult reflects an acknowledged equipment write into the
// cached variable value.
func (s *Store) ApplyCommandResult(name string, v registry.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = v
	s.revision++
}

// ResetSetpoint clears a cached setpoint back to its neutral default.
// Used after an accepted setpoint write: the controller is the
// authority, so the cache stays empty until the next poll re-reads it.
func (s *Store) ResetSetpoint(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.setpoints[name]
	if !ok {
		return
	}
	s.setpoints[name] = registry.Value{Kind: v.Kind}
	s.revision++
}
