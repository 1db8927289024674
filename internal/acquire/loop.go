// internal/acquire/loop.go
package acquire

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tamzrod/greenhouse-bridge/internal/plc"
	"github.com/tamzrod/greenhouse-bridge/internal/registry"
	"github.com/tamzrod/greenhouse-bridge/internal/state"
)

// Conn is the subset of the protocol client the loop drives.
type Conn interface {
	Connect() error
	ReadBlock(start, count uint16) ([]uint16, error)
}

// Recorder receives successful read cycles for archival. Deliveries are
// best-effort; implementations must not block the loop.
type Recorder interface {
	RecordReading(values map[string]registry.Value, at time.Time)
}

// SleepFunc waits for d or until ctx is done; it reports whether the
// full wait elapsed. Tests inject a fake to run without real time.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Block is one contiguous holding-register read window.
type Block struct {
	Start uint16
	Count uint16
}

// Config is the loop's immutable runtime configuration. Read cadence
// and reconnect cooldown are independent knobs.
type Config struct {
	VariableBlock   Block
	SetpointBlock   Block
	Interval        time.Duration // wait between cycles, every outcome
	Cooldown        time.Duration // extra wait after reconnect exhaustion
	ConnectAttempts int           // bounded attempts per reconnect sequence
	ConnectBackoff  time.Duration // wait between failed attempts
}

// Deps are the collaborators the loop is wired to at startup.
type Deps struct {
	// Bus serializes transport access with the command gateway. A write
	// must never interleave with an in-progress read.
	Bus      *sync.Mutex
	Table    *registry.Table
	Store    *state.Store
	Recorder Recorder  // optional
	Sleep    SleepFunc // optional; defaults to real time
}

// Loop is the acquisition loop: it keeps the connection alive, performs
// one read cycle per tick, decodes into the shared state, and recovers
// from controller failures. It has no terminal state short of process
// shutdown.
type Loop struct {
	cfg   Config
	conn  Conn
	bus   *sync.Mutex
	table *registry.Table
	store *state.Store
	rec   Recorder
	sleep SleepFunc
}

// New creates a loop with validated config.
func New(cfg Config, conn Conn, deps Deps) (*Loop, error) {
	if conn == nil {
		return nil, errors.New("acquire: conn required")
	}
	if deps.Bus == nil || deps.Table == nil || deps.Store == nil {
		return nil, errors.New("acquire: bus, table and store required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("acquire: interval must be > 0")
	}
	if cfg.Cooldown <= 0 {
		return nil, errors.New("acquire: cooldown must be > 0")
	}
	if cfg.ConnectAttempts <= 0 {
		return nil, errors.New("acquire: at least one connect attempt required")
	}
	if cfg.VariableBlock.Count == 0 {
		return nil, errors.New("acquire: variable block must not be empty")
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Loop{
		cfg:   cfg,
		conn:  conn,
		bus:   deps.Bus,
		table: deps.Table,
		store: deps.Store,
		rec:   deps.Recorder,
		sleep: sleep,
	}, nil
}

// Run drives the poll/reconnect state machine until ctx is cancelled.
// Controller-side failures never escape; the loop always comes back for
// another cycle.
func (l *Loop) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if l.store.Status() != state.Connected {
			if !l.reconnect(ctx) {
				if ctx.Err() != nil {
					return
				}
				// All attempts failed. Cool down so a dead
				// controller is not hammered, then try the whole
				// sequence again.
				if !l.sleep(ctx, l.cfg.Cooldown) {
					return
				}
			}
		} else {
			l.PollOnce()
		}
		if !l.sleep(ctx, l.cfg.Interval) {
			return
		}
	}
}

// reconnect runs one bounded connect sequence. It reports whether the
// connection came up.
func (l *Loop) reconnect(ctx context.Context) bool {
	l.store.SetStatus(state.Connecting)
	for attempt := 1; attempt <= l.cfg.ConnectAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		l.bus.Lock()
		err := l.conn.Connect()
		l.bus.Unlock()
		if err == nil {
			log.Printf("acquire: connected (attempt %d/%d)", attempt, l.cfg.ConnectAttempts)
			l.store.SetStatus(state.Connected)
			return true
		}
		log.Printf("acquire: connect attempt %d/%d failed: %v", attempt, l.cfg.ConnectAttempts, err)
		if !l.sleep(ctx, l.cfg.ConnectBackoff) {
			return false
		}
	}
	log.Printf("acquire: giving up after %d attempts", l.cfg.ConnectAttempts)
	l.store.SetStatus(state.Disconnected)
	return false
}

// PollOnce performs exactly one read cycle: the variable block, then
// the setpoint block. A failed variable read marks the connection
// Disconnected and skips the setpoint read for this tick.
func (l *Loop) PollOnce() {
	l.bus.Lock()
	vars, err := l.conn.ReadBlock(l.cfg.VariableBlock.Start, l.cfg.VariableBlock.Count)
	if err != nil {
		l.bus.Unlock()
		// Conservative: a failed variable read is a disconnect signal
		// even when the controller merely returned an exception.
		log.Printf("acquire: variable block read failed: %v", err)
		l.store.SetStatus(state.Disconnected)
		return
	}
	setpoints, spErr := l.conn.ReadBlock(l.cfg.SetpointBlock.Start, l.cfg.SetpointBlock.Count)
	l.bus.Unlock()

	values := decodeWindow(l.table.Variables(), vars, l.cfg.VariableBlock.Start)
	l.store.ApplyReading(values, state.Connected)
	if l.rec != nil {
		l.rec.RecordReading(values, time.Now())
	}

	if spErr != nil {
		log.Printf("acquire: setpoint block read failed: %v", spErr)
		if plc.IsTransport(spErr) {
			l.store.SetStatus(state.Disconnected)
		}
		return
	}
	l.store.ApplySetpoints(decodeWindow(l.table.Setpoints(), setpoints, l.cfg.SetpointBlock.Start))
}

// decodeWindow decodes every descriptor whose register falls inside the
// returned window. Short windows silently skip out-of-range descriptors
// instead of failing the cycle.
func decodeWindow(descs []registry.Descriptor, regs []uint16, start uint16) map[string]registry.Value {
	out := make(map[string]registry.Value, len(descs))
	for _, d := range descs {
		if d.Register < start {
			continue
		}
		idx := int(d.Register - start)
		if idx >= len(regs) {
			continue
		}
		out[d.Name] = registry.Decode(regs[idx], d)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
