// internal/plc/plc.go
package plc

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed controller exchange.
type ErrorKind uint8

const (
	// KindTransport covers socket-level failures: refused, reset,
	// timed out. The connection is presumed dead.
	KindTransport ErrorKind = iota + 1
	// KindProtocol covers explicit controller error responses. The
	// transport may still be alive.
	KindProtocol
)

// Error is a classified protocol-client failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("plc: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err carries a transport-level failure.
func IsTransport(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindTransport
}

// IsProtocol reports whether err carries a controller error response.
func IsProtocol(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindProtocol
}

// Conn is the single-connection contract shared by the acquisition
// loop and the command gateway. Implementations hold exactly one
// physical connection and are NOT safe for concurrent use; callers
// serialize every read and write through one exclusion primitive.
type Conn interface {
	// Connect opens the transport. Calling it while already connected
	// succeeds without reconnecting.
	Connect() error
	// ReadBlock reads count contiguous holding registers in one
	// round-trip.
	ReadBlock(start, count uint16) ([]uint16, error)
	// WriteRegister writes one holding register in one round-trip.
	WriteRegister(addr, value uint16) error
	// Close releases the transport. Safe to call when already closed.
	Close() error
}
