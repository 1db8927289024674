// internal/plc/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"time"

	mb "github.com/goburrow/modbus"

	"github.com/tamzrod/greenhouse-bridge/internal/plc"
)

// Client implements plc.Conn over Modbus TCP using goburrow/modbus.
// One physical connection; not safe for concurrent use.
type Client struct {
	handler   *mb.TCPClientHandler
	client    mb.Client
	connected bool
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// New builds an unconnected client; callers dial via Connect.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}
	h := mb.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	return &Client{handler: h, client: mb.NewClient(h)}, nil
}

// Connect opens the TCP transport. A no-op while already connected.
func (c *Client) Connect() error {
	if c.connected {
		return nil
	}
	if err := c.handler.Connect(); err != nil {
		return &plc.Error{Kind: plc.KindTransport, Op: "connect", Err: err}
	}
	c.connected = true
	return nil
}

// ReadBlock reads count contiguous holding registers starting at start.
func (c *Client) ReadBlock(start, count uint16) ([]uint16, error) {
	raw, err := c.client.ReadHoldingRegisters(start, count)
	if err != nil {
		return nil, c.classify("read holding registers", err)
	}
	regs := make([]uint16, len(raw)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(raw[2*i:])
	}
	return regs, nil
}

// WriteRegister writes a single holding register.
func (c *Client) WriteRegister(addr, value uint16) error {
	if _, err := c.client.WriteSingleRegister(addr, value); err != nil {
		return c.classify("write register", err)
	}
	return nil
}

// Close releases the transport. Safe to call when already closed.
func (c *Client) Close() error {
	c.connected = false
	if c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// classify maps a goburrow error onto the plc taxonomy. Controller
// exception responses stay protocol-level; anything else came from the
// socket, so the connection is dropped and the next Connect redials.
func (c *Client) classify(op string, err error) error {
	var me *mb.ModbusError
	if errors.As(err, &me) {
		return &plc.Error{Kind: plc.KindProtocol, Op: op, Err: err}
	}
	c.connected = false
	_ = c.handler.Close()
	return &plc.Error{Kind: plc.KindTransport, Op: op, Err: err}
}
