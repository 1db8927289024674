// internal/web/requests.go
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tamzrod/greenhouse-bridge/internal/command"
)

// SetpointRequest is the typed body of POST /api/setpoint. Value is the
// raw protocol-scale integer, not the display unit: float setpoints are
// pre-multiplied by 100 by the caller.
type SetpointRequest struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Bind validates the request after decoding.
func (req *SetpointRequest) Bind(*http.Request) error {
	if req.Name == "" {
		return errors.New("name required")
	}
	if req.Value < 0 || req.Value > 0xFFFF {
		return fmt.Errorf("value %d outside register range 0-65535", req.Value)
	}
	return nil
}

// CommandRequest is the typed body of POST /api/command. Action is
// either the literal string "toggle" or a JSON boolean; anything else
// is rejected at the boundary.
type CommandRequest struct {
	Name   string          `json:"name"`
	Action json.RawMessage `json:"action"`

	action command.Action
}

// Bind validates the request and resolves the action sum type.
func (req *CommandRequest) Bind(*http.Request) error {
	if req.Name == "" {
		return errors.New("name required")
	}
	var s string
	if err := json.Unmarshal(req.Action, &s); err == nil {
		if s != "toggle" {
			return fmt.Errorf("unrecognized action %q", s)
		}
		req.action = command.Action{Toggle: true}
		return nil
	}
	var b bool
	if err := json.Unmarshal(req.Action, &b); err == nil {
		req.action = command.Action{On: b}
		return nil
	}
	return errors.New(`action must be "toggle" or a boolean`)
}
