// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness. It performs declarative
// validation only and MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.Modbus.Host == "" {
		return fmt.Errorf("modbus: host required")
	}
	if cfg.Modbus.Port <= 0 || cfg.Modbus.Port > 65535 {
		return fmt.Errorf("modbus: port %d out of range", cfg.Modbus.Port)
	}
	if cfg.Modbus.TimeoutMs <= 0 {
		return fmt.Errorf("modbus: timeout_ms must be > 0")
	}

	p := cfg.Poll
	if p.IntervalMs <= 0 {
		return fmt.Errorf("poll: interval_ms must be > 0")
	}
	if p.CooldownMs <= 0 {
		return fmt.Errorf("poll: cooldown_ms must be > 0")
	}
	if p.ConnectAttempts <= 0 {
		return fmt.Errorf("poll: connect_attempts must be > 0")
	}
	if p.ConnectBackoffMs <= 0 {
		return fmt.Errorf("poll: connect_backoff_ms must be > 0")
	}
	if p.VariableBlock.Quantity == 0 {
		return fmt.Errorf("poll: variable_block quantity must be > 0")
	}
	if p.SetpointBlock.Quantity == 0 {
		return fmt.Errorf("poll: setpoint_block quantity must be > 0")
	}

	// Only one of the override lists being set leaves the other half of
	// the register map undefined.
	if (len(cfg.Variables) == 0) != (len(cfg.Setpoints) == 0) {
		return fmt.Errorf("variables and setpoints must be overridden together")
	}

	if err := validatePoints(cfg.Variables, p.VariableBlock, "variables"); err != nil {
		return err
	}
	return validatePoints(cfg.Setpoints, p.SetpointBlock, "setpoints")
}

// validatePoints checks that every configured point decodes to a known
// kind and that its register falls inside the block's read window.
// Register uniqueness is re-checked when the registry table is built.
func validatePoints(points []PointConfig, block BlockConfig, what string) error {
	for _, pt := range points {
		if pt.Name == "" {
			return fmt.Errorf("%s: point with empty name (register %d)", what, pt.Register)
		}
		switch pt.Type {
		case "float", "bool", "int":
		default:
			return fmt.Errorf("%s: point %q has unknown type %q", what, pt.Name, pt.Type)
		}
		if pt.Register < block.Address || pt.Register >= block.Address+block.Quantity {
			return fmt.Errorf(
				"%s: point %q register %d outside read window %d-%d",
				what, pt.Name, pt.Register,
				block.Address, block.Address+block.Quantity-1,
			)
		}
	}
	return nil
}
