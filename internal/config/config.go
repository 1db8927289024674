// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Modbus  ModbusConfig  `yaml:"modbus"`
	Poll    PollConfig    `yaml:"poll"`
	HTTP    HTTPConfig    `yaml:"http"`
	History HistoryConfig `yaml:"history"`

	// Variables/Setpoints override the baked-in register map when
	// non-empty.
	Variables []PointConfig `yaml:"variables"`
	Setpoints []PointConfig `yaml:"setpoints"`
}

// ---- CONTROLLER ----

type ModbusConfig struct {
	Host      string `yaml:"host" env:"MODBUS_HOST"`
	Port      int    `yaml:"port" env:"MODBUS_PORT"`
	UnitID    uint8  `yaml:"unit_id" env:"MODBUS_UNIT_ID"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Endpoint renders host:port for dialing.
func (m ModbusConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// ---- POLLING ----

type PollConfig struct {
	IntervalMs       int         `yaml:"interval_ms"`
	CooldownMs       int         `yaml:"cooldown_ms"`
	ConnectAttempts  int         `yaml:"connect_attempts"`
	ConnectBackoffMs int         `yaml:"connect_backoff_ms"`
	VariableBlock    BlockConfig `yaml:"variable_block"`
	SetpointBlock    BlockConfig `yaml:"setpoint_block"`
}

// BlockConfig is one contiguous read window.
type BlockConfig struct {
	Address  uint16 `yaml:"address"`
	Quantity uint16 `yaml:"quantity"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Addr    string `yaml:"addr" env:"HTTP_ADDR"`
	HTMLDir string `yaml:"html_dir" env:"HTMLDIR"`
}

// ---- HISTORY ----

type HistoryConfig struct {
	Path     string `yaml:"path" env:"DB_PATH"`
	Disabled bool   `yaml:"disabled"`
}

// ---- REGISTER MAP OVERRIDE ----

type PointConfig struct {
	Name     string  `yaml:"name"`
	Register uint16  `yaml:"register"`
	Type     string  `yaml:"type"` // float | bool | int
	Scale    float64 `yaml:"scale"`
}

// Default returns the configuration the bridge ships with.
func Default() *Config {
	return &Config{
		Modbus: ModbusConfig{
			Host:      "host.docker.internal",
			Port:      502,
			UnitID:    1,
			TimeoutMs: 5000,
		},
		Poll: PollConfig{
			IntervalMs:       1000,
			CooldownMs:       5000,
			ConnectAttempts:  3,
			ConnectBackoffMs: 2000,
			VariableBlock:    BlockConfig{Address: 0, Quantity: 20},
			SetpointBlock:    BlockConfig{Address: 100, Quantity: 10},
		},
		HTTP: HTTPConfig{
			Addr:    "0.0.0.0:8000",
			HTMLDir: "./web/dist",
		},
		History: HistoryConfig{
			Path: "./data.db",
		},
	}
}

// Load builds configuration in three layers: defaults, the optional
// YAML file at path, then environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}
