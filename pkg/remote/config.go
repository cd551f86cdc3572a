package remote

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quantumrobotics/hexapod/pkg/radio"
)

const DefaultConfigFile = "rfcontrol.json"

// Config holds the controller configuration
type Config struct {
	Radio radio.Config `json:"radio"`
	Mode  radio.Mode   `json:"mode"`
	Hz    int          `json:"hz"`
	// UseStickY feeds each stick's own Y reading into the angle instead of
	// repeating X.
	UseStickY bool `json:"use_stick_y"`
}

// DefaultConfig matches the controller firmware.
func DefaultConfig() *Config {
	return &Config{
		Radio: radio.DefaultConfig(),
		Mode:  radio.Rotation,
		Hz:    20,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Hz <= 0 {
		return fmt.Errorf("hz must be positive, got %d", c.Hz)
	}
	if c.Radio.Port == "" {
		return fmt.Errorf("no radio port configured")
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Radio = cfg.Radio.WithDefaults()
	return cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
