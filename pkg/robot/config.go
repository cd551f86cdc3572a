package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/quantumrobotics/hexapod/pkg/radio"
)

const DefaultConfigFile = "hexapod.json"

// Servo output drivers.
const (
	ServoFeetech = "feetech"
	ServoLog     = "log"
)

// Config holds the robot configuration
type Config struct {
	Servo       ServoConfig  `json:"servo"`
	Calibration Calibration  `json:"calibration"`
	Radio       radio.Config `json:"radio"`
	Mode        Mode         `json:"mode"`
	Hz          int          `json:"hz"`
	// LegSettle is the pause after each leg is stepped.
	LegSettle time.Duration `json:"leg_settle"`
}

// ServoConfig holds configuration for the servo outputs
type ServoConfig struct {
	Driver   string       `json:"driver"`
	Port     string       `json:"port,omitempty"`
	BaudRate int          `json:"baud_rate,omitempty"`
	Channels ChannelTable `json:"channels"`
}

// DefaultConfig runs without hardware in automatic mode.
func DefaultConfig() *Config {
	return &Config{
		Servo: ServoConfig{
			Driver:   ServoLog,
			Channels: DefaultChannelTable(),
		},
		Calibration: DefaultCalibration(),
		Radio:       radio.DefaultConfig(),
		Mode:        Automatic,
		Hz:          50,
		LegSettle:   DefaultLegSettle,
	}
}

// Validate checks the parts of the config the control loop depends on.
func (c *Config) Validate() error {
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	switch c.Servo.Driver {
	case ServoLog:
	case ServoFeetech:
		if c.Servo.Port == "" {
			return fmt.Errorf("servo driver %q needs a port", c.Servo.Driver)
		}
	default:
		return fmt.Errorf("unknown servo driver %q", c.Servo.Driver)
	}
	if c.Hz <= 0 {
		return fmt.Errorf("hz must be positive, got %d", c.Hz)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults.
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

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if a config file exists at path
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
