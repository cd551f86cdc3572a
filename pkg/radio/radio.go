// Package radio drives the point-to-point packet radio that links the
// handheld controller to the robot.
//
// A Device is the raw transceiver (an nRF24-class part reached through a USB
// bridge, or an in-memory Loopback). Transmitter and Receiver are the two
// mutually exclusive roles built on top of it.
package radio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLinkDown is returned when the radio does not come up before the
	// start-up deadline.
	ErrLinkDown = errors.New("radio link down")
	// ErrSendFailed is returned when every send attempt was refused.
	ErrSendFailed = errors.New("radio send failed")
	// ErrShortPackage is returned when a frame does not match a package size.
	ErrShortPackage = errors.New("radio package has wrong size")
	// ErrNotInitialized is returned when a role is used before Initialize.
	ErrNotInitialized = errors.New("radio not initialized")
)

// MaxPayload is the largest frame the transceiver carries.
const MaxPayload = 32

// PALevel is the transmit power level.
type PALevel uint8

const (
	PAMin PALevel = iota
	PALow
	PAHigh
	PAMax
)

// DataRate is the over-the-air bit rate.
type DataRate uint8

const (
	Rate1Mbps DataRate = iota
	Rate2Mbps
	Rate250Kbps
)

func (r DataRate) String() string {
	switch r {
	case Rate1Mbps:
		return "1Mbps"
	case Rate2Mbps:
		return "2Mbps"
	case Rate250Kbps:
		return "250Kbps"
	}
	return fmt.Sprintf("DataRate(%d)", uint8(r))
}

// Address is a pipe address. Only the first AddressWidth bytes are used;
// shorter addresses are zero padded.
type Address string

// AddressWidth is the width of a pipe address on the air.
const AddressWidth = 5

// Bytes returns the zero padded on-air form of a.
func (a Address) Bytes() [AddressWidth]byte {
	var b [AddressWidth]byte
	copy(b[:], a)
	return b
}

// Defaults shared by both boards.
const (
	DefaultChannel  = 115
	DefaultAddress  = Address("0")
	DefaultPALevel  = PAMax
	DefaultDataRate = Rate250Kbps

	DefaultPollWindow  = 50 * time.Millisecond
	DefaultSendTimeout = 500 * time.Millisecond
	DefaultMaxAttempts = 10
	DefaultStartup     = 2 * time.Second
)

// Config holds radio settings. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Port     string   `json:"port,omitempty"`
	BaudRate int      `json:"baud_rate,omitempty"`
	Channel  uint8    `json:"channel"`
	Address  Address  `json:"address"`
	PALevel  PALevel  `json:"pa_level"`
	DataRate DataRate `json:"data_rate"`

	// PollWindow bounds how long the receiver drains pending frames.
	PollWindow time.Duration `json:"poll_window"`
	// SendTimeout is the deadline armed once per send.
	SendTimeout time.Duration `json:"send_timeout"`
	// MaxAttempts bounds the number of writes per send.
	MaxAttempts int `json:"max_attempts"`
	// Startup bounds link establishment.
	Startup time.Duration `json:"startup"`
}

// DefaultConfig returns the settings both firmwares were built with.
func DefaultConfig() Config {
	return Config{
		BaudRate:    115200,
		Channel:     DefaultChannel,
		Address:     DefaultAddress,
		PALevel:     DefaultPALevel,
		DataRate:    DefaultDataRate,
		PollWindow:  DefaultPollWindow,
		SendTimeout: DefaultSendTimeout,
		MaxAttempts: DefaultMaxAttempts,
		Startup:     DefaultStartup,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.BaudRate == 0 {
		c.BaudRate = d.BaudRate
	}
	if c.Channel == 0 {
		c.Channel = d.Channel
	}
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.PollWindow == 0 {
		c.PollWindow = d.PollWindow
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.Startup == 0 {
		c.Startup = d.Startup
	}
	return c
}

// Device is a raw transceiver.
type Device interface {
	// Begin powers the radio up and checks that it answers.
	Begin() error
	SetChannel(ch uint8) error
	SetPALevel(level PALevel) error
	SetDataRate(rate DataRate) error
	OpenWritingPipe(addr Address) error
	OpenReadingPipe(pipe int, addr Address) error
	StartListening() error
	// Write sends one frame and reports whether the peer acknowledged it.
	Write(payload []byte) bool
	// Available reports whether a received frame is waiting.
	Available() bool
	// Read copies the oldest waiting frame into buf.
	Read(buf []byte) (int, error)
}

// configure applies the shared channel, power and rate settings.
func configure(dev Device, cfg Config) error {
	if err := dev.Begin(); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := dev.SetChannel(cfg.Channel); err != nil {
		return fmt.Errorf("set channel %d: %w", cfg.Channel, err)
	}
	if err := dev.SetPALevel(cfg.PALevel); err != nil {
		return fmt.Errorf("set PA level: %w", err)
	}
	if err := dev.SetDataRate(cfg.DataRate); err != nil {
		return fmt.Errorf("set data rate %s: %w", cfg.DataRate, err)
	}
	return nil
}
