package radio

import (
	"encoding"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/quantumrobotics/hexapod/pkg/status"
	"github.com/quantumrobotics/hexapod/pkg/timer"
)

var logger = log.WithFields(log.Fields{
	"pkg": "radio",
})

// Transmitter is the writing side of the link.
type Transmitter struct {
	dev   Device
	cfg   Config
	light status.Indicator
	ready bool
}

// NewTransmitter wraps dev. light may be nil.
func NewTransmitter(dev Device, cfg Config, light status.Indicator) *Transmitter {
	if light == nil {
		light = &status.LogIndicator{Logger: logger}
	}
	return &Transmitter{dev: dev, cfg: cfg.WithDefaults(), light: light}
}

// Initialize configures the radio and opens the single writing pipe.
func (t *Transmitter) Initialize() error {
	if err := configure(t.dev, t.cfg); err != nil {
		return err
	}
	if err := t.dev.OpenWritingPipe(t.cfg.Address); err != nil {
		return fmt.Errorf("open writing pipe %q: %w", t.cfg.Address, err)
	}
	t.ready = true
	logger.WithFields(log.Fields{
		"channel": t.cfg.Channel,
		"address": string(t.cfg.Address),
		"rate":    t.cfg.DataRate.String(),
	}).Info("transmitter ready")
	return nil
}

// Send writes payload, retrying until the peer acknowledges it, MaxAttempts
// writes have been made, or deadline expires. deadline is armed by the
// caller before the call; a nil or unarmed deadline leaves the attempt count
// as the only bound. At least one write is always made.
func (t *Transmitter) Send(payload encoding.BinaryMarshaler, deadline *timer.Timer) error {
	if !t.ready {
		return ErrNotInitialized
	}
	frame, err := payload.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode package: %w", err)
	}
	if len(frame) > MaxPayload {
		return fmt.Errorf("package is %d bytes, radio carries at most %d", len(frame), MaxPayload)
	}

	t.light.Set(status.Waiting)
	attempts := 0
	for attempts < t.cfg.MaxAttempts {
		if attempts > 0 && deadline != nil && deadline.Armed() && deadline.Expired() {
			break
		}
		attempts++
		if t.dev.Write(frame) {
			t.light.Set(status.OK)
			if attempts > 1 {
				logger.WithField("attempts", attempts).Debug("send succeeded after retry")
			}
			return nil
		}
		t.light.Set(status.Error)
	}

	logger.WithField("attempts", attempts).Warn("send gave up")
	return fmt.Errorf("%w after %d attempts", ErrSendFailed, attempts)
}
