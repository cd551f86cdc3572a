package radio

import (
	"fmt"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"

	"github.com/quantumrobotics/hexapod/pkg/timer"
)

// readingPipe is the pipe number the receiver listens on.
const readingPipe = 1

// Receiver is the listening side of the link. It keeps the last good
// SetpointPackage.
type Receiver struct {
	dev     Device
	cfg     Config
	window  *timer.Timer
	buf     [MaxPayload]byte
	current SetpointPackage
	dropped int
	ready   bool
}

// NewReceiver wraps dev. clk drives the drain window; nil uses the wall clock.
func NewReceiver(dev Device, cfg Config, clk clock.Clock) *Receiver {
	return &Receiver{
		dev:     dev,
		cfg:     cfg.WithDefaults(),
		window:  timer.New(clk),
		current: NeutralSetpoints(),
	}
}

// Initialize configures the radio, opens the reading pipe and starts
// listening.
func (r *Receiver) Initialize() error {
	if err := configure(r.dev, r.cfg); err != nil {
		return err
	}
	if err := r.dev.OpenReadingPipe(readingPipe, r.cfg.Address); err != nil {
		return fmt.Errorf("open reading pipe %q: %w", r.cfg.Address, err)
	}
	if err := r.dev.StartListening(); err != nil {
		return fmt.Errorf("start listening: %w", err)
	}
	r.ready = true
	logger.WithFields(log.Fields{
		"channel": r.cfg.Channel,
		"address": string(r.cfg.Address),
		"rate":    r.cfg.DataRate.String(),
	}).Info("receiver listening")
	return nil
}

// ReadIfAvailable drains waiting frames for at most the poll window. Each
// good frame overwrites the current package. It reports whether the package
// was replaced. No data is not an error.
func (r *Receiver) ReadIfAvailable() bool {
	if !r.ready || !r.dev.Available() {
		return false
	}

	updated := false
	r.window.Arm(r.cfg.PollWindow)
	for r.window.Pending() && r.dev.Available() {
		n, err := r.dev.Read(r.buf[:])
		if err != nil {
			r.dropped++
			logger.WithError(err).Debug("read failed")
			continue
		}
		var pkg SetpointPackage
		if err := pkg.UnmarshalBinary(r.buf[:n]); err != nil {
			r.dropped++
			logger.WithError(err).Debug("dropped frame")
			continue
		}
		r.current = pkg
		updated = true
	}
	return updated
}

// Package returns a copy of the last good package.
func (r *Receiver) Package() SetpointPackage {
	return r.current
}

// Dropped returns how many frames could not be decoded.
func (r *Receiver) Dropped() int {
	return r.dropped
}
