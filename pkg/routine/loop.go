// Package routine runs a board's control loop the way the firmware's host
// runtime did: one step at a time, forever, on a single goroutine.
package routine

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithFields(log.Fields{
	"pkg": "routine",
})

// Step is one pass of a control loop.
type Step func(ctx context.Context) error

// Loop calls a Step at a fixed rate.
type Loop struct {
	hz int

	mu      sync.Mutex
	running bool
	ticks   uint64
}

// New creates a loop running at hz steps per second. hz <= 0 means 60.
func New(hz int) *Loop {
	if hz <= 0 {
		hz = 60
	}
	return &Loop{hz: hz}
}

// Hz returns the loop frequency.
func (l *Loop) Hz() int {
	return l.hz
}

// Ticks returns how many steps have run.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Run calls step on every tick until ctx is done. A step that overruns its
// period delays the next one rather than queueing ticks. Step errors are
// logged and the loop keeps going.
func (l *Loop) Run(ctx context.Context, step Step) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	logger.WithField("hz", l.hz).Info("control loop started")

	ticker := time.NewTicker(time.Second / time.Duration(l.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("control loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := step(ctx); err != nil {
				logger.WithError(err).Warn("step failed")
			}
			l.mu.Lock()
			l.ticks++
			l.mu.Unlock()
		}
	}
}

// Latest is a one-slot channel that always holds the newest value. Slow
// readers see fresh state and the writer never blocks.
type Latest[T any] struct {
	ch chan T
}

// NewLatest creates an empty Latest.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

// C returns the receive side.
func (l *Latest[T]) C() <-chan T {
	return l.ch
}

// Send replaces any unread value with v.
func (l *Latest[T]) Send(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}
