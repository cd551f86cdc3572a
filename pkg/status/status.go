// Package status models the three-state liveness light shared by both boards.
package status

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// State is what the status light shows.
type State int

const (
	OK State = iota
	Error
	Waiting
	Off
)

func (s State) String() string {
	switch s {
	case OK:
		return "ok"
	case Error:
		return "error"
	case Waiting:
		return "waiting"
	case Off:
		return "off"
	}
	return "unknown"
}

// BlinkPause is how long each half of a blink lasts.
const BlinkPause = 50 * time.Millisecond

// Indicator is a write-only status light.
type Indicator interface {
	Set(State)
}

// Animate shows s for one blink and then turns the light off.
// This is the only place outside the leg stepper that sleeps, and it exists
// purely for the visual effect.
func Animate(ind Indicator, clk clock.Clock, s State) {
	ind.Set(s)
	pause(clk, BlinkPause)
	ind.Set(Off)
	pause(clk, BlinkPause)
}

// Heartbeat blinks s n times.
func Heartbeat(ind Indicator, clk clock.Clock, s State, n int) {
	for i := 0; i < n; i++ {
		Animate(ind, clk, s)
	}
}

func pause(clk clock.Clock, d time.Duration) {
	if clk == nil || d <= 0 {
		return
	}
	clk.Sleep(d)
}

// LogIndicator reports state changes through logrus. Repeated states are
// not logged again.
type LogIndicator struct {
	Logger log.FieldLogger

	mu   sync.Mutex
	last State
	seen bool
}

func (l *LogIndicator) Set(s State) {
	l.mu.Lock()
	changed := !l.seen || l.last != s
	l.last, l.seen = s, true
	l.mu.Unlock()

	if !changed || s == Off {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger.WithField("status", s.String()).Debug("status light")
}

// Recorder keeps every state it was set to. It is safe to read from another
// goroutine, which the TUIs do.
type Recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *Recorder) Set(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

// States returns a copy of everything recorded so far.
func (r *Recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// Last returns the most recent state other than Off.
func (r *Recorder) Last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.states) - 1; i >= 0; i-- {
		if r.states[i] != Off {
			return r.states[i]
		}
	}
	return Off
}

// Multi fans a state out to several indicators.
type Multi []Indicator

func (m Multi) Set(s State) {
	for _, ind := range m {
		ind.Set(s)
	}
}
