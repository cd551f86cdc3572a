// Package timer provides a millisecond one-shot countdown that never blocks.
//
// A Timer is re-armed explicitly by its owner before each wait and polled with
// Pending. There is no background goroutine.
package timer

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a cooperative one-shot countdown.
type Timer struct {
	clk      clock.Clock
	start    time.Time
	duration time.Duration
	armed    bool
}

// New returns an unarmed timer reading time from clk.
// A nil clk uses the wall clock.
func New(clk clock.Clock) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{clk: clk}
}

// Arm records the current time and the duration to wait.
func (t *Timer) Arm(d time.Duration) {
	t.start = t.clk.Now()
	t.duration = d
	t.armed = true
}

// ArmMillis is Arm with a duration in milliseconds.
func (t *Timer) ArmMillis(ms int) {
	t.Arm(time.Duration(ms) * time.Millisecond)
}

// Pending reports whether less than the armed duration has elapsed.
// An unarmed timer is never pending.
func (t *Timer) Pending() bool {
	if !t.armed {
		return false
	}
	return t.clk.Since(t.start) < t.duration
}

// Armed reports whether Arm has been called at least once.
func (t *Timer) Armed() bool {
	return t.armed
}

// Expired is the negation of Pending.
func (t *Timer) Expired() bool {
	return !t.Pending()
}

// Remaining returns the time left before expiry, or zero.
func (t *Timer) Remaining() time.Duration {
	if !t.armed {
		return 0
	}
	left := t.duration - t.clk.Since(t.start)
	if left < 0 {
		return 0
	}
	return left
}
