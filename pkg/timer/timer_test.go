package timer

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestTimer_PendingUntilElapsed(t *testing.T) {
	clk := clock.NewMock()
	tm := New(clk)

	tm.ArmMillis(100)
	if !tm.Pending() {
		t.Fatal("Pending() = false right after ArmMillis(100)")
	}

	clk.Add(99 * time.Millisecond)
	if !tm.Pending() {
		t.Error("Pending() = false after 99ms, want true")
	}

	clk.Add(2 * time.Millisecond)
	if tm.Pending() {
		t.Error("Pending() = true after 101ms, want false")
	}
	if !tm.Expired() {
		t.Error("Expired() = false after 101ms")
	}
}

func TestTimer_ExpiresExactlyAtDuration(t *testing.T) {
	clk := clock.NewMock()
	tm := New(clk)

	tm.Arm(50 * time.Millisecond)
	clk.Add(50 * time.Millisecond)
	if tm.Pending() {
		t.Error("Pending() = true when elapsed == duration")
	}
}

func TestTimer_Unarmed(t *testing.T) {
	tm := New(clock.NewMock())
	if tm.Pending() {
		t.Error("unarmed timer reports pending")
	}
	if got := tm.Remaining(); got != 0 {
		t.Errorf("Remaining() = %v on unarmed timer, want 0", got)
	}
}

func TestTimer_Rearm(t *testing.T) {
	clk := clock.NewMock()
	tm := New(clk)

	tm.ArmMillis(10)
	clk.Add(20 * time.Millisecond)
	if tm.Pending() {
		t.Fatal("timer still pending after expiry")
	}

	tm.ArmMillis(10)
	if !tm.Pending() {
		t.Error("re-armed timer not pending")
	}
	if got := tm.Remaining(); got != 10*time.Millisecond {
		t.Errorf("Remaining() = %v, want 10ms", got)
	}
}

func TestTimer_RemainingNeverNegative(t *testing.T) {
	clk := clock.NewMock()
	tm := New(clk)
	tm.ArmMillis(5)
	clk.Add(time.Second)
	if got := tm.Remaining(); got != 0 {
		t.Errorf("Remaining() = %v, want 0", got)
	}
}
