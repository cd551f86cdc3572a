package routine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLoop_RunsUntilCanceled(t *testing.T) {
	l := New(200)
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx, func(context.Context) error {
			if calls.Add(1) == 5 {
				cancel()
			}
			return errors.New("ignored")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	if calls.Load() < 5 {
		t.Errorf("step ran %d times, want at least 5", calls.Load())
	}
	if l.Ticks() < 5 {
		t.Errorf("Ticks() = %d", l.Ticks())
	}
}

func TestLoop_RejectsSecondRun(t *testing.T) {
	l := New(100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go l.Run(ctx, func(context.Context) error {
		select {
		case <-started:
		default:
			close(started)
		}
		return nil
	})
	<-started

	if err := l.Run(ctx, func(context.Context) error { return nil }); err == nil {
		t.Error("second Run did not fail")
	}
}

func TestLoop_DefaultHz(t *testing.T) {
	if New(0).Hz() != 60 {
		t.Error("default hz is not 60")
	}
}

func TestLatest_KeepsNewest(t *testing.T) {
	l := NewLatest[int]()
	l.Send(1)
	l.Send(2)
	l.Send(3)
	if got := <-l.C(); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
	select {
	case v := <-l.C():
		t.Errorf("unexpected extra value %d", v)
	default:
	}
}

func TestLogHook(t *testing.T) {
	hook := NewLogHook(2, log.InfoLevel)
	logger := log.New()
	logger.SetLevel(log.DebugLevel)
	logger.AddHook(hook)
	logger.Out = &strings.Builder{}

	logger.Debug("too quiet")
	logger.WithError(errors.New("boom")).Warn("send gave up")
	logger.Info("second")
	logger.Info("dropped")

	first := <-hook.Lines()
	if !strings.Contains(first, "send gave up: boom") {
		t.Errorf("first line = %q", first)
	}
	if second := <-hook.Lines(); !strings.Contains(second, "second") {
		t.Errorf("second line = %q", second)
	}
	select {
	case extra := <-hook.Lines():
		t.Errorf("expected drop, got %q", extra)
	default:
	}
}
