package routine

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// LogHook forwards log entries to a channel so a TUI can show them. Entries
// are dropped when the channel is full.
type LogHook struct {
	ch     chan string
	levels []log.Level
}

// NewLogHook buffers up to size lines of level and above.
func NewLogHook(size int, level log.Level) *LogHook {
	h := &LogHook{ch: make(chan string, size)}
	for _, l := range log.AllLevels {
		if l <= level {
			h.levels = append(h.levels, l)
		}
	}
	return h
}

func (h *LogHook) Levels() []log.Level {
	return h.levels
}

func (h *LogHook) Fire(e *log.Entry) error {
	msg := fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
	if err, ok := e.Data[log.ErrorKey]; ok {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	select {
	case h.ch <- msg:
	default:
		// Drop if channel full
	}
	return nil
}

// Lines returns the channel of formatted log lines.
func (h *LogHook) Lines() <-chan string {
	return h.ch
}
