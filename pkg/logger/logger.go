package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatJSON = "json"
	FormatText = "text"
	// FormatPretty is colored, terminal-oriented output for the CLI.
	FormatPretty = "pretty"
)

// New builds the process logger. Every component receives it (or a child of it)
// explicitly; nothing logs through the slog default.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatPretty:
		return slog.New(tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want %q, %q or %q)", format, FormatJSON, FormatText, FormatPretty)
	}
}

// Discard is a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Deduper collapses runs of identical messages into a single "msg (n)" line.
// A run ends when a different message arrives, when Flush is called, or after
// flushDelay without a repeat.
type Deduper struct {
	log        *slog.Logger
	mu         sync.Mutex
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
}

func NewDeduper(log *slog.Logger, flushDelay time.Duration) *Deduper {
	return &Deduper{log: log, flushDelay: flushDelay}
}

func (d *Deduper) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.log.Info(d.lastMsg)
	} else {
		d.log.Info(fmt.Sprintf("%s (%d)", d.lastMsg, d.count))
	}
	d.count = 0
	d.lastMsg = ""
}

func (d *Deduper) Dedup(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	if msg == d.lastMsg {
		d.count++
	} else {
		d.flush()
		d.lastMsg = msg
		d.count = 1
	}

	d.timer = time.AfterFunc(d.flushDelay, d.Flush)
}

// Flush writes out the pending run, if any.
func (d *Deduper) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.flush()
}
