// Package runlog captures a run's log records so the pipeline can return
// them alongside its result. The capture handler is used as a tee next to
// whatever handler the process logs with normally.
package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record, flattened for the run result.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Attrs   string    `json:"attrs,omitempty"`
}

func (e Entry) String() string {
	if e.Attrs == "" {
		return fmt.Sprintf("%s %s %s", e.Time.Format(time.RFC3339), e.Level, e.Message)
	}
	return fmt.Sprintf("%s %s %s %s", e.Time.Format(time.RFC3339), e.Level, e.Message, e.Attrs)
}

// Recorder is a slog.Handler that appends every record to an in-memory
// list. Safe for concurrent use; attrs added through With are carried into
// each entry.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	level   slog.Level
	prefix  []slog.Attr
}

var _ slog.Handler = (*Recorder)(nil)

// NewRecorder captures records at or above level.
func NewRecorder(level slog.Level) *Recorder {
	return &Recorder{level: level}
}

func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	var parts []string
	for _, a := range r.prefix {
		parts = append(parts, a.String())
	}
	rec.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})

	r.mu.Lock()
	r.entries = append(r.entries, Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
		Attrs:   strings.Join(parts, " "),
	})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Derived handlers share the entry list; only the attr prefix forks.
	return &recorderView{parent: r, prefix: append(append([]slog.Attr(nil), r.prefix...), attrs...)}
}

func (r *Recorder) WithGroup(name string) slog.Handler {
	return r
}

// Entries returns a copy of everything captured so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Lines renders the captured entries as plain strings.
func (r *Recorder) Lines() []string {
	entries := r.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// recorderView is a Recorder with extra attrs, writing into its parent.
type recorderView struct {
	parent *Recorder
	prefix []slog.Attr
}

var _ slog.Handler = (*recorderView)(nil)

func (v *recorderView) Enabled(ctx context.Context, level slog.Level) bool {
	return v.parent.Enabled(ctx, level)
}

func (v *recorderView) Handle(_ context.Context, rec slog.Record) error {
	var parts []string
	for _, a := range v.prefix {
		parts = append(parts, a.String())
	}
	rec.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})

	v.parent.mu.Lock()
	v.parent.entries = append(v.parent.entries, Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
		Attrs:   strings.Join(parts, " "),
	})
	v.parent.mu.Unlock()
	return nil
}

func (v *recorderView) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recorderView{parent: v.parent, prefix: append(append([]slog.Attr(nil), v.prefix...), attrs...)}
}

func (v *recorderView) WithGroup(name string) slog.Handler {
	return v
}

// tee duplicates records into every handler.
type tee struct {
	handlers []slog.Handler
}

var _ slog.Handler = (*tee)(nil)

// Tee builds a logger that writes to base's handler and every extra
// handler. Nil handlers are skipped; a nil base means only the extras
// receive records.
func Tee(base *slog.Logger, extras ...slog.Handler) *slog.Logger {
	handlers := make([]slog.Handler, 0, len(extras)+1)
	if base != nil {
		handlers = append(handlers, base.Handler())
	}
	for _, h := range extras {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(&tee{handlers: handlers})
}

func (t *tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *tee) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for i, h := range t.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		r := rec
		if i < len(t.handlers)-1 {
			r = rec.Clone()
		}
		if err := h.Handle(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &tee{handlers: next}
}

func (t *tee) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &tee{handlers: next}
}
