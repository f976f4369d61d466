// Package oplog is the operator-facing diagnostic channel. Records go to the
// process log and, when a Sink is configured, warnings and errors are also
// persisted for later inspection.
package oplog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID      uuid.UUID
	Time    time.Time
	Level   string
	Message string
	Attrs   map[string]any
}

type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// NewLogger returns the JSON process logger tagged with service.
func NewLogger(w io.Writer, service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// Operator wraps base into the operator channel. sink may be nil.
func Operator(base *slog.Logger, sink Sink) *slog.Logger {
	return slog.New(NewHandler(base.Handler(), sink)).With("channel", "operator")
}

func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

type Handler struct {
	next   slog.Handler
	sink   Sink
	attrs  []slog.Attr
	prefix string
}

func NewHandler(next slog.Handler, sink Sink) *Handler {
	return &Handler{next: next, sink: sink}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || (h.sink != nil && level >= slog.LevelWarn)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.next.Enabled(ctx, r.Level) {
		errs = append(errs, h.next.Handle(ctx, r))
	}
	if h.sink != nil && r.Level >= slog.LevelWarn {
		e := Entry{
			ID:      uuid.New(),
			Time:    r.Time.UTC(),
			Level:   r.Level.String(),
			Message: r.Message,
			Attrs:   make(map[string]any, len(h.attrs)+r.NumAttrs()),
		}
		for _, a := range h.attrs {
			addAttr(e.Attrs, "", a)
		}
		r.Attrs(func(a slog.Attr) bool {
			addAttr(e.Attrs, h.prefix, a)
			return true
		})
		errs = append(errs, h.sink.Record(ctx, e))
	}
	return errors.Join(errs...)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.next = h.next.WithAttrs(attrs)
	out.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.next = h.next.WithGroup(name)
	out.prefix = h.prefix + name + "."
	return &out
}

func addAttr(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addAttr(dst, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	val := v.Any()
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	dst[prefix+a.Key] = val
}
