// Package logging routes log/slog records into a line-oriented sink such as
// a UART or stdout.
//
// Records are rendered as one line each:
//
//	I (1234) port: init step=buffers size=1036800
//
// The letter is the level, the number is milliseconds since the handler was
// created, and the word before the colon is the "tag" attribute when present.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LineWriter receives fully formatted log lines without trailing newline.
type LineWriter interface {
	WriteLineString(s string)
}

// TagKey is the attribute key rendered as the line prefix.
const TagKey = "tag"

// Handler is a slog.Handler that writes to a LineWriter.
type Handler struct {
	mu    *sync.Mutex
	w     LineWriter
	level slog.Leveler
	start time.Time
	now   func() time.Time

	tag    string
	prefix string
	attrs  []slog.Attr
}

// NewHandler returns a handler writing to w. A nil opts logs at Info and above.
func NewHandler(w LineWriter, opts *slog.HandlerOptions) *Handler {
	var lvl slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		lvl = opts.Level
	}
	return &Handler{
		mu:    &sync.Mutex{},
		w:     w,
		level: lvl,
		start: time.Now(),
		now:   time.Now,
	}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return h.w != nil && l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteByte(levelLetter(r.Level))
	fmt.Fprintf(&b, " (%d) ", h.now().Sub(h.start).Milliseconds())

	tag := h.tag
	var rest []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == TagKey && h.prefix == "" {
			tag = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	})
	if tag != "" {
		b.WriteString(tag)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	for _, a := range rest {
		writeAttr(&b, h.prefix, a)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.w.WriteLineString(b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == TagKey && h.prefix == "" {
			h2.tag = a.Value.String()
			continue
		}
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	s := a.Value.String()
	if strings.ContainsAny(s, " \t\"=") {
		fmt.Fprintf(b, "%q", s)
		return
	}
	b.WriteString(s)
}

func levelLetter(l slog.Level) byte {
	switch {
	case l >= slog.LevelError:
		return 'E'
	case l >= slog.LevelWarn:
		return 'W'
	case l >= slog.LevelInfo:
		return 'I'
	default:
		return 'D'
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger installs the process-wide logger. Nil restores the silent default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the process-wide logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Tagged returns the process-wide logger with the given tag attached.
func Tagged(tag string) *slog.Logger {
	return Logger().With(TagKey, tag)
}
