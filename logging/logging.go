// Package logging provides the slog handler used by the zigbind command.
//
// Records are written as
//
//	PREFIX WARNING: message key=value
//
// Multi-line messages start on the next line and are indented.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/refaktor/zigbind/textutils"
)

// LevelTrace is below slog.LevelDebug for very verbose output.
const LevelTrace slog.Level = -8

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %v", s)
	}
}

func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

type Options struct {
	// Prefix starts every line, e.g. the target name.
	Prefix string
	// Level defaults to slog.LevelInfo.
	Level slog.Leveler
}

type Handler struct {
	w    io.Writer
	mu   *sync.Mutex
	opts Options

	// Preformatted attributes from WithAttrs
	attrs string
	group string
}

func NewHandler(w io.Writer, opts *Options) *Handler {
	h := &Handler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

// WithPrefix returns a handler with a different line prefix that shares h's
// writer and lock.
func (h *Handler) WithPrefix(prefix string) *Handler {
	res := *h
	res.opts.Prefix = prefix
	return &res
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b bytes.Buffer
	if h.opts.Prefix != "" {
		b.WriteString(h.opts.Prefix)
		b.WriteString(" ")
	}
	b.WriteString(levelString(r.Level))
	b.WriteString(":")

	var attrs strings.Builder
	attrs.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&attrs, h.group, a)
		return true
	})

	s := r.Message
	if strings.Contains(s, "\n") {
		b.WriteString("\n")
		s = textutils.IndentString(textutils.EnsureNewline(s), "  ", 1)
		b.WriteString(s)
		if attrs.Len() > 0 {
			b.WriteString("  ")
			b.WriteString(strings.TrimPrefix(attrs.String(), " "))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(" ")
		b.WriteString(s)
		b.WriteString(attrs.String())
		b.WriteString("\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(b.Bytes())
	return err
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		if key == "" {
			key = group
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, key, ga)
		}
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = strconv.Quote(v)
	}
	b.WriteString(v)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	res := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	res.attrs = b.String()
	return &res
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	res := *h
	if res.group != "" {
		res.group += "." + name
	} else {
		res.group = name
	}
	return &res
}
