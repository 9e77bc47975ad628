package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// DebugHandler writes single-line, colored log records for interactive use.
// It is not meant for log aggregation; release builds use JSON.
type DebugHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	attrs  []slog.Attr
	prefix string
}

var _ slog.Handler = (*DebugHandler)(nil)

// NewDebugHandler builds a DebugHandler writing to out.
func NewDebugHandler(out io.Writer) *DebugHandler {
	return &DebugHandler{mu: &sync.Mutex{}, out: out}
}

func (h *DebugHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelDebug
}

func (h *DebugHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(color.New(color.FgHiBlack).Sprint(record.Time.Format("15:04:05.000")))
	sb.WriteByte(' ')
	sb.WriteString(levelBadge(record.Level))
	sb.WriteByte(' ')
	sb.WriteString(record.Message)
	for _, attr := range h.attrs {
		writeAttr(&sb, h.prefix, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&sb, h.prefix, attr)
		return true
	})
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *DebugHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	next.attrs = append(next.attrs, attrs...)
	return next
}

func (h *DebugHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	if next.prefix != "" {
		next.prefix += "."
	}
	next.prefix += name
	return next
}

// clone shares the mutex and output but copies the attr slice, so derived
// handlers never interleave writes or alias each other's attrs.
func (h *DebugHandler) clone() *DebugHandler {
	return &DebugHandler{
		mu:     h.mu,
		out:    h.out,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		prefix: h.prefix,
	}
}

func levelBadge(level slog.Level) string {
	var bg, fg color.Attribute
	switch {
	case level >= slog.LevelError:
		bg, fg = color.BgRed, color.FgWhite
	case level >= slog.LevelWarn:
		bg, fg = color.BgYellow, color.FgBlack
	case level >= slog.LevelInfo:
		bg, fg = color.BgBlue, color.FgWhite
	default:
		bg, fg = color.BgMagenta, color.FgWhite
	}
	return color.New(bg, fg, color.Bold).Sprint(" " + level.String() + " ")
}

func writeAttr(sb *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := attr.Key
		if prefix != "" {
			groupPrefix = prefix + "." + attr.Key
		}
		for _, member := range attr.Value.Group() {
			writeAttr(sb, groupPrefix, member)
		}
		return
	}
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	sb.WriteByte(' ')
	sb.WriteString(color.New(color.Faint).Sprintf("%s=", key))
	sb.WriteString(formatValue(attr.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\"") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

// MultiHandler fans records out to several handlers, letting one record
// reach both stdout and an exporter.
type MultiHandler struct {
	handlers []slog.Handler
}

var _ slog.Handler = (*MultiHandler)(nil)

// NewMultiHandler combines handlers into one.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}
