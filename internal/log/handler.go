package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// componentKey is rendered as a bracketed prefix instead of an inline attribute
const componentKey = "component"

// BaseHandler provides common formatting logic for all handlers
type BaseHandler struct {
	level slog.Level
	mu    *sync.Mutex
}

// Enabled reports whether the handler handles records at the given level
func (h *BaseHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// CallbackHandler is a slog.Handler that forwards log records to a callback function
type CallbackHandler struct {
	BaseHandler
	callback CallbackFunc
	attrs    []slog.Attr
}

// NewCallbackHandler creates a new slog handler that forwards logs to a callback
func NewCallbackHandler(callback CallbackFunc, level slog.Level) *CallbackHandler {
	return &CallbackHandler{
		BaseHandler: BaseHandler{level: level, mu: &sync.Mutex{}},
		callback:    callback,
	}
}

// Handle handles the Record by forwarding to the callback
func (h *CallbackHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.callback == nil {
		return nil
	}

	if len(h.attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(h.attrs...)
	}

	h.callback(record)
	return nil
}

// WithAttrs returns a new Handler whose attributes consist of both the receiver's attributes and the arguments
func (h *CallbackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CallbackHandler{
		BaseHandler: h.BaseHandler,
		callback:    h.callback,
		attrs:       merged,
	}
}

// WithGroup returns the receiver; groups are flattened
func (h *CallbackHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Handler is a slog.Handler for formatted single-line output
type Handler struct {
	BaseHandler
	component string
	attrs     []slog.Attr
	output    io.Writer
}

// NewHandler creates a new handler for formatted output
func NewHandler(output io.Writer, level slog.Level) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{level: level, mu: &sync.Mutex{}},
		output:      output,
	}
}

// Handle processes the Record and outputs formatted log
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var prefix string
	if h.component != "" {
		prefix = "[" + h.component + "] "
	}

	msg := LevelPrefix(r.Level) + prefix + r.Message
	for _, a := range h.attrs {
		msg += formatAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == slog.TimeKey {
			return true
		}
		msg += formatAttr(a)
		return true
	})

	_, err := fmt.Fprintln(h.output, msg)
	return err
}

// WithAttrs returns a new Handler with the given attributes. A "component"
// attribute becomes the line prefix.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &Handler{
		BaseHandler: h.BaseHandler,
		component:   h.component,
		attrs:       append([]slog.Attr(nil), h.attrs...),
		output:      h.output,
	}
	for _, a := range attrs {
		if a.Key == componentKey {
			next.component = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

// WithGroup returns the receiver; groups are flattened
func (h *Handler) WithGroup(_ string) slog.Handler {
	return h
}

// LevelPrefix returns the line prefix used for a level. INFO has none.
func LevelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "[ERROR] "
	case level >= slog.LevelWarn:
		return "[WARN] "
	case level >= slog.LevelInfo:
		return ""
	default:
		return "[DEBUG] "
	}
}

// FormatRecord renders a record the same way Handler does, without the
// trailing newline
func FormatRecord(r slog.Record) string {
	var component string
	var attrs string
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case slog.TimeKey:
		case componentKey:
			component = "[" + a.Value.String() + "] "
		default:
			attrs += formatAttr(a)
		}
		return true
	})
	return LevelPrefix(r.Level) + component + r.Message + attrs
}

func formatAttr(a slog.Attr) string {
	return fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
}
