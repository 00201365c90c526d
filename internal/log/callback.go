package log

import (
	"log/slog"
)

// CallbackFunc is a function that receives log records
type CallbackFunc func(record slog.Record)

// NewCallbackLogger creates a logger that forwards logs to a callback function
func NewCallbackLogger(callback CallbackFunc, minLevel slog.Level) *slog.Logger {
	return slog.New(NewCallbackHandler(callback, minLevel))
}

// With returns a logger carrying a component name, rendered as a prefix by
// the formatted handler
func With(component string) *slog.Logger {
	return Logger().With(slog.String(componentKey, component))
}
