package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelError LogLevel = "error"
	LevelWarn  LogLevel = "warn"
	LevelInfo  LogLevel = "info"
	LevelDebug LogLevel = "debug"
)

var (
	mu sync.RWMutex

	// Current logger instance
	logger *slog.Logger

	// Current log level
	currentLevel slog.Level

	// Where the formatted handler writes
	output io.Writer = os.Stderr
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel configures the logging level
func SetLevel(level LogLevel) error {
	var l slog.Level
	switch level {
	case LevelError:
		l = slog.LevelError
	case LevelWarn:
		l = slog.LevelWarn
	case LevelInfo:
		l = slog.LevelInfo
	case LevelDebug:
		l = slog.LevelDebug
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	mu.Lock()
	defer mu.Unlock()
	currentLevel = l
	logger = slog.New(NewHandler(output, currentLevel))
	return nil
}

// ParseLevel converts a string to LogLevel
func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(s))
	switch level {
	case LevelError, LevelWarn, LevelInfo, LevelDebug:
		return level, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", s)
	}
}

// SetOutput redirects the formatted output of the package logger
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	logger = slog.New(NewHandler(output, currentLevel))
}

// SetCallback replaces the package logger with one that forwards every record
// at or above the current level to fn. Used by the terminal dashboard, which
// owns the screen and cannot share it with stderr. The returned func puts the
// formatted output back.
func SetCallback(fn CallbackFunc) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	logger = NewCallbackLogger(fn, currentLevel)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		logger = slog.New(NewHandler(output, currentLevel))
	}
}

// Logger returns the current package logger
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel <= slog.LevelDebug
}
