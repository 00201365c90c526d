package dashboard

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rail44/userdash/internal/log"
)

// LogEntry represents a single log message
type LogEntry struct {
	Level     slog.Level
	Message   string
	Timestamp time.Time
}

// LogBuffer keeps the most recent log entries for the footer. It is written
// from any goroutine and read by View.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	limit   int
}

// NewLogBuffer creates a buffer holding at most limit entries
func NewLogBuffer(limit int) *LogBuffer {
	if limit < 1 {
		limit = 1
	}
	return &LogBuffer{limit: limit}
}

// Record is a log.CallbackFunc
func (b *LogBuffer) Record(r slog.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, LogEntry{
		Level:     r.Level,
		Message:   log.FormatRecord(r),
		Timestamp: r.Time,
	})
	if len(b.entries) > b.limit {
		b.entries = b.entries[len(b.entries)-b.limit:]
	}
}

// Recent returns up to n of the newest entries, oldest first
func (b *LogBuffer) Recent(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.entries
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return append([]LogEntry(nil), entries...)
}
