package testutil

import (
	"strings"
	"sync"
	"testing"

	"github.com/vnykmshr/goasync/pkg/logging"
)

// LogEntry is one message captured by a LogRecorder.
type LogEntry struct {
	Level   logging.Level
	Message string
}

// LogRecorder captures messages sent to the process-wide logging sink.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

// RecordLogs installs a fresh LogRecorder as the logging sink for the
// duration of the test. Tests using it must not run in parallel.
func RecordLogs(t *testing.T) *LogRecorder {
	t.Helper()

	rec := &LogRecorder{}
	logging.ResetForTesting()
	if !logging.SetSink(rec.record) {
		t.Fatal("could not install log recorder")
	}
	t.Cleanup(logging.ResetForTesting)
	return rec
}

func (r *LogRecorder) record(level logging.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, LogEntry{Level: level, Message: message})
}

// Entries returns a copy of every captured entry.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogEntry(nil), r.entries...)
}

// Count returns how many entries at level contain substr.
func (r *LogRecorder) Count(level logging.Level, substr string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

// Has reports whether an entry at level contains substr.
func (r *LogRecorder) Has(level logging.Level, substr string) bool {
	return r.Count(level, substr) > 0
}
