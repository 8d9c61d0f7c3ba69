package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is a log line captured by RecordingLogger.
type Entry struct {
	Level   string
	Message string
}

// RecordingLogger keeps every entry in memory. It is used by tests that
// assert on warnings emitted for rejected operations.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecordingLogger returns an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger { return &RecordingLogger{} }

func (r *RecordingLogger) add(level, msg string) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
	r.mu.Unlock()
}

func (r *RecordingLogger) Debugf(format string, args ...any) {
	r.add("debug", fmt.Sprintf(format, args...))
}

func (r *RecordingLogger) Debugw(msg string, _ map[string]any) { r.add("debug", msg) }

func (r *RecordingLogger) Infof(format string, args ...any) {
	r.add("info", fmt.Sprintf(format, args...))
}

func (r *RecordingLogger) Warnf(format string, args ...any) {
	r.add("warn", fmt.Sprintf(format, args...))
}

func (r *RecordingLogger) Errorf(format string, args ...any) {
	r.add("error", fmt.Sprintf(format, args...))
}

// Entries returns a copy of the captured entries.
func (r *RecordingLogger) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns how many entries of the given level were captured.
func (r *RecordingLogger) Count(level string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether an entry of the given level contains substr.
func (r *RecordingLogger) Contains(level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
