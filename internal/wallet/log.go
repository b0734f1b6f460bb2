package wallet

import (
	"sync"
	"time"
)

// MaxLogEntries is the capacity of the connection log.
const MaxLogEntries = 10

// LogEntry is one diagnostic connection event.
type LogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
}

// ConnectionLog keeps the most recent entries, newest first.
type ConnectionLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewConnectionLog() *ConnectionLog {
	return &ConnectionLog{entries: make([]LogEntry, 0, MaxLogEntries)}
}

func (l *ConnectionLog) Add(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
	if len(l.entries) > MaxLogEntries {
		l.entries = l.entries[:MaxLogEntries]
	}
}

// Entries returns a copy of the log, newest first.
func (l *ConnectionLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
