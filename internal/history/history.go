// Package history keeps the client-side record of a chat session as the
// user saw it. The log is append-only: reconnects and error frames never
// touch it, only an explicit Clear empties it.
package history

import (
	"sync"
	"time"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one line of the conversation as displayed.
type Entry struct {
	Role Role
	Text string
	At   time.Time
}

// Log is a concurrency-safe append-only chat record.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append records one entry stamped with the current time and returns it.
func (l *Log) Append(role Role, text string) Entry {
	e := Entry{Role: role, Text: text, At: time.Now()}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the log. Only explicit user action should call this.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
