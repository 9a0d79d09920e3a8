// Package progress records the outcome of user actions for the activity
// window.
package progress

import (
	"sync"
	"time"
)

// Status indicates the state of an action.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusAborted Status = "aborted"
)

// Event is one entry in the activity log.
type Event struct {
	Message   string
	Status    Status
	Timestamp time.Time
	Metadata  map[string]string // optional: table, error, etc.
}

// DefaultCapacity bounds a Log created with NewLog(0).
const DefaultCapacity = 200

// Log keeps the most recent events, oldest first. Safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []Event
	limit  int
	now    func() time.Time
}

// NewLog returns a log holding at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{limit: capacity, now: time.Now}
}

// Emit appends ev, stamping it when Timestamp is zero. The oldest event is
// dropped once the log is full.
func (l *Log) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now()
	}
	l.events = append(l.events, ev)
	if over := len(l.events) - l.limit; over > 0 {
		l.events = append(l.events[:0:0], l.events[over:]...)
	}
}

// Events returns a copy of the logged events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Len returns the number of logged events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
