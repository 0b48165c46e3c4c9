// Package eventlog provides a bounded, injectable event log. It replaces
// ambient global log arrays: every component that records automation events
// receives a *Log explicitly and appends through its API.
package eventlog

import (
	"sync"
	"time"
)

// Event is one recorded automation event.
type Event struct {
	Time    time.Time      `json:"time"`
	Kind    string         `json:"kind"`
	TaskID  string         `json:"task_id,omitempty"`
	AgentID string         `json:"agent_id,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Log is a fixed-capacity ring buffer of events. Appends never block and
// never grow memory: once full, the oldest event is overwritten. All
// methods are safe for concurrent use; appends are serialized, preserving
// chronological order.
type Log struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	full  bool
	total uint64
}

// New creates a Log holding at most capacity events. Capacity below 1 is
// raised to 1.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{buf: make([]Event, capacity)}
}

// Append records an event, evicting the oldest if the buffer is full.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = e
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	l.total++
}

// Events returns the retained events in append order, oldest first.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]Event, l.next)
		copy(out, l.buf[:l.next])
		return out
	}

	out := make([]Event, 0, len(l.buf))
	out = append(out, l.buf[l.next:]...)
	out = append(out, l.buf[:l.next]...)
	return out
}

// Total returns the number of events ever appended, including evicted ones.
func (l *Log) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Len returns the number of currently retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.buf)
	}
	return l.next
}
