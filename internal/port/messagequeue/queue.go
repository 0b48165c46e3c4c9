// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for the subjects Heimdall publishes on.
const (
	SubjectTaskAssigned   = "tasks.assigned"   // a task was assigned to an agent
	SubjectTaskCompleted  = "tasks.completed"  // a task finished
	SubjectTaskFailed     = "tasks.failed"     // a task failed
	SubjectHandoffCreated = "handoffs.created" // a handoff record was opened
	SubjectHandoffClosed  = "handoffs.closed"  // a handoff reached a terminal state
	SubjectAgentStatus    = "agents.status"    // agent status transitions
)
