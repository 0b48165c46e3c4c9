package orchestration

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bizzy211/heimdall/internal/domain"
)

// HandoffStatus represents the state of a handoff record. Transitions move
// forward only: pending -> accepted | rejected, accepted -> completed | failed.
type HandoffStatus string

const (
	HandoffPending   HandoffStatus = "pending"
	HandoffAccepted  HandoffStatus = "accepted"
	HandoffCompleted HandoffStatus = "completed"
	HandoffFailed    HandoffStatus = "failed"
	HandoffRejected  HandoffStatus = "rejected"
)

// IsTerminal returns true once the handoff can no longer change.
func (s HandoffStatus) IsTerminal() bool {
	return s == HandoffCompleted || s == HandoffFailed || s == HandoffRejected
}

var (
	ErrHandoffSameAgent = errors.New("handoff source and target are the same agent")
	ErrHandoffNoTask    = errors.New("handoff requires a task id")
)

// Handoff is a tracked transfer of responsibility for a task from one agent
// to another. The context payload is opaque to the engine; it is attached at
// creation, which is why ContextPreserved holds by construction.
type Handoff struct {
	ID               string         `json:"id"`
	FromAgent        string         `json:"from_agent"`
	ToAgent          string         `json:"to_agent"`
	TaskID           string         `json:"task_id"`
	ContextID        string         `json:"context_id"`
	Context          map[string]any `json:"context,omitempty"`
	Status           HandoffStatus  `json:"status"`
	ContextPreserved bool           `json:"context_preserved"`
	Reason           string         `json:"reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	AcknowledgedAt   time.Time      `json:"acknowledged_at,omitzero"`
	CompletedAt      time.Time      `json:"completed_at,omitzero"`
}

// NewHandoff creates a pending handoff carrying the given context payload.
func NewHandoff(id, contextID, fromAgent, toAgent, taskID string, context map[string]any, now time.Time) (*Handoff, error) {
	if fromAgent == toAgent {
		return nil, ErrHandoffSameAgent
	}
	if taskID == "" {
		return nil, ErrHandoffNoTask
	}
	return &Handoff{
		ID:               id,
		FromAgent:        fromAgent,
		ToAgent:          toAgent,
		TaskID:           taskID,
		ContextID:        contextID,
		Context:          context,
		Status:           HandoffPending,
		ContextPreserved: true,
		CreatedAt:        now,
	}, nil
}

// Accept moves a pending handoff to accepted. Re-accepting a non-pending
// handoff is a conflict.
func (h *Handoff) Accept(now time.Time) error {
	if h.Status != HandoffPending {
		return fmt.Errorf("accept handoff %s in state %s: %w", h.ID, h.Status, domain.ErrConflict)
	}
	h.Status = HandoffAccepted
	h.AcknowledgedAt = now
	return nil
}

// Reject moves a pending handoff to rejected with the given reason.
func (h *Handoff) Reject(reason string, now time.Time) error {
	if h.Status != HandoffPending {
		return fmt.Errorf("reject handoff %s in state %s: %w", h.ID, h.Status, domain.ErrConflict)
	}
	h.Status = HandoffRejected
	h.Reason = reason
	h.AcknowledgedAt = now
	return nil
}

// Complete moves an accepted handoff to completed.
func (h *Handoff) Complete(now time.Time) error {
	if h.Status != HandoffAccepted {
		return fmt.Errorf("complete handoff %s in state %s: %w", h.ID, h.Status, domain.ErrConflict)
	}
	h.Status = HandoffCompleted
	h.CompletedAt = now
	return nil
}

// Fail moves an accepted handoff to failed with the given reason.
func (h *Handoff) Fail(reason string, now time.Time) error {
	if h.Status != HandoffAccepted {
		return fmt.Errorf("fail handoff %s in state %s: %w", h.ID, h.Status, domain.ErrConflict)
	}
	h.Status = HandoffFailed
	h.Reason = reason
	h.CompletedAt = now
	return nil
}

// Metrics holds timings derived from a handoff record after the fact.
type Metrics struct {
	TimeToAcknowledge time.Duration `json:"time_to_acknowledge"`
	TimeToComplete    time.Duration `json:"time_to_complete"`
	ContextSize       int           `json:"context_size"`
}

// Metrics computes handoff timing metrics. Durations are zero until the
// corresponding transition has happened. ContextSize is the length of the
// JSON encoding of the context payload.
func (h *Handoff) Metrics() Metrics {
	var m Metrics
	if !h.AcknowledgedAt.IsZero() {
		m.TimeToAcknowledge = h.AcknowledgedAt.Sub(h.CreatedAt)
	}
	if !h.CompletedAt.IsZero() {
		m.TimeToComplete = h.CompletedAt.Sub(h.CreatedAt)
	}
	if h.Context != nil {
		if data, err := json.Marshal(h.Context); err == nil {
			m.ContextSize = len(data)
		}
	}
	return m
}
