// Package agent defines the Agent domain entity and its status machine.
package agent

import (
	"time"

	"github.com/Bizzy211/heimdall/internal/domain"
)

// Status represents the current state of an agent.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusWorking   Status = "working"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Agent represents a specialized worker holding at most one task at a time.
// Exactly one live instance exists per Type within an orchestration.
type Agent struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Capability     Capability `json:"capability"`
	Status         Status     `json:"status"`
	CurrentTask    string     `json:"current_task,omitempty"`
	CompletedTasks []string   `json:"completed_tasks"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Assign transitions the agent from idle to working on the given task.
// Assigning a non-idle agent is a conflict and leaves the agent unchanged.
func (a *Agent) Assign(taskID string, now time.Time) error {
	if a.Status != StatusIdle {
		return domain.ErrConflict
	}
	a.Status = StatusWorking
	a.CurrentTask = taskID
	a.UpdatedAt = now
	return nil
}

// Complete records the current task as done and returns the agent to idle.
// The completed marker is transient: the agent is immediately eligible for
// new work.
func (a *Agent) Complete(now time.Time) error {
	if a.Status != StatusWorking {
		return domain.ErrConflict
	}
	a.CompletedTasks = append(a.CompletedTasks, a.CurrentTask)
	a.CurrentTask = ""
	a.Status = StatusIdle
	a.UpdatedAt = now
	return nil
}

// Fail marks the agent failed, keeping CurrentTask set so the failure can
// be inspected or reassigned through an explicit handoff.
func (a *Agent) Fail(now time.Time) error {
	if a.Status != StatusWorking {
		return domain.ErrConflict
	}
	a.Status = StatusFailed
	a.UpdatedAt = now
	return nil
}

// Reset returns a failed or waiting agent to idle, clearing any held task.
func (a *Agent) Reset(now time.Time) {
	a.Status = StatusIdle
	a.CurrentTask = ""
	a.UpdatedAt = now
}
