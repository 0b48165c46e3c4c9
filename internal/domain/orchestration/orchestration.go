// Package orchestration provides domain models for orchestration runs and
// agent-to-agent handoffs.
package orchestration

import "time"

// Status represents the lifecycle state of an orchestration run.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusPaused       Status = "paused"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// IsTerminal returns true if the orchestration is in a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the persisted snapshot of an orchestration run. The live state
// (agents, ready queue, handoff log) is owned by the service layer; this
// record is what gets archived on teardown and resumed from on restart.
type Record struct {
	ID             string    `json:"id"`
	ProjectRef     string    `json:"project_ref"`
	Status         Status    `json:"status"`
	TaskQueue      []string  `json:"task_queue"`
	CompletedTasks []string  `json:"completed_tasks"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Summary aggregates the outcome of an orchestration run for session-end
// reporting.
type Summary struct {
	OrchestrationID string        `json:"orchestration_id"`
	Status          Status        `json:"status"`
	TasksCompleted  int           `json:"tasks_completed"`
	TasksFailed     int           `json:"tasks_failed"`
	TasksQueued     int           `json:"tasks_queued"`
	Handoffs        int           `json:"handoffs"`
	Elapsed         time.Duration `json:"elapsed"`
}
