// Package database defines the record store port (interface).
package database

import (
	"context"

	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// Store is the port interface for persisting orchestration records. The
// live orchestration state is in-memory; the store holds the durable
// snapshots used for archival and resumption.
type Store interface {
	// Orchestrations
	CreateOrchestration(ctx context.Context, rec *orchestration.Record) error
	GetOrchestration(ctx context.Context, id string) (*orchestration.Record, error)
	UpdateOrchestration(ctx context.Context, rec *orchestration.Record) error
	ListOrchestrations(ctx context.Context) ([]orchestration.Record, error)

	// Agents
	UpsertAgent(ctx context.Context, orchestrationID string, a *agent.Agent) error
	ListAgents(ctx context.Context, orchestrationID string) ([]agent.Agent, error)

	// Tasks
	CreateTasks(ctx context.Context, orchestrationID string, tasks []task.Task) error
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context, orchestrationID string) ([]task.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status task.Status, assignedAgent string) error

	// Handoffs
	AppendHandoff(ctx context.Context, orchestrationID string, h *orchestration.Handoff) error
	UpdateHandoff(ctx context.Context, h *orchestration.Handoff) error
	ListHandoffsByTask(ctx context.Context, taskID string) ([]orchestration.Handoff, error)
}
