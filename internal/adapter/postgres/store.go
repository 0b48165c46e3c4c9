package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bizzy211/heimdall/internal/domain"
	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Orchestrations ---

func (s *Store) CreateOrchestration(ctx context.Context, rec *orchestration.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orchestrations (id, project_ref, status, task_queue, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.ProjectRef, rec.Status, pgTextArray(rec.TaskQueue), pgTextArray(rec.CompletedTasks),
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create orchestration %s: %w", rec.ID, err)
	}
	rec.Version = 1
	return nil
}

func (s *Store) GetOrchestration(ctx context.Context, id string) (*orchestration.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_ref, status, task_queue, completed, version, created_at, updated_at
		 FROM orchestrations WHERE id = $1`, id)

	var rec orchestration.Record
	err := row.Scan(&rec.ID, &rec.ProjectRef, &rec.Status, &rec.TaskQueue, &rec.CompletedTasks,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get orchestration %s", id)
	}
	return &rec, nil
}

func (s *Store) UpdateOrchestration(ctx context.Context, rec *orchestration.Record) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orchestrations
		 SET status = $2, task_queue = $3, completed = $4, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5`,
		rec.ID, rec.Status, pgTextArray(rec.TaskQueue), pgTextArray(rec.CompletedTasks), rec.Version)
	if err != nil {
		return fmt.Errorf("update orchestration %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update orchestration %s: %w", rec.ID, domain.ErrConflict)
	}
	rec.Version++
	return nil
}

func (s *Store) ListOrchestrations(ctx context.Context) ([]orchestration.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_ref, status, task_queue, completed, version, created_at, updated_at
		 FROM orchestrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orchestrations: %w", err)
	}
	defer rows.Close()

	var recs []orchestration.Record
	for rows.Next() {
		var rec orchestration.Record
		if err := rows.Scan(&rec.ID, &rec.ProjectRef, &rec.Status, &rec.TaskQueue,
			&rec.CompletedTasks, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan orchestration: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- Agents ---

func (s *Store) UpsertAgent(ctx context.Context, orchestrationID string, a *agent.Agent) error {
	capJSON, err := json.Marshal(a.Capability)
	if err != nil {
		return fmt.Errorf("marshal capability: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO orchestration_agents
		   (id, orchestration_id, agent_type, capability, status, current_task, completed_tasks, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (orchestration_id, agent_type) DO UPDATE
		 SET status = EXCLUDED.status, current_task = EXCLUDED.current_task,
		     completed_tasks = EXCLUDED.completed_tasks,
		     version = orchestration_agents.version + 1, updated_at = EXCLUDED.updated_at`,
		a.ID, orchestrationID, a.Type, capJSON, a.Status, a.CurrentTask,
		pgTextArray(a.CompletedTasks), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", a.Type, err)
	}
	return nil
}

func (s *Store) ListAgents(ctx context.Context, orchestrationID string) ([]agent.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_type, capability, status, current_task, completed_tasks, version, created_at, updated_at
		 FROM orchestration_agents WHERE orchestration_id = $1 ORDER BY agent_type`, orchestrationID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		var a agent.Agent
		var capJSON []byte
		if err := rows.Scan(&a.ID, &a.Type, &capJSON, &a.Status, &a.CurrentTask,
			&a.CompletedTasks, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		if err := json.Unmarshal(capJSON, &a.Capability); err != nil {
			return nil, fmt.Errorf("unmarshal capability for %s: %w", a.Type, err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// --- Tasks ---

func (s *Store) CreateTasks(ctx context.Context, orchestrationID string, tasks []task.Task) error {
	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(
			`INSERT INTO orchestration_tasks
			   (id, orchestration_id, title, description, priority, dependencies, assigned_agent, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			t.ID, orchestrationID, t.Title, t.Description, t.Priority,
			pgTextArray(t.Dependencies), t.AssignedAgent, t.Status, t.CreatedAt, t.UpdatedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for range tasks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("create tasks: %w", err)
		}
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, description, priority, dependencies, assigned_agent, status, created_at, updated_at
		 FROM orchestration_tasks WHERE id = $1`, id)

	var t task.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Dependencies,
		&t.AssignedAgent, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, orchestrationID string) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, priority, dependencies, assigned_agent, status, created_at, updated_at
		 FROM orchestration_tasks WHERE orchestration_id = $1 ORDER BY created_at`, orchestrationID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Dependencies,
			&t.AssignedAgent, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status task.Status, assignedAgent string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orchestration_tasks SET status = $2, assigned_agent = $3, updated_at = now() WHERE id = $1`,
		id, status, assignedAgent)
	return execExpectOne(tag, err, "update task %s", id)
}

// --- Handoffs ---

func (s *Store) AppendHandoff(ctx context.Context, orchestrationID string, h *orchestration.Handoff) error {
	ctxJSON, err := json.Marshal(h.Context)
	if err != nil {
		return fmt.Errorf("marshal handoff context: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO handoffs
		   (id, orchestration_id, from_agent, to_agent, task_id, context_id, context, status, context_preserved, reason, created_at, acknowledged_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		h.ID, orchestrationID, h.FromAgent, h.ToAgent, h.TaskID, h.ContextID, ctxJSON,
		h.Status, h.ContextPreserved, h.Reason, h.CreatedAt,
		nullTime(h.AcknowledgedAt), nullTime(h.CompletedAt))
	if err != nil {
		return fmt.Errorf("append handoff %s: %w", h.ID, err)
	}
	return nil
}

func (s *Store) UpdateHandoff(ctx context.Context, h *orchestration.Handoff) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE handoffs SET status = $2, reason = $3, acknowledged_at = $4, completed_at = $5 WHERE id = $1`,
		h.ID, h.Status, h.Reason, nullTime(h.AcknowledgedAt), nullTime(h.CompletedAt))
	return execExpectOne(tag, err, "update handoff %s", h.ID)
}

func (s *Store) ListHandoffsByTask(ctx context.Context, taskID string) ([]orchestration.Handoff, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, from_agent, to_agent, task_id, context_id, context, status, context_preserved, reason, created_at, acknowledged_at, completed_at
		 FROM handoffs WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list handoffs for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var handoffs []orchestration.Handoff
	for rows.Next() {
		var h orchestration.Handoff
		var ctxJSON []byte
		var ackAt, doneAt *time.Time
		if err := rows.Scan(&h.ID, &h.FromAgent, &h.ToAgent, &h.TaskID, &h.ContextID, &ctxJSON,
			&h.Status, &h.ContextPreserved, &h.Reason, &h.CreatedAt, &ackAt, &doneAt); err != nil {
			return nil, fmt.Errorf("scan handoff: %w", err)
		}
		if len(ctxJSON) > 0 {
			if err := json.Unmarshal(ctxJSON, &h.Context); err != nil {
				return nil, fmt.Errorf("unmarshal handoff context %s: %w", h.ID, err)
			}
		}
		if ackAt != nil {
			h.AcknowledgedAt = *ackAt
		}
		if doneAt != nil {
			h.CompletedAt = *doneAt
		}
		handoffs = append(handoffs, h)
	}
	return handoffs, rows.Err()
}
