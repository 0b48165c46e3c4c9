// Package service contains the application services that coordinate domain
// logic with the ports: orchestration runtime, triage engine, handoff
// coordination, and level execution.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Bizzy211/heimdall/internal/domain"
	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/domain/identity"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/schedule"
	"github.com/Bizzy211/heimdall/internal/domain/task"
	"github.com/Bizzy211/heimdall/internal/eventlog"
	"github.com/Bizzy211/heimdall/internal/port/broadcast"
	"github.com/Bizzy211/heimdall/internal/port/database"
	"github.com/Bizzy211/heimdall/internal/port/messagequeue"
	"github.com/Bizzy211/heimdall/internal/port/persistlog"
)

// Orchestrator owns the live state of orchestration runs: the agents, the
// task set, and the handoff log. Records are mirrored to the store for
// archival; the in-memory state is authoritative while a run is live.
type Orchestrator struct {
	store   database.Store
	queue   messagequeue.Queue
	hub     broadcast.Broadcaster
	ids     identity.Generator
	events  *eventlog.Log
	taskLog persistlog.Log
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	runs map[string]*runState
}

// runState is the live in-memory state of one orchestration run.
type runState struct {
	rec      orchestration.Record
	agents   map[string]*agent.Agent // keyed by agent type
	tasks    map[string]*task.Task
	order    []string // task IDs in creation order
	handoffs []*orchestration.Handoff
	failed   int
	started  time.Time
}

// OrchestratorOpts carries the collaborators for NewOrchestrator. Store,
// queue, hub and task log may be nil; the orchestrator then runs without
// the corresponding side channel.
type OrchestratorOpts struct {
	Store   database.Store
	Queue   messagequeue.Queue
	Hub     broadcast.Broadcaster
	IDs     identity.Generator
	Events  *eventlog.Log
	TaskLog persistlog.Log
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewOrchestrator creates the orchestration runtime service.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.IDs == nil {
		opts.IDs = identity.UUID{}
	}
	if opts.Events == nil {
		opts.Events = eventlog.New(1024)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		store:   opts.Store,
		queue:   opts.Queue,
		hub:     opts.Hub,
		ids:     opts.IDs,
		events:  opts.Events,
		taskLog: opts.TaskLog,
		logger:  opts.Logger,
		now:     opts.Now,
		runs:    make(map[string]*runState),
	}
}

// Start creates a new orchestration run with one agent per type. Agent
// capabilities are resolved from the registry snapshot; types missing from
// the registry get an empty capability and a warning.
func (o *Orchestrator) Start(ctx context.Context, projectRef string, agentTypes []string, reg *agent.Registry) (*orchestration.Record, error) {
	if len(agentTypes) == 0 {
		return nil, fmt.Errorf("orchestration requires at least one agent type")
	}

	now := o.now()
	rec := orchestration.Record{
		ID:         o.ids.NewID(),
		ProjectRef: projectRef,
		Status:     orchestration.StatusRunning,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	run := &runState{
		rec:     rec,
		agents:  make(map[string]*agent.Agent, len(agentTypes)),
		tasks:   make(map[string]*task.Task),
		started: now,
	}
	for _, typ := range agentTypes {
		if _, dup := run.agents[typ]; dup {
			return nil, fmt.Errorf("duplicate agent type %s: %w", typ, domain.ErrConflict)
		}
		var capability agent.Capability
		if reg != nil {
			if c, ok := reg.Lookup(typ); ok {
				capability = c
			} else {
				o.logger.Warn("agent type not in registry", "type", typ)
			}
		}
		run.agents[typ] = &agent.Agent{
			ID:         o.ids.NewID(),
			Type:       typ,
			Capability: capability,
			Status:     agent.StatusIdle,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	if o.store != nil {
		if err := o.store.CreateOrchestration(ctx, &rec); err != nil {
			return nil, fmt.Errorf("persist orchestration: %w", err)
		}
		for _, a := range run.agents {
			if err := o.store.UpsertAgent(ctx, rec.ID, a); err != nil {
				return nil, fmt.Errorf("persist agent %s: %w", a.Type, err)
			}
		}
	}

	o.mu.Lock()
	o.runs[rec.ID] = run
	o.mu.Unlock()

	o.events.Append(eventlog.Event{
		Time: now,
		Kind: "orchestration.started",
		Detail: map[string]any{
			"orchestration_id": rec.ID,
			"agents":           len(agentTypes),
		},
	})
	o.broadcastStatus(ctx, rec.ID, rec.Status)
	o.logger.Info("orchestration started",
		"orchestration_id", rec.ID,
		"project", projectRef,
		"agents", len(agentTypes))

	return &rec, nil
}

// Restore rehydrates live state for every non-terminal orchestration in
// the store, typically at process start. Runs already live in memory are
// left alone. Returns the number of runs restored.
func (o *Orchestrator) Restore(ctx context.Context) (int, error) {
	if o.store == nil {
		return 0, nil
	}
	recs, err := o.store.ListOrchestrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list orchestrations: %w", err)
	}

	restored := 0
	for i := range recs {
		rec := recs[i]
		if rec.Status.IsTerminal() {
			continue
		}

		agents, err := o.store.ListAgents(ctx, rec.ID)
		if err != nil {
			return restored, fmt.Errorf("restore agents for %s: %w", rec.ID, err)
		}
		tasks, err := o.store.ListTasks(ctx, rec.ID)
		if err != nil {
			return restored, fmt.Errorf("restore tasks for %s: %w", rec.ID, err)
		}

		run := &runState{
			rec:     rec,
			agents:  make(map[string]*agent.Agent, len(agents)),
			tasks:   make(map[string]*task.Task, len(tasks)),
			started: rec.CreatedAt,
		}
		for j := range agents {
			a := agents[j]
			run.agents[a.Type] = &a
		}
		for j := range tasks {
			t := tasks[j]
			run.tasks[t.ID] = &t
			run.order = append(run.order, t.ID)
			if t.Status == task.StatusBlocked {
				run.failed++
			}
			hs, err := o.store.ListHandoffsByTask(ctx, t.ID)
			if err != nil {
				return restored, fmt.Errorf("restore handoffs for task %s: %w", t.ID, err)
			}
			for k := range hs {
				run.handoffs = append(run.handoffs, &hs[k])
			}
		}
		sort.Slice(run.handoffs, func(a, b int) bool {
			return run.handoffs[a].CreatedAt.Before(run.handoffs[b].CreatedAt)
		})

		o.mu.Lock()
		_, live := o.runs[rec.ID]
		if !live {
			o.runs[rec.ID] = run
			restored++
		}
		o.mu.Unlock()
		if live {
			continue
		}

		o.logger.Info("orchestration restored",
			"orchestration_id", rec.ID,
			"status", rec.Status,
			"tasks", len(tasks))
	}
	return restored, nil
}

// AddPlan materializes a decomposition plan as tasks of the run. Subtask
// index dependencies are remapped to freshly issued task IDs, and the
// resulting graph is validated before anything is committed: a cyclic plan
// adds no tasks at all.
func (o *Orchestrator) AddPlan(ctx context.Context, orchestrationID string, plan decompose.Plan) ([]task.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	if run.rec.Status.IsTerminal() {
		return nil, fmt.Errorf("orchestration %s is %s: %w", orchestrationID, run.rec.Status, domain.ErrConflict)
	}

	now := o.now()
	created := make([]task.Task, len(plan.Subtasks))
	ids := make([]string, len(plan.Subtasks))
	for i := range plan.Subtasks {
		ids[i] = o.ids.NewID()
	}
	for i, st := range plan.Subtasks {
		deps := make([]string, 0, len(st.DependsOn))
		for _, di := range st.DependsOn {
			if di < 0 || di >= len(ids) {
				return nil, fmt.Errorf("subtask %d depends on out-of-range index %d: %w", i, di, domain.ErrNotFound)
			}
			deps = append(deps, ids[di])
		}
		created[i] = task.Task{
			ID:            ids[i],
			Title:         st.Title,
			Priority:      st.Priority,
			Dependencies:  deps,
			AssignedAgent: st.Agent,
			Status:        task.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	// Validate the combined graph (existing tasks plus new) before commit.
	all := make([]task.Task, 0, len(run.order)+len(created))
	for _, id := range run.order {
		all = append(all, *run.tasks[id])
	}
	all = append(all, created...)
	if _, err := schedule.Build(all); err != nil {
		return nil, fmt.Errorf("validate task graph: %w", err)
	}

	if o.store != nil {
		if err := o.store.CreateTasks(ctx, orchestrationID, created); err != nil {
			return nil, fmt.Errorf("persist tasks: %w", err)
		}
	}

	for i := range created {
		t := created[i]
		run.tasks[t.ID] = &t
		run.order = append(run.order, t.ID)
		run.rec.TaskQueue = append(run.rec.TaskQueue, t.ID)
	}
	o.touchLocked(ctx, run, now)

	o.events.Append(eventlog.Event{
		Time: now,
		Kind: "plan.added",
		Detail: map[string]any{
			"orchestration_id": orchestrationID,
			"tasks":            len(created),
		},
	})
	return created, nil
}

// Ready returns the tasks currently eligible for assignment: pending, with
// every dependency done. Dependency-free tasks sort before dependent ones,
// then by priority rank, then by creation order.
func (o *Orchestrator) Ready(orchestrationID string) ([]task.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(run.order))
	for i, id := range run.order {
		pos[id] = i
	}

	var ready []task.Task
	for _, id := range run.order {
		t := run.tasks[id]
		if t.Status != task.StatusPending {
			continue
		}
		if !depsDone(run, t) {
			continue
		}
		ready = append(ready, *t)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		di, dj := len(ready[i].Dependencies) > 0, len(ready[j].Dependencies) > 0
		if di != dj {
			return !di
		}
		ri, rj := ready[i].Priority.Rank(), ready[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return pos[ready[i].ID] < pos[ready[j].ID]
	})
	return ready, nil
}

// Plan computes the execution plan (topological order plus parallel levels)
// over the run's current task set.
func (o *Orchestrator) Plan(orchestrationID string) (*schedule.Plan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	all := make([]task.Task, 0, len(run.order))
	for _, id := range run.order {
		all = append(all, *run.tasks[id])
	}
	return schedule.Build(all)
}

// Assign hands the task to the named agent. The agent must be idle; a busy
// agent is a conflict, not a queue. The task moves to in-progress.
func (o *Orchestrator) Assign(ctx context.Context, orchestrationID, taskID, agentType string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return err
	}
	t, ok := run.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	a, ok := run.agents[agentType]
	if !ok {
		return fmt.Errorf("agent %s: %w", agentType, domain.ErrNotFound)
	}
	if t.Status != task.StatusPending {
		return fmt.Errorf("task %s is %s: %w", taskID, t.Status, domain.ErrConflict)
	}
	if !depsDone(run, t) {
		return fmt.Errorf("task %s has unmet dependencies: %w", taskID, domain.ErrConflict)
	}

	now := o.now()
	if err := a.Assign(taskID, now); err != nil {
		return fmt.Errorf("agent %s is %s: %w", agentType, a.Status, err)
	}
	t.Status = task.StatusInProgress
	t.AssignedAgent = agentType
	t.UpdatedAt = now
	o.persistTaskLocked(ctx, run, t, a)
	o.touchLocked(ctx, run, now)

	o.events.Append(eventlog.Event{
		Time:    now,
		Kind:    "task.assigned",
		TaskID:  taskID,
		AgentID: a.ID,
		Detail:  map[string]any{"agent_type": agentType},
	})
	o.publishTask(ctx, messagequeue.SubjectTaskAssigned, run.rec.ID, t, "")
	o.broadcastAgent(ctx, run.rec.ID, a)
	o.logger.Info("task assigned",
		"orchestration_id", orchestrationID,
		"task_id", taskID,
		"agent", agentType)
	return nil
}

// Complete marks the agent's current task done and returns the agent to
// idle. When nextAgent names a different agent of the same run, a pending
// handoff carrying the result payload is opened toward it.
func (o *Orchestrator) Complete(ctx context.Context, orchestrationID, taskID string, result map[string]any, nextAgent string) (*orchestration.Handoff, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	t, ok := run.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	a, ok := run.agents[t.AssignedAgent]
	if !ok || a.CurrentTask != taskID {
		return nil, fmt.Errorf("task %s is not held by a working agent: %w", taskID, domain.ErrConflict)
	}
	// The handoff target must resolve before any state changes: a bad
	// target must leave the task in-progress so the caller can retry.
	if nextAgent != "" {
		if _, ok := run.agents[nextAgent]; !ok {
			return nil, fmt.Errorf("handoff target %s: %w", nextAgent, domain.ErrNotFound)
		}
	}

	now := o.now()
	if err := a.Complete(now); err != nil {
		return nil, fmt.Errorf("complete agent %s: %w", a.Type, err)
	}
	t.Status = task.StatusDone
	t.UpdatedAt = now
	run.rec.CompletedTasks = append(run.rec.CompletedTasks, taskID)
	o.persistTaskLocked(ctx, run, t, a)
	o.touchLocked(ctx, run, now)

	o.appendTaskLog(ctx, persistlog.Record{
		"time":             now.Format(time.RFC3339Nano),
		"orchestration_id": orchestrationID,
		"task_id":          taskID,
		"title":            t.Title,
		"agent":            a.Type,
		"status":           string(task.StatusDone),
	})
	o.events.Append(eventlog.Event{
		Time:    now,
		Kind:    "task.completed",
		TaskID:  taskID,
		AgentID: a.ID,
	})
	o.publishTask(ctx, messagequeue.SubjectTaskCompleted, run.rec.ID, t, "")
	o.broadcastAgent(ctx, run.rec.ID, a)

	var h *orchestration.Handoff
	if nextAgent != "" {
		h, err = orchestration.NewHandoff(o.ids.NewID(), o.ids.NewID(), a.Type, nextAgent, taskID, result, now)
		if err != nil {
			return nil, fmt.Errorf("open handoff: %w", err)
		}
		run.handoffs = append(run.handoffs, h)
		if o.store != nil {
			if err := o.store.AppendHandoff(ctx, orchestrationID, h); err != nil {
				o.logger.Error("persist handoff", "handoff_id", h.ID, "error", err)
			}
		}
		o.events.Append(eventlog.Event{
			Time:   now,
			Kind:   "handoff.created",
			TaskID: taskID,
			Detail: map[string]any{"from": h.FromAgent, "to": h.ToAgent, "handoff_id": h.ID},
		})
		o.publishHandoff(ctx, messagequeue.SubjectHandoffCreated, run.rec.ID, h)
		o.logger.Info("handoff opened",
			"orchestration_id", orchestrationID,
			"handoff_id", h.ID,
			"from", h.FromAgent,
			"to", h.ToAgent)
	}

	o.maybeFinishLocked(ctx, run, now)
	return h, nil
}

// Fail marks the agent's current task as blocked and the agent as failed.
// The task keeps its assignee so the failure can be inspected; recovery
// goes through ResetAgent plus an explicit reassignment.
func (o *Orchestrator) Fail(ctx context.Context, orchestrationID, taskID, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return err
	}
	t, ok := run.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	a, ok := run.agents[t.AssignedAgent]
	if !ok || a.CurrentTask != taskID {
		return fmt.Errorf("task %s is not held by a working agent: %w", taskID, domain.ErrConflict)
	}

	now := o.now()
	if err := a.Fail(now); err != nil {
		return fmt.Errorf("fail agent %s: %w", a.Type, err)
	}
	t.Status = task.StatusBlocked
	t.UpdatedAt = now
	run.failed++
	o.persistTaskLocked(ctx, run, t, a)
	o.touchLocked(ctx, run, now)

	o.appendTaskLog(ctx, persistlog.Record{
		"time":             now.Format(time.RFC3339Nano),
		"orchestration_id": orchestrationID,
		"task_id":          taskID,
		"title":            t.Title,
		"agent":            a.Type,
		"status":           string(task.StatusBlocked),
		"error":            reason,
	})
	o.events.Append(eventlog.Event{
		Time:    now,
		Kind:    "task.failed",
		TaskID:  taskID,
		AgentID: a.ID,
		Detail:  map[string]any{"reason": reason},
	})
	o.publishTask(ctx, messagequeue.SubjectTaskFailed, run.rec.ID, t, reason)
	o.broadcastAgent(ctx, run.rec.ID, a)
	o.logger.Warn("task failed",
		"orchestration_id", orchestrationID,
		"task_id", taskID,
		"agent", a.Type,
		"reason", reason)
	return nil
}

// ResetAgent returns a failed or waiting agent to idle. The blocked task,
// if any, returns to pending so it can be reassigned.
func (o *Orchestrator) ResetAgent(ctx context.Context, orchestrationID, agentType string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return err
	}
	a, ok := run.agents[agentType]
	if !ok {
		return fmt.Errorf("agent %s: %w", agentType, domain.ErrNotFound)
	}
	if a.Status == agent.StatusWorking {
		return fmt.Errorf("agent %s is working: %w", agentType, domain.ErrConflict)
	}

	now := o.now()
	if held := a.CurrentTask; held != "" {
		if t, ok := run.tasks[held]; ok && t.Status == task.StatusBlocked {
			t.Status = task.StatusPending
			t.UpdatedAt = now
			o.persistTaskLocked(ctx, run, t, nil)
		}
	}
	a.Reset(now)
	o.persistAgentLocked(ctx, run, a)
	o.broadcastAgent(ctx, run.rec.ID, a)
	return nil
}

// Pause suspends a running orchestration.
func (o *Orchestrator) Pause(ctx context.Context, orchestrationID string) error {
	return o.setStatus(ctx, orchestrationID, orchestration.StatusRunning, orchestration.StatusPaused)
}

// Resume returns a paused orchestration to running.
func (o *Orchestrator) Resume(ctx context.Context, orchestrationID string) error {
	return o.setStatus(ctx, orchestrationID, orchestration.StatusPaused, orchestration.StatusRunning)
}

func (o *Orchestrator) setStatus(ctx context.Context, orchestrationID string, from, to orchestration.Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return err
	}
	if run.rec.Status != from {
		return fmt.Errorf("orchestration %s is %s: %w", orchestrationID, run.rec.Status, domain.ErrConflict)
	}
	run.rec.Status = to
	o.touchLocked(ctx, run, o.now())
	o.broadcastStatus(ctx, orchestrationID, to)
	return nil
}

// Get returns a snapshot of one orchestration's record, agents, and tasks.
func (o *Orchestrator) Get(orchestrationID string) (*orchestration.Record, []agent.Agent, []task.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, nil, nil, err
	}
	rec := run.rec
	agents := agentsOf(run)
	tasks := make([]task.Task, 0, len(run.order))
	for _, id := range run.order {
		tasks = append(tasks, *run.tasks[id])
	}
	return &rec, agents, tasks, nil
}

// List returns records for all live runs, newest first.
func (o *Orchestrator) List() []orchestration.Record {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]orchestration.Record, 0, len(o.runs))
	for _, run := range o.runs {
		out = append(out, run.rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Handoffs returns the run's handoff log in creation order.
func (o *Orchestrator) Handoffs(orchestrationID string) ([]orchestration.Handoff, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	out := make([]orchestration.Handoff, 0, len(run.handoffs))
	for _, h := range run.handoffs {
		out = append(out, *h)
	}
	return out, nil
}

// Summary aggregates the run outcome for session-end reporting.
func (o *Orchestrator) Summary(orchestrationID string) (*orchestration.Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	queued := 0
	for _, t := range run.tasks {
		if t.Status == task.StatusPending {
			queued++
		}
	}
	return &orchestration.Summary{
		OrchestrationID: orchestrationID,
		Status:          run.rec.Status,
		TasksCompleted:  len(run.rec.CompletedTasks),
		TasksFailed:     run.failed,
		TasksQueued:     queued,
		Handoffs:        len(run.handoffs),
		Elapsed:         o.now().Sub(run.started),
	}, nil
}

// Stale returns agents that have been working longer than maxAge without a
// status change.
func (o *Orchestrator) Stale(orchestrationID string, maxAge time.Duration) ([]agent.Agent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	cutoff := o.now().Add(-maxAge)
	var stale []agent.Agent
	for _, a := range agentsOf(run) {
		if a.Status == agent.StatusWorking && a.UpdatedAt.Before(cutoff) {
			stale = append(stale, a)
		}
	}
	return stale, nil
}

// Events returns the retained automation events, oldest first.
func (o *Orchestrator) Events() []eventlog.Event {
	return o.events.Events()
}

// locked resolves a run by ID. Callers must hold o.mu.
func (o *Orchestrator) locked(orchestrationID string) (*runState, error) {
	run, ok := o.runs[orchestrationID]
	if !ok {
		return nil, fmt.Errorf("orchestration %s: %w", orchestrationID, domain.ErrNotFound)
	}
	return run, nil
}

// handoffByID resolves a handoff within a run. Callers must hold o.mu.
func (o *Orchestrator) handoffByID(run *runState, handoffID string) (*orchestration.Handoff, error) {
	for _, h := range run.handoffs {
		if h.ID == handoffID {
			return h, nil
		}
	}
	return nil, fmt.Errorf("handoff %s: %w", handoffID, domain.ErrNotFound)
}

// depsDone reports whether every dependency of t is done. Unknown
// dependency IDs count as unmet.
func depsDone(run *runState, t *task.Task) bool {
	for _, dep := range t.Dependencies {
		d, ok := run.tasks[dep]
		if !ok || d.Status != task.StatusDone {
			return false
		}
	}
	return true
}

// agentsOf returns the run's agents sorted by type for stable output.
func agentsOf(run *runState) []agent.Agent {
	out := make([]agent.Agent, 0, len(run.agents))
	for _, a := range run.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// maybeFinishLocked completes the run once every task is done.
func (o *Orchestrator) maybeFinishLocked(ctx context.Context, run *runState, now time.Time) {
	if len(run.tasks) == 0 || run.rec.Status.IsTerminal() {
		return
	}
	for _, t := range run.tasks {
		if t.Status != task.StatusDone {
			return
		}
	}
	run.rec.Status = orchestration.StatusCompleted
	o.touchLocked(ctx, run, now)
	o.events.Append(eventlog.Event{
		Time:   now,
		Kind:   "orchestration.completed",
		Detail: map[string]any{"orchestration_id": run.rec.ID},
	})
	o.broadcastStatus(ctx, run.rec.ID, run.rec.Status)
	o.logger.Info("orchestration completed", "orchestration_id", run.rec.ID)
}

// touchLocked mirrors the record to the store. The record carries its
// current version for the store's optimistic check; the store bumps it on
// a successful write. On a persist failure the version is left alone so
// the next touch retries against the same stored row.
func (o *Orchestrator) touchLocked(ctx context.Context, run *runState, now time.Time) {
	run.rec.UpdatedAt = now
	if o.store == nil {
		run.rec.Version++
		return
	}
	if err := o.store.UpdateOrchestration(ctx, &run.rec); err != nil {
		o.logger.Error("persist orchestration", "orchestration_id", run.rec.ID, "error", err)
	}
}

// persistTaskLocked mirrors a task (and optionally its agent) to the store.
func (o *Orchestrator) persistTaskLocked(ctx context.Context, run *runState, t *task.Task, a *agent.Agent) {
	if o.store == nil {
		return
	}
	if err := o.store.UpdateTaskStatus(ctx, t.ID, t.Status, t.AssignedAgent); err != nil {
		o.logger.Error("persist task", "task_id", t.ID, "error", err)
	}
	if a != nil {
		o.persistAgentLocked(ctx, run, a)
	}
}

func (o *Orchestrator) persistAgentLocked(ctx context.Context, run *runState, a *agent.Agent) {
	if o.store == nil {
		return
	}
	a.Version++
	if err := o.store.UpsertAgent(ctx, run.rec.ID, a); err != nil {
		o.logger.Error("persist agent", "agent", a.Type, "error", err)
	}
}

func (o *Orchestrator) appendTaskLog(ctx context.Context, rec persistlog.Record) {
	if o.taskLog == nil {
		return
	}
	if err := o.taskLog.Append(ctx, rec); err != nil {
		o.logger.Error("append task log", "error", err)
	}
}
