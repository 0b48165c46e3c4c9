package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Bizzy211/heimdall/internal/adapter/otel"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// TaskRunner executes one task on behalf of its assigned agent. The runner
// returns the result payload handed to the next agent, if any.
type TaskRunner func(ctx context.Context, t task.Task) (result map[string]any, nextAgent string, err error)

// Executor walks an orchestration's level plan: every task within a level
// runs concurrently up to maxParallel, and a barrier separates levels so no
// task starts before all of its dependencies' level has finished.
type Executor struct {
	orch        *Orchestrator
	metrics     *otel.Metrics
	logger      *slog.Logger
	maxParallel int
}

// NewExecutor creates a level executor. Metrics may be nil.
func NewExecutor(orch *Orchestrator, metrics *otel.Metrics, logger *slog.Logger, maxParallel int) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Executor{orch: orch, metrics: metrics, logger: logger, maxParallel: maxParallel}
}

// ChainRunner returns a runner that advances the plan without external
// workers: each task completes immediately, handing off to the agent of
// its first dependent task when that agent differs from the task's own.
func ChainRunner(o *Orchestrator, orchestrationID string) TaskRunner {
	return func(_ context.Context, t task.Task) (map[string]any, string, error) {
		result := map[string]any{"task_id": t.ID, "title": t.Title}

		_, _, tasks, err := o.Get(orchestrationID)
		if err != nil {
			return nil, "", err
		}
		for _, cand := range tasks {
			if cand.AssignedAgent == t.AssignedAgent {
				continue
			}
			for _, dep := range cand.Dependencies {
				if dep == t.ID {
					return result, cand.AssignedAgent, nil
				}
			}
		}
		return result, "", nil
	}
}

// Run executes the orchestration's current task set level by level. A task
// failure marks the task blocked and aborts after the current level's
// barrier; already-running siblings finish first.
func (e *Executor) Run(ctx context.Context, orchestrationID string, runner TaskRunner) error {
	plan, err := e.orch.Plan(orchestrationID)
	if err != nil {
		return fmt.Errorf("build execution plan: %w", err)
	}

	for levelIdx, level := range plan.Levels {
		ctx, span := otel.StartLevelSpan(ctx, orchestrationID, levelIdx, len(level))
		err := e.runLevel(ctx, orchestrationID, level, runner)
		span.End()
		if err != nil {
			return fmt.Errorf("level %d: %w", levelIdx, err)
		}
	}
	return nil
}

// runLevel executes one level's tasks concurrently and waits for all of
// them. Each task is assigned, run, and completed or failed through the
// orchestrator so agent state machines stay authoritative.
func (e *Executor) runLevel(ctx context.Context, orchestrationID string, taskIDs []string, runner TaskRunner) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for _, taskID := range taskIDs {
		g.Go(func() error {
			return e.runTask(ctx, orchestrationID, taskID, runner)
		})
	}
	return g.Wait()
}

func (e *Executor) runTask(ctx context.Context, orchestrationID, taskID string, runner TaskRunner) error {
	t, ok := e.lookupTask(orchestrationID, taskID)
	if !ok {
		return fmt.Errorf("task %s vanished from run %s", taskID, orchestrationID)
	}
	if t.Status != task.StatusPending {
		// Resumed runs carry already-finished tasks; skip them.
		return nil
	}

	if err := e.orch.Assign(ctx, orchestrationID, taskID, t.AssignedAgent); err != nil {
		return fmt.Errorf("assign task %s: %w", taskID, err)
	}

	result, nextAgent, err := runner(ctx, t)
	if err != nil {
		if failErr := e.orch.Fail(ctx, orchestrationID, taskID, err.Error()); failErr != nil {
			e.logger.Error("record task failure", "task_id", taskID, "error", failErr)
		}
		if e.metrics != nil {
			e.metrics.TasksFailed.Add(ctx, 1)
		}
		return fmt.Errorf("run task %s: %w", taskID, err)
	}

	h, err := e.orch.Complete(ctx, orchestrationID, taskID, result, nextAgent)
	if err != nil {
		return fmt.Errorf("complete task %s: %w", taskID, err)
	}
	if e.metrics != nil {
		e.metrics.TasksCompleted.Add(ctx, 1)
		if h != nil {
			e.metrics.HandoffsCreated.Add(ctx, 1)
		}
	}
	return nil
}

// lookupTask snapshots one task of the run.
func (e *Executor) lookupTask(orchestrationID, taskID string) (task.Task, bool) {
	_, _, tasks, err := e.orch.Get(orchestrationID)
	if err != nil {
		return task.Task{}, false
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return task.Task{}, false
}
