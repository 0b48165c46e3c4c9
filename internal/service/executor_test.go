package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

func TestExecutorRunsLevelsInOrder(t *testing.T) {
	o := newTestOrchestrator()
	id := startRun(t, o, "db-architect", "backend-dev", "frontend-dev")
	addTasks(t, o, id,
		decompose.Subtask{Title: "schema", Agent: "db-architect", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{1}},
	)

	var mu sync.Mutex
	var titles []string
	exec := NewExecutor(o, nil, nil, 4)

	err := exec.Run(context.Background(), id, func(_ context.Context, tk task.Task) (map[string]any, string, error) {
		mu.Lock()
		titles = append(titles, tk.Title)
		mu.Unlock()
		return nil, "", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"schema", "api", "ui"}
	for i, title := range titles {
		if title != want[i] {
			t.Fatalf("execution order = %v, want %v", titles, want)
		}
	}

	rec, _, _, _ := o.Get(id)
	if rec.Status != orchestration.StatusCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}
}

func TestExecutorBoundsConcurrency(t *testing.T) {
	o := newTestOrchestrator()
	agents := []string{"a1", "a2", "a3", "a4", "a5", "a6"}
	id := startRun(t, o, agents...)

	subtasks := make([]decompose.Subtask, len(agents))
	for i, a := range agents {
		subtasks[i] = decompose.Subtask{Title: a, Agent: a, Priority: task.PriorityMedium}
	}
	addTasks(t, o, id, subtasks...)

	var inFlight, peak atomic.Int32
	exec := NewExecutor(o, nil, nil, 2)

	err := exec.Run(context.Background(), id, func(context.Context, task.Task) (map[string]any, string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return nil, "", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestExecutorFailureBlocksTask(t *testing.T) {
	o := newTestOrchestrator()
	id := startRun(t, o, "backend-dev", "frontend-dev")
	created := addTasks(t, o, id,
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
	)

	exec := NewExecutor(o, nil, nil, 4)
	boom := errors.New("runner crashed")

	err := exec.Run(context.Background(), id, func(context.Context, task.Task) (map[string]any, string, error) {
		return nil, "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want the runner failure", err)
	}

	_, _, tasks, _ := o.Get(id)
	for _, tk := range tasks {
		switch tk.ID {
		case created[0].ID:
			if tk.Status != task.StatusBlocked {
				t.Errorf("failed task status = %s, want blocked", tk.Status)
			}
		case created[1].ID:
			if tk.Status != task.StatusPending {
				t.Errorf("dependent task status = %s, want untouched pending", tk.Status)
			}
		}
	}
}

func TestExecutorCreatesHandoffs(t *testing.T) {
	o := newTestOrchestrator()
	id := startRun(t, o, "backend-dev", "frontend-dev")
	addTasks(t, o, id,
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
	)

	exec := NewExecutor(o, nil, nil, 4)
	err := exec.Run(context.Background(), id, func(_ context.Context, tk task.Task) (map[string]any, string, error) {
		if tk.Title == "api" {
			return map[string]any{"spec": "v1"}, "frontend-dev", nil
		}
		return nil, "", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	handoffs, _ := o.Handoffs(id)
	if len(handoffs) != 1 {
		t.Fatalf("handoffs = %d, want 1", len(handoffs))
	}
	if handoffs[0].ToAgent != "frontend-dev" {
		t.Errorf("handoff target = %s, want frontend-dev", handoffs[0].ToAgent)
	}
}

// randomSubtasks builds a random DAG of n subtasks with only backward
// dependency edges, one dedicated agent per subtask.
func randomSubtasks(rng *rand.Rand, n int) []decompose.Subtask {
	subs := make([]decompose.Subtask, n)
	for i := range subs {
		subs[i] = decompose.Subtask{
			Title:    fmt.Sprintf("t%d", i),
			Agent:    fmt.Sprintf("a%d", i),
			Priority: task.PriorityMedium,
		}
		for j := 0; j < i; j++ {
			if rng.Intn(100) < 30 {
				subs[i].DependsOn = append(subs[i].DependsOn, j)
			}
		}
	}
	return subs
}

func agentTypesFor(subs []decompose.Subtask) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.Agent
	}
	return out
}

func completedSet(t *testing.T, o *Orchestrator, id string) map[string]bool {
	t.Helper()
	rec, _, _, err := o.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	set := make(map[string]bool, len(rec.CompletedTasks))
	for _, tid := range rec.CompletedTasks {
		set[tid] = true
	}
	return set
}

func TestParallelAndSequentialExecutionAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ctx := context.Background()

	for trial := 0; trial < 20; trial++ {
		subs := randomSubtasks(rng, 8)

		// Parallel: level executor with bounded concurrency.
		par := newTestOrchestrator()
		parID := startRun(t, par, agentTypesFor(subs)...)
		addTasks(t, par, parID, subs...)
		exec := NewExecutor(par, nil, nil, 3)
		if err := exec.Run(ctx, parID, func(context.Context, task.Task) (map[string]any, string, error) {
			return nil, "", nil
		}); err != nil {
			t.Fatalf("trial %d: parallel run: %v", trial, err)
		}

		// Sequential: walk the topological order one task at a time.
		// Deterministic ID issue makes task IDs comparable across runs.
		seq := newTestOrchestrator()
		seqID := startRun(t, seq, agentTypesFor(subs)...)
		created := addTasks(t, seq, seqID, subs...)
		agentOf := make(map[string]string, len(created))
		for _, tk := range created {
			agentOf[tk.ID] = tk.AssignedAgent
		}
		plan, err := seq.Plan(seqID)
		if err != nil {
			t.Fatalf("trial %d: plan: %v", trial, err)
		}
		for _, tid := range plan.Order {
			if err := seq.Assign(ctx, seqID, tid, agentOf[tid]); err != nil {
				t.Fatalf("trial %d: assign %s: %v", trial, tid, err)
			}
			if _, err := seq.Complete(ctx, seqID, tid, nil, ""); err != nil {
				t.Fatalf("trial %d: complete %s: %v", trial, tid, err)
			}
		}

		parDone, seqDone := completedSet(t, par, parID), completedSet(t, seq, seqID)
		if len(parDone) != len(seqDone) {
			t.Fatalf("trial %d: completed sets differ in size: %d vs %d", trial, len(parDone), len(seqDone))
		}
		for tid := range seqDone {
			if !parDone[tid] {
				t.Fatalf("trial %d: task %s completed sequentially but not in parallel", trial, tid)
			}
		}
	}
}

func TestExecutorNeverRunsTaskBeforeDependencies(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	ctx := context.Background()

	for trial := 0; trial < 25; trial++ {
		subs := randomSubtasks(rng, 10)
		o := newTestOrchestrator()
		id := startRun(t, o, agentTypesFor(subs)...)
		addTasks(t, o, id, subs...)

		exec := NewExecutor(o, nil, nil, 4)
		err := exec.Run(ctx, id, func(_ context.Context, tk task.Task) (map[string]any, string, error) {
			_, _, tasks, err := o.Get(id)
			if err != nil {
				return nil, "", err
			}
			status := make(map[string]task.Status, len(tasks))
			for _, other := range tasks {
				status[other.ID] = other.Status
			}
			for _, dep := range tk.Dependencies {
				if status[dep] != task.StatusDone {
					return nil, "", fmt.Errorf("task %s started with dependency %s in state %s", tk.ID, dep, status[dep])
				}
			}
			return nil, "", nil
		})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
	}
}

func TestChainRunnerHandsOffAlongDependencies(t *testing.T) {
	o := newTestOrchestrator()
	id := startRun(t, o, "db-architect", "backend-dev", "frontend-dev")
	addTasks(t, o, id,
		decompose.Subtask{Title: "schema", Agent: "db-architect", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{1}},
	)

	exec := NewExecutor(o, nil, nil, 2)
	if err := exec.Run(context.Background(), id, ChainRunner(o, id)); err != nil {
		t.Fatal(err)
	}

	rec, _, _, err := o.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != orchestration.StatusCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}

	handoffs, err := o.Handoffs(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(handoffs) != 2 {
		t.Fatalf("handoffs = %d, want one per dependency edge crossing agents", len(handoffs))
	}
	if handoffs[0].ToAgent != "backend-dev" || handoffs[1].ToAgent != "frontend-dev" {
		t.Errorf("handoff targets = %s, %s; want backend-dev then frontend-dev",
			handoffs[0].ToAgent, handoffs[1].ToAgent)
	}
}
