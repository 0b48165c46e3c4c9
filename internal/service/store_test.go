package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Bizzy211/heimdall/internal/domain"
	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/domain/identity"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// fakeStore is an in-memory database.Store with the same optimistic
// version check the SQL adapter applies on orchestration updates.
type fakeStore struct {
	mu        sync.Mutex
	recs      map[string]*orchestration.Record
	agents    map[string][]agent.Agent
	tasks     map[string][]task.Task
	handoffs  map[string][]orchestration.Handoff // keyed by task ID
	updates   int
	conflicts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recs:     make(map[string]*orchestration.Record),
		agents:   make(map[string][]agent.Agent),
		tasks:    make(map[string][]task.Task),
		handoffs: make(map[string][]orchestration.Handoff),
	}
}

func (s *fakeStore) CreateOrchestration(_ context.Context, rec *orchestration.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.recs[rec.ID]; dup {
		return fmt.Errorf("orchestration %s: %w", rec.ID, domain.ErrConflict)
	}
	cp := *rec
	cp.Version = 1
	s.recs[rec.ID] = &cp
	rec.Version = 1
	return nil
}

func (s *fakeStore) GetOrchestration(_ context.Context, id string) (*orchestration.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.recs[id]
	if !ok {
		return nil, fmt.Errorf("orchestration %s: %w", id, domain.ErrNotFound)
	}
	cp := *stored
	return &cp, nil
}

func (s *fakeStore) UpdateOrchestration(_ context.Context, rec *orchestration.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.recs[rec.ID]
	if !ok || stored.Version != rec.Version {
		s.conflicts++
		return fmt.Errorf("update orchestration %s: %w", rec.ID, domain.ErrConflict)
	}
	cp := *rec
	cp.Version = stored.Version + 1
	s.recs[rec.ID] = &cp
	rec.Version++
	s.updates++
	return nil
}

func (s *fakeStore) ListOrchestrations(context.Context) ([]orchestration.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orchestration.Record, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) UpsertAgent(_ context.Context, orchestrationID string, a *agent.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.agents[orchestrationID]
	for i := range list {
		if list[i].Type == a.Type {
			list[i] = *a
			return nil
		}
	}
	s.agents[orchestrationID] = append(list, *a)
	return nil
}

func (s *fakeStore) ListAgents(_ context.Context, orchestrationID string) ([]agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Agent(nil), s.agents[orchestrationID]...), nil
}

func (s *fakeStore) CreateTasks(_ context.Context, orchestrationID string, tasks []task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[orchestrationID] = append(s.tasks[orchestrationID], tasks...)
	return nil
}

func (s *fakeStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.tasks {
		for i := range list {
			if list[i].ID == id {
				cp := list[i]
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (s *fakeStore) ListTasks(_ context.Context, orchestrationID string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]task.Task(nil), s.tasks[orchestrationID]...), nil
}

func (s *fakeStore) UpdateTaskStatus(_ context.Context, id string, status task.Status, assignedAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.tasks {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = status
				list[i].AssignedAgent = assignedAgent
				return nil
			}
		}
	}
	return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (s *fakeStore) AppendHandoff(_ context.Context, _ string, h *orchestration.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoffs[h.TaskID] = append(s.handoffs[h.TaskID], *h)
	return nil
}

func (s *fakeStore) UpdateHandoff(_ context.Context, h *orchestration.Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for taskID, list := range s.handoffs {
		for i := range list {
			if list[i].ID == h.ID {
				s.handoffs[taskID][i] = *h
				return nil
			}
		}
	}
	return fmt.Errorf("handoff %s: %w", h.ID, domain.ErrNotFound)
}

func (s *fakeStore) ListHandoffsByTask(_ context.Context, taskID string) ([]orchestration.Handoff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orchestration.Handoff(nil), s.handoffs[taskID]...), nil
}

func TestStoreMirrorAcceptsEveryUpdate(t *testing.T) {
	fs := newFakeStore()
	o := NewOrchestrator(OrchestratorOpts{
		Store: fs,
		IDs:   &identity.Sequence{Prefix: "id"},
	})
	ctx := context.Background()

	id := startRun(t, o, "backend-dev", "frontend-dev")
	created := addTasks(t, o, id,
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
	)
	if err := o.Assign(ctx, id, created[0].ID, "backend-dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Complete(ctx, id, created[0].ID, nil, "frontend-dev"); err != nil {
		t.Fatal(err)
	}
	if err := o.Assign(ctx, id, created[1].ID, "frontend-dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Complete(ctx, id, created[1].ID, nil, ""); err != nil {
		t.Fatal(err)
	}

	if fs.conflicts != 0 {
		t.Fatalf("version conflicts = %d (of %d updates), want 0", fs.conflicts, fs.updates)
	}
	if fs.updates == 0 {
		t.Fatal("no mirror updates recorded")
	}

	stored, err := fs.GetOrchestration(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != orchestration.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
	if len(stored.CompletedTasks) != 2 {
		t.Errorf("stored completed tasks = %d, want 2", len(stored.CompletedTasks))
	}

	live, _, _, err := o.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if live.Version != stored.Version {
		t.Errorf("live version %d diverged from stored %d", live.Version, stored.Version)
	}
}

func TestRestoreRehydratesLiveRuns(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	first := NewOrchestrator(OrchestratorOpts{Store: fs, IDs: &identity.Sequence{Prefix: "a"}})
	id := startRun(t, first, "backend-dev", "frontend-dev")
	created := addTasks(t, first, id,
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
	)
	if err := first.Assign(ctx, id, created[0].ID, "backend-dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Complete(ctx, id, created[0].ID, map[string]any{"spec": "v1"}, "frontend-dev"); err != nil {
		t.Fatal(err)
	}

	// A finished run must not be rehydrated.
	doneID := startRun(t, first, "backend-dev")
	doneTasks := addTasks(t, first, doneID,
		decompose.Subtask{Title: "solo", Agent: "backend-dev", Priority: task.PriorityMedium},
	)
	if err := first.Assign(ctx, doneID, doneTasks[0].ID, "backend-dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Complete(ctx, doneID, doneTasks[0].ID, nil, ""); err != nil {
		t.Fatal(err)
	}

	second := NewOrchestrator(OrchestratorOpts{Store: fs, IDs: &identity.Sequence{Prefix: "b"}})
	n, err := second.Restore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("restored = %d, want 1 (terminal run skipped)", n)
	}

	rec, agents, tasks, err := second.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != orchestration.StatusRunning {
		t.Errorf("restored status = %s, want running", rec.Status)
	}
	if len(agents) != 2 || len(tasks) != 2 {
		t.Fatalf("restored agents/tasks = %d/%d, want 2/2", len(agents), len(tasks))
	}
	for _, tk := range tasks {
		if tk.ID == created[0].ID && tk.Status != task.StatusDone {
			t.Errorf("restored task %s status = %s, want done", tk.ID, tk.Status)
		}
	}
	handoffs, err := second.Handoffs(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(handoffs) != 1 {
		t.Fatalf("restored handoffs = %d, want 1", len(handoffs))
	}

	// Work continues on the restored run, and the mirror keeps accepting.
	if err := second.Assign(ctx, id, created[1].ID, "frontend-dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := second.Complete(ctx, id, created[1].ID, nil, ""); err != nil {
		t.Fatal(err)
	}
	if fs.conflicts != 0 {
		t.Errorf("version conflicts after restore = %d, want 0", fs.conflicts)
	}
	stored, err := fs.GetOrchestration(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != orchestration.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}

	if _, _, _, err := second.Get("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown run error = %v, want ErrNotFound", err)
	}
}

func TestRestoreSkipsLiveRuns(t *testing.T) {
	fs := newFakeStore()
	o := NewOrchestrator(OrchestratorOpts{Store: fs, IDs: &identity.Sequence{Prefix: "a"}})
	startRun(t, o, "backend-dev")

	n, err := o.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("restored = %d, want 0 (run already live)", n)
	}
}
