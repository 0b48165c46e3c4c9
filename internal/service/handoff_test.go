package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Bizzy211/heimdall/internal/domain"
	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// openHandoff drives a run to the point where a pending handoff exists.
func openHandoff(t *testing.T, o *Orchestrator) (runID, handoffID string) {
	t.Helper()
	ctx := context.Background()

	runID = startRun(t, o, "backend-dev", "frontend-dev")
	created := addTasks(t, o, runID,
		decompose.Subtask{Title: "api", Agent: "backend-dev", Priority: task.PriorityMedium},
		decompose.Subtask{Title: "ui", Agent: "frontend-dev", Priority: task.PriorityMedium, DependsOn: []int{0}},
	)
	if err := o.Assign(ctx, runID, created[0].ID, "backend-dev"); err != nil {
		t.Fatal(err)
	}
	h, err := o.Complete(ctx, runID, created[0].ID, map[string]any{"spec": "v1"}, "frontend-dev")
	if err != nil {
		t.Fatal(err)
	}
	return runID, h.ID
}

func TestHandoffAcceptComplete(t *testing.T) {
	o := newTestOrchestrator()
	c := NewHandoffCoordinator(o, nil, nil)
	runID, handoffID := openHandoff(t, o)
	ctx := context.Background()

	h, err := c.Accept(ctx, runID, handoffID)
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != orchestration.HandoffAccepted {
		t.Fatalf("status = %s, want accepted", h.Status)
	}

	h, err = c.Complete(ctx, runID, handoffID)
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != orchestration.HandoffCompleted {
		t.Fatalf("status = %s, want completed", h.Status)
	}
}

func TestHandoffRejectIsTerminal(t *testing.T) {
	o := newTestOrchestrator()
	c := NewHandoffCoordinator(o, nil, nil)
	runID, handoffID := openHandoff(t, o)
	ctx := context.Background()

	h, err := c.Reject(ctx, runID, handoffID, "wrong specialist")
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != orchestration.HandoffRejected || h.Reason != "wrong specialist" {
		t.Fatalf("handoff = %+v, want rejected with reason", h)
	}

	if _, err := c.Accept(ctx, runID, handoffID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("accept after reject error = %v, want ErrConflict", err)
	}
}

func TestHandoffCompleteRequiresAccept(t *testing.T) {
	o := newTestOrchestrator()
	c := NewHandoffCoordinator(o, nil, nil)
	runID, handoffID := openHandoff(t, o)

	if _, err := c.Complete(context.Background(), runID, handoffID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict (pending, not accepted)", err)
	}
}

func TestHandoffMetricsEndpointData(t *testing.T) {
	o := newTestOrchestrator()
	c := NewHandoffCoordinator(o, nil, nil)
	runID, handoffID := openHandoff(t, o)
	ctx := context.Background()

	if _, err := c.Accept(ctx, runID, handoffID); err != nil {
		t.Fatal(err)
	}
	m, err := c.Metrics(runID, handoffID)
	if err != nil {
		t.Fatal(err)
	}
	if m.ContextSize == 0 {
		t.Error("context size = 0, want size of the carried payload")
	}
}

func TestHandoffUnknownID(t *testing.T) {
	o := newTestOrchestrator()
	c := NewHandoffCoordinator(o, nil, nil)
	runID, _ := openHandoff(t, o)

	if _, err := c.Accept(context.Background(), runID, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
