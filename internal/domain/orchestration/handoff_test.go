package orchestration

import (
	"errors"
	"testing"
	"time"

	"github.com/Bizzy211/heimdall/internal/domain"
)

func newTestHandoff(t *testing.T) *Handoff {
	t.Helper()
	h, err := NewHandoff("h1", "ctx1", "backend-dev", "frontend-dev", "t1",
		map[string]any{"api_spec": "/tmp/spec.json"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestNewHandoffValidation(t *testing.T) {
	now := time.Now()

	if _, err := NewHandoff("h", "c", "a", "a", "t1", nil, now); !errors.Is(err, ErrHandoffSameAgent) {
		t.Errorf("same agent error = %v, want ErrHandoffSameAgent", err)
	}
	if _, err := NewHandoff("h", "c", "a", "b", "", nil, now); !errors.Is(err, ErrHandoffNoTask) {
		t.Errorf("no task error = %v, want ErrHandoffNoTask", err)
	}
}

func TestNewHandoffPreservesContext(t *testing.T) {
	h := newTestHandoff(t)
	if h.Status != HandoffPending {
		t.Errorf("status = %s, want pending", h.Status)
	}
	if !h.ContextPreserved {
		t.Error("context preserved must hold by construction")
	}
}

func TestHandoffLifecycle(t *testing.T) {
	now := time.Now()
	h := newTestHandoff(t)

	if err := h.Accept(now.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if h.Status != HandoffAccepted {
		t.Fatalf("status = %s, want accepted", h.Status)
	}

	if err := h.Complete(now.Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	if h.Status != HandoffCompleted {
		t.Fatalf("status = %s, want completed", h.Status)
	}
	if !h.Status.IsTerminal() {
		t.Error("completed must be terminal")
	}
}

func TestHandoffForwardOnlyTransitions(t *testing.T) {
	now := time.Now()

	t.Run("double accept", func(t *testing.T) {
		h := newTestHandoff(t)
		_ = h.Accept(now)
		if err := h.Accept(now); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("complete without accept", func(t *testing.T) {
		h := newTestHandoff(t)
		if err := h.Complete(now); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("reject after accept", func(t *testing.T) {
		h := newTestHandoff(t)
		_ = h.Accept(now)
		if err := h.Reject("too late", now); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("accept after reject", func(t *testing.T) {
		h := newTestHandoff(t)
		_ = h.Reject("wrong agent", now)
		if err := h.Accept(now); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
		if h.Reason != "wrong agent" {
			t.Errorf("reason = %q, want preserved", h.Reason)
		}
	})
}

func TestHandoffMetrics(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	h, err := NewHandoff("h1", "c1", "a", "b", "t1", map[string]any{"k": "v"}, start)
	if err != nil {
		t.Fatal(err)
	}

	// Pending: no durations yet, but context size is known.
	m := h.Metrics()
	if m.TimeToAcknowledge != 0 || m.TimeToComplete != 0 {
		t.Errorf("pending metrics = %+v, want zero durations", m)
	}
	if m.ContextSize != len(`{"k":"v"}`) {
		t.Errorf("context size = %d, want %d", m.ContextSize, len(`{"k":"v"}`))
	}

	_ = h.Accept(start.Add(30 * time.Second))
	_ = h.Complete(start.Add(5 * time.Minute))

	m = h.Metrics()
	if m.TimeToAcknowledge != 30*time.Second {
		t.Errorf("ack time = %s, want 30s", m.TimeToAcknowledge)
	}
	if m.TimeToComplete != 5*time.Minute {
		t.Errorf("complete time = %s, want 5m", m.TimeToComplete)
	}
}
