package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Bizzy211/heimdall/internal/adapter/otel"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/port/messagequeue"
)

// HandoffCoordinator drives handoff records through their lifecycle:
// pending -> accepted -> completed/failed, or pending -> rejected. It works
// against the orchestrator's live state so the agent and task views stay
// consistent with the handoff log.
type HandoffCoordinator struct {
	orch    *Orchestrator
	metrics *otel.Metrics
	logger  *slog.Logger
}

// NewHandoffCoordinator creates the handoff lifecycle service. Metrics may
// be nil.
func NewHandoffCoordinator(orch *Orchestrator, metrics *otel.Metrics, logger *slog.Logger) *HandoffCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandoffCoordinator{orch: orch, metrics: metrics, logger: logger}
}

// Accept moves a pending handoff to accepted on behalf of the target agent.
func (c *HandoffCoordinator) Accept(ctx context.Context, orchestrationID, handoffID string) (*orchestration.Handoff, error) {
	h, err := c.transition(ctx, orchestrationID, handoffID, func(h *orchestration.Handoff) error {
		return h.Accept(c.orch.now())
	})
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.HandoffLatency.Record(ctx, h.Metrics().TimeToAcknowledge.Seconds())
	}
	return h, nil
}

// Reject moves a pending handoff to rejected with the given reason. The
// task stays with the source agent's output; nothing transfers.
func (c *HandoffCoordinator) Reject(ctx context.Context, orchestrationID, handoffID, reason string) (*orchestration.Handoff, error) {
	return c.transition(ctx, orchestrationID, handoffID, func(h *orchestration.Handoff) error {
		return h.Reject(reason, c.orch.now())
	})
}

// Complete moves an accepted handoff to completed.
func (c *HandoffCoordinator) Complete(ctx context.Context, orchestrationID, handoffID string) (*orchestration.Handoff, error) {
	return c.transition(ctx, orchestrationID, handoffID, func(h *orchestration.Handoff) error {
		return h.Complete(c.orch.now())
	})
}

// Fail moves an accepted handoff to failed with the given reason.
func (c *HandoffCoordinator) Fail(ctx context.Context, orchestrationID, handoffID, reason string) (*orchestration.Handoff, error) {
	return c.transition(ctx, orchestrationID, handoffID, func(h *orchestration.Handoff) error {
		return h.Fail(reason, c.orch.now())
	})
}

// Metrics returns the timing metrics derived from a handoff record.
func (c *HandoffCoordinator) Metrics(orchestrationID, handoffID string) (*orchestration.Metrics, error) {
	o := c.orch
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	h, err := o.handoffByID(run, handoffID)
	if err != nil {
		return nil, err
	}
	m := h.Metrics()
	return &m, nil
}

// transition applies fn to the handoff under the orchestrator lock and
// fans the new state out to the store, queue and hub.
func (c *HandoffCoordinator) transition(ctx context.Context, orchestrationID, handoffID string, fn func(*orchestration.Handoff) error) (*orchestration.Handoff, error) {
	o := c.orch
	o.mu.Lock()
	defer o.mu.Unlock()

	run, err := o.locked(orchestrationID)
	if err != nil {
		return nil, err
	}
	h, err := o.handoffByID(run, handoffID)
	if err != nil {
		return nil, err
	}
	if err := fn(h); err != nil {
		return nil, fmt.Errorf("handoff transition: %w", err)
	}

	if o.store != nil {
		if err := o.store.UpdateHandoff(ctx, h); err != nil {
			c.logger.Error("persist handoff", "handoff_id", h.ID, "error", err)
		}
	}
	// Terminal transitions close the handoff on the queue; intermediate
	// ones (accept) only reach the websocket hub.
	subject := ""
	if h.Status.IsTerminal() {
		subject = messagequeue.SubjectHandoffClosed
	}
	o.publishHandoff(ctx, subject, orchestrationID, h)
	c.logger.Info("handoff transitioned",
		"orchestration_id", orchestrationID,
		"handoff_id", h.ID,
		"status", h.Status)

	out := *h
	return &out, nil
}
