package service

import (
	"context"
	"encoding/json"

	"github.com/Bizzy211/heimdall/internal/adapter/ws"
	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/orchestration"
	"github.com/Bizzy211/heimdall/internal/domain/task"
	"github.com/Bizzy211/heimdall/internal/port/messagequeue"
)

// publishTask fans a task transition out to the message queue and the
// websocket hub. Both channels are best-effort: delivery failures are
// logged, never propagated into the state transition that caused them.
func (o *Orchestrator) publishTask(ctx context.Context, subject, orchestrationID string, t *task.Task, errMsg string) {
	o.publish(ctx, subject, messagequeue.TaskEventPayload{
		OrchestrationID: orchestrationID,
		TaskID:          t.ID,
		AgentType:       t.AssignedAgent,
		Status:          string(t.Status),
		Error:           errMsg,
	})
	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventTaskStatus, ws.TaskStatusEvent{
			OrchestrationID: orchestrationID,
			TaskID:          t.ID,
			Status:          string(t.Status),
			AgentType:       t.AssignedAgent,
			Error:           errMsg,
		})
	}
}

// publishHandoff fans a handoff transition out to the queue and the hub.
func (o *Orchestrator) publishHandoff(ctx context.Context, subject, orchestrationID string, h *orchestration.Handoff) {
	contextSize := h.Metrics().ContextSize
	o.publish(ctx, subject, messagequeue.HandoffEventPayload{
		OrchestrationID: orchestrationID,
		HandoffID:       h.ID,
		TaskID:          h.TaskID,
		FromAgent:       h.FromAgent,
		ToAgent:         h.ToAgent,
		Status:          string(h.Status),
		ContextSize:     contextSize,
	})
	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventHandoff, ws.HandoffEvent{
			OrchestrationID: orchestrationID,
			HandoffID:       h.ID,
			TaskID:          h.TaskID,
			FromAgent:       h.FromAgent,
			ToAgent:         h.ToAgent,
			Status:          string(h.Status),
			ContextSize:     contextSize,
		})
	}
}

// broadcastAgent pushes an agent status transition to both channels.
func (o *Orchestrator) broadcastAgent(ctx context.Context, orchestrationID string, a *agent.Agent) {
	o.publish(ctx, messagequeue.SubjectAgentStatus, messagequeue.AgentStatusPayload{
		OrchestrationID: orchestrationID,
		AgentType:       a.Type,
		Status:          string(a.Status),
		CurrentTask:     a.CurrentTask,
	})
	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventAgentStatus, ws.AgentStatusEvent{
			OrchestrationID: orchestrationID,
			AgentType:       a.Type,
			Status:          string(a.Status),
			CurrentTask:     a.CurrentTask,
		})
	}
}

// broadcastStatus pushes an orchestration status transition to the hub.
func (o *Orchestrator) broadcastStatus(ctx context.Context, orchestrationID string, status orchestration.Status) {
	if o.hub == nil {
		return
	}
	o.hub.BroadcastEvent(ctx, ws.EventOrchestrationStatus, ws.OrchestrationStatusEvent{
		OrchestrationID: orchestrationID,
		Status:          string(status),
	})
}

// publish marshals and publishes a payload on the queue. An empty subject
// means the transition is hub-only and nothing is queued.
func (o *Orchestrator) publish(ctx context.Context, subject string, payload any) {
	if o.queue == nil || subject == "" {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := o.queue.Publish(ctx, subject, data); err != nil {
		o.logger.Error("publish queue message", "subject", subject, "error", err)
	}
}
