package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventOrchestrationStatus = "orchestration.status"
	EventTaskStatus          = "task.status"
	EventAgentStatus         = "agent.status"
	EventHandoff             = "handoff"
)

// OrchestrationStatusEvent is broadcast when an orchestration run changes
// state.
type OrchestrationStatusEvent struct {
	OrchestrationID string `json:"orchestration_id"`
	Status          string `json:"status"`
}

// TaskStatusEvent is broadcast when a task's status changes.
type TaskStatusEvent struct {
	OrchestrationID string `json:"orchestration_id"`
	TaskID          string `json:"task_id"`
	Status          string `json:"status"`
	AgentType       string `json:"agent_type,omitempty"`
	Error           string `json:"error,omitempty"`
}

// AgentStatusEvent is broadcast when an agent's status changes.
type AgentStatusEvent struct {
	OrchestrationID string `json:"orchestration_id"`
	AgentType       string `json:"agent_type"`
	Status          string `json:"status"`
	CurrentTask     string `json:"current_task,omitempty"`
}

// HandoffEvent is broadcast when a handoff record transitions.
type HandoffEvent struct {
	OrchestrationID string `json:"orchestration_id"`
	HandoffID       string `json:"handoff_id"`
	TaskID          string `json:"task_id"`
	FromAgent       string `json:"from_agent"`
	ToAgent         string `json:"to_agent"`
	Status          string `json:"status"`
	ContextSize     int    `json:"context_size"`
}

// BroadcastEvent marshals a typed event and broadcasts it to all clients.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{Type: eventType, Payload: json.RawMessage(data)})
}
