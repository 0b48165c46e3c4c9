package messagequeue

// TaskEventPayload is published on the tasks.* subjects.
type TaskEventPayload struct {
	OrchestrationID string `json:"orchestration_id"`
	TaskID          string `json:"task_id"`
	AgentType       string `json:"agent_type"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
}

// HandoffEventPayload is published on the handoffs.* subjects.
type HandoffEventPayload struct {
	OrchestrationID string `json:"orchestration_id"`
	HandoffID       string `json:"handoff_id"`
	TaskID          string `json:"task_id"`
	FromAgent       string `json:"from_agent"`
	ToAgent         string `json:"to_agent"`
	Status          string `json:"status"`
	ContextSize     int    `json:"context_size"`
}

// AgentStatusPayload is published on agents.status.
type AgentStatusPayload struct {
	OrchestrationID string `json:"orchestration_id"`
	AgentType       string `json:"agent_type"`
	Status          string `json:"status"`
	CurrentTask     string `json:"current_task,omitempty"`
}
