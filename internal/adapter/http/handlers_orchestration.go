package http

import (
	"net/http"
	"time"

	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/domain/task"
	"github.com/Bizzy211/heimdall/internal/service"
)

type startOrchestrationRequest struct {
	ProjectRef string   `json:"project_ref"`
	AgentTypes []string `json:"agent_types"`
}

// StartOrchestration creates a new orchestration run.
//
//	POST /api/v1/orchestrations
func (h *Handlers) StartOrchestration(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startOrchestrationRequest](w, r)
	if !ok {
		return
	}
	if len(req.AgentTypes) == 0 {
		writeError(w, http.StatusBadRequest, "agent_types is required")
		return
	}

	reg, err := h.Triage.Registry(r.Context())
	if err != nil {
		writeDomainError(w, err, "registry not found")
		return
	}

	rec, err := h.Orchestrator.Start(r.Context(), req.ProjectRef, req.AgentTypes, reg)
	if err != nil {
		writeDomainError(w, err, "orchestration not created")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListOrchestrations returns records for all live runs, newest first.
//
//	GET /api/v1/orchestrations
func (h *Handlers) ListOrchestrations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"orchestrations": h.Orchestrator.List()})
}

// GetOrchestration returns one run's record, agents, and tasks.
//
//	GET /api/v1/orchestrations/{id}
func (h *Handlers) GetOrchestration(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	rec, agents, tasks, err := h.Orchestrator.Get(id)
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orchestration": rec,
		"agents":        agents,
		"tasks":         tasks,
	})
}

type addPlanRequest struct {
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	Priority task.Priority `json:"priority,omitempty"`
}

// AddPlan decomposes a requirement and adds the resulting subtasks to the
// run.
//
//	POST /api/v1/orchestrations/{id}/plan
func (h *Handlers) AddPlan(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[addPlanRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Title, "title") {
		return
	}
	if req.Priority == "" {
		req.Priority = task.PriorityMedium
	}

	plan := decompose.Decompose(req.Title, req.Body, req.Priority, h.Roster)
	created, err := h.Orchestrator.AddPlan(r.Context(), id, plan)
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tasks":            created,
		"team_composition": plan.TeamComposition,
	})
}

// GetSchedule returns the run's execution plan.
//
//	GET /api/v1/orchestrations/{id}/schedule
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	plan, err := h.Orchestrator.Plan(id)
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ListReady returns the tasks currently eligible for assignment.
//
//	GET /api/v1/orchestrations/{id}/ready
func (h *Handlers) ListReady(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	ready, err := h.Orchestrator.Ready(id)
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": ready})
}

type assignTaskRequest struct {
	Agent string `json:"agent"`
}

// AssignTask hands a task to an idle agent.
//
//	POST /api/v1/orchestrations/{id}/tasks/{taskID}/assign
func (h *Handlers) AssignTask(w http.ResponseWriter, r *http.Request) {
	id, taskID := urlParam(r, "id"), urlParam(r, "taskID")
	req, ok := readJSON[assignTaskRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Agent, "agent") {
		return
	}

	if err := h.Orchestrator.Assign(r.Context(), id, taskID, req.Agent); err != nil {
		writeDomainError(w, err, "task or agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type completeTaskRequest struct {
	Result    map[string]any `json:"result,omitempty"`
	NextAgent string         `json:"next_agent,omitempty"`
}

// CompleteTask marks a task done and optionally opens a handoff toward the
// named next agent.
//
//	POST /api/v1/orchestrations/{id}/tasks/{taskID}/complete
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, taskID := urlParam(r, "id"), urlParam(r, "taskID")
	req, ok := readJSON[completeTaskRequest](w, r)
	if !ok {
		return
	}

	handoff, err := h.Orchestrator.Complete(r.Context(), id, taskID, req.Result, req.NextAgent)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if handoff == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, handoff)
}

type failTaskRequest struct {
	Reason string `json:"reason"`
}

// FailTask marks a task blocked and its agent failed.
//
//	POST /api/v1/orchestrations/{id}/tasks/{taskID}/fail
func (h *Handlers) FailTask(w http.ResponseWriter, r *http.Request) {
	id, taskID := urlParam(r, "id"), urlParam(r, "taskID")
	req, ok := readJSON[failTaskRequest](w, r)
	if !ok {
		return
	}

	if err := h.Orchestrator.Fail(r.Context(), id, taskID, req.Reason); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetAgent returns a failed or waiting agent to idle.
//
//	POST /api/v1/orchestrations/{id}/agents/{agent}/reset
func (h *Handlers) ResetAgent(w http.ResponseWriter, r *http.Request) {
	id, agentType := urlParam(r, "id"), urlParam(r, "agent")
	if err := h.Orchestrator.ResetAgent(r.Context(), id, agentType); err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PauseOrchestration suspends a running orchestration.
//
//	POST /api/v1/orchestrations/{id}/pause
func (h *Handlers) PauseOrchestration(w http.ResponseWriter, r *http.Request) {
	if err := h.Orchestrator.Pause(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResumeOrchestration returns a paused orchestration to running.
//
//	POST /api/v1/orchestrations/{id}/resume
func (h *Handlers) ResumeOrchestration(w http.ResponseWriter, r *http.Request) {
	if err := h.Orchestrator.Resume(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary aggregates the run outcome for session-end reporting.
//
//	GET /api/v1/orchestrations/{id}/summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Orchestrator.Summary(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ExecuteOrchestration advances the run's whole plan level by level,
// completing tasks and opening handoffs along the dependency chain.
//
//	POST /api/v1/orchestrations/{id}/execute
func (h *Handlers) ExecuteOrchestration(w http.ResponseWriter, r *http.Request) {
	if h.Executor == nil {
		writeError(w, http.StatusServiceUnavailable, "execution not configured")
		return
	}
	id := urlParam(r, "id")
	if err := h.Executor.Run(r.Context(), id, service.ChainRunner(h.Orchestrator, id)); err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}

	summary, err := h.Orchestrator.Summary(id)
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListStale reports agents working longer than max_age. The configured
// stale window applies when the query names none.
//
//	GET /api/v1/orchestrations/{id}/stale?max_age=30m
func (h *Handlers) ListStale(w http.ResponseWriter, r *http.Request) {
	maxAge := h.StaleAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid max_age duration")
			return
		}
		maxAge = d
	}

	stale, err := h.Orchestrator.Stale(urlParam(r, "id"), maxAge)
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": stale})
}
