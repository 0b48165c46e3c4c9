package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/domain/schedule"
	"github.com/Bizzy211/heimdall/internal/domain/task"
	"github.com/Bizzy211/heimdall/internal/domain/triage"
	"github.com/Bizzy211/heimdall/internal/service"
)

// Handlers holds the HTTP handler dependencies. StaleAge is the default
// window for the stale-agent report when the request does not name one.
type Handlers struct {
	Triage       *service.TriageEngine
	Orchestrator *service.Orchestrator
	Handoffs     *service.HandoffCoordinator
	Executor     *service.Executor
	Roster       decompose.Roster
	StaleAge     time.Duration
}

// AnalyzeTriage runs pure triage over caller-supplied text.
//
//	POST /api/v1/triage
func (h *Handlers) AnalyzeTriage(w http.ResponseWriter, r *http.Request) {
	in, ok := readJSON[triage.Input](w, r)
	if !ok {
		return
	}
	if !requireField(w, in.Title, "title") {
		return
	}

	res, err := h.Triage.Analyze(r.Context(), in)
	if err != nil {
		writeDomainError(w, err, "registry not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TriageIssue fetches an issue from the tracker and triages it.
//
//	POST /api/v1/issues/{id}/triage
func (h *Handlers) TriageIssue(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	res, err := h.Triage.Triage(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "issue not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AssignIssue triages and assigns one issue. ?dry_run=true computes the
// decision without writing to the tracker.
//
//	POST /api/v1/issues/{id}/assign
func (h *Handlers) AssignIssue(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	out, err := h.Triage.Assign(r.Context(), id, dryRun)
	if err != nil {
		writeDomainError(w, err, "issue not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type batchAssignRequest struct {
	IssueIDs []string `json:"issue_ids"`
	DryRun   bool     `json:"dry_run,omitempty"`
}

// BatchAssign triages and assigns many issues with bounded concurrency.
// Per-issue failures land in the corresponding outcome, not the response
// status.
//
//	POST /api/v1/issues/assign/batch
func (h *Handlers) BatchAssign(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[batchAssignRequest](w, r)
	if !ok {
		return
	}
	if len(req.IssueIDs) == 0 {
		writeError(w, http.StatusBadRequest, "issue_ids is required")
		return
	}

	outcomes, err := h.Triage.BatchAssign(r.Context(), req.IssueIDs, req.DryRun)
	if err != nil {
		writeDomainError(w, err, "batch failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

type decomposeRequest struct {
	Title    string        `json:"title"`
	Body     string        `json:"body"`
	Priority task.Priority `json:"priority,omitempty"`
}

// Decompose expands a requirement into a subtask plan.
//
//	POST /api/v1/decompose
func (h *Handlers) Decompose(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[decomposeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Title, "title") {
		return
	}
	if req.Priority == "" {
		req.Priority = task.PriorityMedium
	}
	if !req.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "unknown priority "+string(req.Priority))
		return
	}

	plan := decompose.Decompose(req.Title, req.Body, req.Priority, h.Roster)
	writeJSON(w, http.StatusOK, plan)
}

type scheduleRequest struct {
	Tasks []task.Task `json:"tasks"`
}

// BuildSchedule validates a task graph and returns its execution plan.
//
//	POST /api/v1/schedule
func (h *Handlers) BuildSchedule(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[scheduleRequest](w, r)
	if !ok {
		return
	}
	if len(req.Tasks) == 0 {
		writeError(w, http.StatusBadRequest, "tasks is required")
		return
	}

	plan, err := schedule.Build(req.Tasks)
	if err != nil {
		writeDomainError(w, err, "unknown task dependency")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ListEvents returns the retained automation events, oldest first.
//
//	GET /api/v1/events
func (h *Handlers) ListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.Orchestrator.Events()})
}
