package http

import "net/http"

// ListHandoffs returns a run's handoff log in creation order.
//
//	GET /api/v1/orchestrations/{id}/handoffs
func (h *Handlers) ListHandoffs(w http.ResponseWriter, r *http.Request) {
	handoffs, err := h.Orchestrator.Handoffs(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "orchestration not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handoffs": handoffs})
}

// AcceptHandoff moves a pending handoff to accepted.
//
//	POST /api/v1/orchestrations/{id}/handoffs/{handoffID}/accept
func (h *Handlers) AcceptHandoff(w http.ResponseWriter, r *http.Request) {
	handoff, err := h.Handoffs.Accept(r.Context(), urlParam(r, "id"), urlParam(r, "handoffID"))
	if err != nil {
		writeDomainError(w, err, "handoff not found")
		return
	}
	writeJSON(w, http.StatusOK, handoff)
}

type handoffReasonRequest struct {
	Reason string `json:"reason"`
}

// RejectHandoff moves a pending handoff to rejected.
//
//	POST /api/v1/orchestrations/{id}/handoffs/{handoffID}/reject
func (h *Handlers) RejectHandoff(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[handoffReasonRequest](w, r)
	if !ok {
		return
	}
	handoff, err := h.Handoffs.Reject(r.Context(), urlParam(r, "id"), urlParam(r, "handoffID"), req.Reason)
	if err != nil {
		writeDomainError(w, err, "handoff not found")
		return
	}
	writeJSON(w, http.StatusOK, handoff)
}

// CompleteHandoff moves an accepted handoff to completed.
//
//	POST /api/v1/orchestrations/{id}/handoffs/{handoffID}/complete
func (h *Handlers) CompleteHandoff(w http.ResponseWriter, r *http.Request) {
	handoff, err := h.Handoffs.Complete(r.Context(), urlParam(r, "id"), urlParam(r, "handoffID"))
	if err != nil {
		writeDomainError(w, err, "handoff not found")
		return
	}
	writeJSON(w, http.StatusOK, handoff)
}

// FailHandoff moves an accepted handoff to failed.
//
//	POST /api/v1/orchestrations/{id}/handoffs/{handoffID}/fail
func (h *Handlers) FailHandoff(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[handoffReasonRequest](w, r)
	if !ok {
		return
	}
	handoff, err := h.Handoffs.Fail(r.Context(), urlParam(r, "id"), urlParam(r, "handoffID"), req.Reason)
	if err != nil {
		writeDomainError(w, err, "handoff not found")
		return
	}
	writeJSON(w, http.StatusOK, handoff)
}

// HandoffMetrics returns timing metrics for one handoff.
//
//	GET /api/v1/orchestrations/{id}/handoffs/{handoffID}/metrics
func (h *Handlers) HandoffMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.Handoffs.Metrics(urlParam(r, "id"), urlParam(r, "handoffID"))
	if err != nil {
		writeDomainError(w, err, "handoff not found")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
