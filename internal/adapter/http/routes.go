package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Triage
		r.Post("/triage", h.AnalyzeTriage)
		r.Post("/issues/{id}/triage", h.TriageIssue)
		r.Post("/issues/{id}/assign", h.AssignIssue)
		r.Post("/issues/assign/batch", h.BatchAssign)

		// Decomposition and scheduling
		r.Post("/decompose", h.Decompose)
		r.Post("/schedule", h.BuildSchedule)

		// Orchestrations
		r.Post("/orchestrations", h.StartOrchestration)
		r.Get("/orchestrations", h.ListOrchestrations)
		r.Get("/orchestrations/{id}", h.GetOrchestration)
		r.Post("/orchestrations/{id}/plan", h.AddPlan)
		r.Get("/orchestrations/{id}/schedule", h.GetSchedule)
		r.Get("/orchestrations/{id}/ready", h.ListReady)
		r.Get("/orchestrations/{id}/summary", h.GetSummary)
		r.Get("/orchestrations/{id}/stale", h.ListStale)
		r.Post("/orchestrations/{id}/execute", h.ExecuteOrchestration)
		r.Post("/orchestrations/{id}/pause", h.PauseOrchestration)
		r.Post("/orchestrations/{id}/resume", h.ResumeOrchestration)

		// Tasks
		r.Post("/orchestrations/{id}/tasks/{taskID}/assign", h.AssignTask)
		r.Post("/orchestrations/{id}/tasks/{taskID}/complete", h.CompleteTask)
		r.Post("/orchestrations/{id}/tasks/{taskID}/fail", h.FailTask)

		// Agents
		r.Post("/orchestrations/{id}/agents/{agent}/reset", h.ResetAgent)

		// Handoffs
		r.Get("/orchestrations/{id}/handoffs", h.ListHandoffs)
		r.Post("/orchestrations/{id}/handoffs/{handoffID}/accept", h.AcceptHandoff)
		r.Post("/orchestrations/{id}/handoffs/{handoffID}/reject", h.RejectHandoff)
		r.Post("/orchestrations/{id}/handoffs/{handoffID}/complete", h.CompleteHandoff)
		r.Post("/orchestrations/{id}/handoffs/{handoffID}/fail", h.FailHandoff)
		r.Get("/orchestrations/{id}/handoffs/{handoffID}/metrics", h.HandoffMetrics)

		// Automation events
		r.Get("/events", h.ListEvents)
	})
}
