package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "heimdall"

// Metrics holds all Heimdall metric instruments.
type Metrics struct {
	IssuesTriaged      metric.Int64Counter
	AssignmentsMade    metric.Int64Counter
	AssignmentsSkipped metric.Int64Counter
	TasksCompleted     metric.Int64Counter
	TasksFailed        metric.Int64Counter
	HandoffsCreated    metric.Int64Counter
	TriageDuration     metric.Float64Histogram
	HandoffLatency     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.IssuesTriaged, err = meter.Int64Counter("heimdall.issues.triaged",
		metric.WithDescription("Number of issues triaged"))
	if err != nil {
		return nil, err
	}

	m.AssignmentsMade, err = meter.Int64Counter("heimdall.assignments.made",
		metric.WithDescription("Number of issues assigned to an agent"))
	if err != nil {
		return nil, err
	}

	m.AssignmentsSkipped, err = meter.Int64Counter("heimdall.assignments.skipped",
		metric.WithDescription("Number of issues skipped (excluded or below threshold)"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("heimdall.tasks.completed",
		metric.WithDescription("Number of tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("heimdall.tasks.failed",
		metric.WithDescription("Number of tasks failed"))
	if err != nil {
		return nil, err
	}

	m.HandoffsCreated, err = meter.Int64Counter("heimdall.handoffs.created",
		metric.WithDescription("Number of handoff records created"))
	if err != nil {
		return nil, err
	}

	m.TriageDuration, err = meter.Float64Histogram("heimdall.triage.duration_seconds",
		metric.WithDescription("Triage duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.HandoffLatency, err = meter.Float64Histogram("heimdall.handoff.ack_seconds",
		metric.WithDescription("Time from handoff creation to acknowledgment in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
