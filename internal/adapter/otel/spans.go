package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "heimdall"

// StartTriageSpan starts a span covering the triage of one issue.
func StartTriageSpan(ctx context.Context, issueID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
}

// StartAssignSpan starts a span covering an assignment decision.
func StartAssignSpan(ctx context.Context, issueID string, dryRun bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "assign",
		trace.WithAttributes(
			attribute.String("issue.id", issueID),
			attribute.Bool("dry_run", dryRun),
		),
	)
}

// StartLevelSpan starts a span covering one parallel execution level.
func StartLevelSpan(ctx context.Context, orchestrationID string, level, width int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "level",
		trace.WithAttributes(
			attribute.String("orchestration.id", orchestrationID),
			attribute.Int("level", level),
			attribute.Int("width", width),
		),
	)
}
