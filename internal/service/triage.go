package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Bizzy211/heimdall/internal/adapter/otel"
	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/triage"
	"github.com/Bizzy211/heimdall/internal/port/issuestore"
	"github.com/Bizzy211/heimdall/internal/port/registry"
	"github.com/Bizzy211/heimdall/internal/resilience"
)

// CollaboratorError wraps a failure of an external collaborator (the issue
// tracker) so callers can distinguish engine errors from tracker outages.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("issue tracker %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// TriageEngine is the automation facade: analyze issues, gate and apply
// assignments, and fan batches out with bounded concurrency.
type TriageEngine struct {
	issues        issuestore.Store
	loader        registry.Loader
	registryDir   string
	weights       triage.Weights
	threshold     int
	excludeLabels []string
	breaker       *resilience.Breaker
	metrics       *otel.Metrics
	logger        *slog.Logger
	batchLimit    int
}

// TriageEngineOpts carries the collaborators for NewTriageEngine.
type TriageEngineOpts struct {
	Issues        issuestore.Store
	Loader        registry.Loader
	RegistryDir   string
	Weights       triage.Weights
	Threshold     int
	ExcludeLabels []string
	Breaker       *resilience.Breaker
	Metrics       *otel.Metrics
	Logger        *slog.Logger
	BatchLimit    int
}

// NewTriageEngine creates the triage automation service.
func NewTriageEngine(opts TriageEngineOpts) *TriageEngine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BatchLimit < 1 {
		opts.BatchLimit = 8
	}
	if opts.Weights == (triage.Weights{}) {
		opts.Weights = triage.DefaultWeights()
	}
	return &TriageEngine{
		issues:        opts.Issues,
		loader:        opts.Loader,
		registryDir:   opts.RegistryDir,
		weights:       opts.Weights,
		threshold:     opts.Threshold,
		excludeLabels: opts.ExcludeLabels,
		breaker:       opts.Breaker,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		batchLimit:    opts.BatchLimit,
	}
}

// Registry loads the current capability registry snapshot.
func (e *TriageEngine) Registry(ctx context.Context) (*agent.Registry, error) {
	return e.loader.Load(ctx, e.registryDir)
}

// Analyze runs pure triage over caller-supplied text, without touching the
// issue tracker.
func (e *TriageEngine) Analyze(ctx context.Context, in triage.Input) (*triage.Result, error) {
	reg, err := e.loader.Load(ctx, e.registryDir)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	res := triage.Analyze(in, reg, e.weights)
	return &res, nil
}

// Triage fetches the issue and produces a triage recommendation. Nothing is
// written back to the tracker.
func (e *TriageEngine) Triage(ctx context.Context, issueID string) (*triage.Result, error) {
	ctx, span := otel.StartTriageSpan(ctx, issueID)
	defer span.End()
	start := time.Now()

	issue, err := e.fetch(ctx, issueID)
	if err != nil {
		return nil, err
	}

	res, err := e.Analyze(ctx, triage.Input{
		Title:  issue.Title,
		Body:   issue.Body,
		Labels: issue.Labels,
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.IssuesTriaged.Add(ctx, 1)
		e.metrics.TriageDuration.Record(ctx, time.Since(start).Seconds())
	}
	e.logger.Info("issue triaged",
		"issue_id", issueID,
		"suggested_agent", res.SuggestedAgent,
		"confidence", res.Confidence,
		"priority", res.Priority)
	return res, nil
}

// AssignOutcome is the result of one assignment decision. Skips (exclusion
// gate, below-threshold score) are data, not errors.
type AssignOutcome struct {
	IssueID  string         `json:"issue_id"`
	Result   *triage.Result `json:"result,omitempty"`
	Assigned bool           `json:"assigned"`
	DryRun   bool           `json:"dry_run,omitempty"`
	Skipped  string         `json:"skipped,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Assign triages the issue and, if it passes the exclusion gate and the
// score threshold, assigns the suggested agent and applies the inferred
// labels. With dryRun set, the decision is computed but nothing is written.
func (e *TriageEngine) Assign(ctx context.Context, issueID string, dryRun bool) (*AssignOutcome, error) {
	ctx, span := otel.StartAssignSpan(ctx, issueID, dryRun)
	defer span.End()

	issue, err := e.fetch(ctx, issueID)
	if err != nil {
		return nil, err
	}

	out := &AssignOutcome{IssueID: issueID, DryRun: dryRun}

	excl := triage.CheckExclusion(triage.IssueMeta{
		State:     issue.State,
		Assignees: issue.Assignees,
		Labels:    issue.Labels,
	}, e.excludeLabels)
	if excl.Excluded {
		out.Skipped = excl.Reason
		e.skip(ctx, issueID, excl.Reason)
		return out, nil
	}

	res, err := e.Analyze(ctx, triage.Input{
		Title:  issue.Title,
		Body:   issue.Body,
		Labels: issue.Labels,
	})
	if err != nil {
		return nil, err
	}
	out.Result = res
	if e.metrics != nil {
		e.metrics.IssuesTriaged.Add(ctx, 1)
	}

	top := topScore(res)
	if res.SuggestedAgent == "" || top < e.threshold {
		out.Skipped = fmt.Sprintf("top score %d below threshold %d", top, e.threshold)
		e.skip(ctx, issueID, out.Skipped)
		return out, nil
	}

	if dryRun {
		out.Assigned = true
		return out, nil
	}

	if err := e.tracker(ctx, "set assignee", func() error {
		return e.issues.SetAssignee(ctx, issueID, res.SuggestedAgent)
	}); err != nil {
		return nil, err
	}
	if len(res.Labels) > 0 {
		if err := e.tracker(ctx, "add labels", func() error {
			return e.issues.AddLabels(ctx, issueID, res.Labels)
		}); err != nil {
			return nil, err
		}
	}

	out.Assigned = true
	if e.metrics != nil {
		e.metrics.AssignmentsMade.Add(ctx, 1)
	}
	e.logger.Info("issue assigned",
		"issue_id", issueID,
		"agent", res.SuggestedAgent,
		"score", top)
	return out, nil
}

// BatchAssign runs Assign over many issues with bounded concurrency. Each
// item's failure is isolated into its outcome; the batch itself only fails
// on context cancellation.
func (e *TriageEngine) BatchAssign(ctx context.Context, issueIDs []string, dryRun bool) ([]AssignOutcome, error) {
	outcomes := make([]AssignOutcome, len(issueIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchLimit)

	for i, id := range issueIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := e.Assign(ctx, id, dryRun)
			if err != nil {
				outcomes[i] = AssignOutcome{IssueID: id, DryRun: dryRun, Error: err.Error()}
				e.logger.Warn("batch item failed", "issue_id", id, "error", err)
				return nil
			}
			outcomes[i] = *out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("batch assign: %w", err)
	}
	return outcomes, nil
}

// fetch reads the issue through the circuit breaker.
func (e *TriageEngine) fetch(ctx context.Context, issueID string) (*issuestore.Issue, error) {
	if e.issues == nil {
		return nil, fmt.Errorf("no issue tracker configured")
	}
	var issue *issuestore.Issue
	err := e.tracker(ctx, "fetch", func() error {
		var err error
		issue, err = e.issues.Fetch(ctx, issueID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// tracker runs a tracker call through the circuit breaker and wraps
// failures as CollaboratorError. The cause stays reachable via errors.Is,
// including domain.ErrNotFound and resilience.ErrCircuitOpen.
func (e *TriageEngine) tracker(_ context.Context, op string, fn func() error) error {
	call := fn
	if e.breaker != nil {
		call = func() error { return e.breaker.Execute(fn) }
	}
	if err := call(); err != nil {
		return &CollaboratorError{Op: op, Err: err}
	}
	return nil
}

func (e *TriageEngine) skip(ctx context.Context, issueID, reason string) {
	if e.metrics != nil {
		e.metrics.AssignmentsSkipped.Add(ctx, 1)
	}
	e.logger.Info("assignment skipped", "issue_id", issueID, "reason", reason)
}

// topScore returns the best match score, or 0 when there are no matches.
func topScore(res *triage.Result) int {
	if len(res.Matches) == 0 {
		return 0
	}
	return res.Matches[0].Score
}
