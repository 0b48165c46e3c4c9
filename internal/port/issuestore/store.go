// Package issuestore defines the port interface for issue-tracking
// backends (GitHub Issues, Gitea, etc.). The engine never talks to a
// concrete tracker directly.
package issuestore

import (
	"context"
	"errors"
)

// ErrNotSupported is returned when a backend does not support the
// requested operation.
var ErrNotSupported = errors.New("operation not supported by this issue store")

// Issue represents a unit of work held by the tracker.
type Issue struct {
	ID        string   `json:"id"`
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	State     string   `json:"state"` // "open" or "closed"
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees"`
}

// Store is the port interface for issue-tracking backends.
type Store interface {
	// Name returns the backend identifier (e.g. "github-issues").
	Name() string

	// Fetch returns a single issue by ID. Unknown IDs yield
	// domain.ErrNotFound.
	Fetch(ctx context.Context, id string) (*Issue, error)

	// ListOpen returns all open issues.
	ListOpen(ctx context.Context) ([]Issue, error)

	// SetAssignee assigns the issue to the named agent.
	SetAssignee(ctx context.Context, id, agent string) error

	// AddLabels attaches labels to the issue.
	AddLabels(ctx context.Context, id string, labels []string) error

	// Close closes the issue.
	Close(ctx context.Context, id string) error

	// LinkPR links a pull request to the issue. Returns ErrNotSupported
	// if the backend has no PR linking.
	LinkPR(ctx context.Context, issueID, prID string) error
}
