// Package githubis implements the issue store port for GitHub Issues
// using the gh CLI.
package githubis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Bizzy211/heimdall/internal/port/issuestore"
)

const storeName = "github-issues"

// Store implements issuestore.Store for GitHub Issues via the gh CLI.
type Store struct {
	repo string // owner/repo

	// execCommand is swappable for testing.
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates a Store for the given owner/repo reference.
func New(repo string) (*Store, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}
	return &Store{repo: repo, execCommand: exec.CommandContext}, nil
}

func (s *Store) Name() string { return storeName }

// ghIssue mirrors the JSON output of `gh issue list/view --json`.
type ghIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Labels    []ghLabel `json:"labels"`
	Assignees []ghUser  `json:"assignees"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghUser struct {
	Login string `json:"login"`
}

// Fetch returns a single issue by number.
func (s *Store) Fetch(ctx context.Context, id string) (*issuestore.Issue, error) {
	out, err := s.run(ctx, "issue", "view", id,
		"--repo", s.repo,
		"--json", "number,title,body,state,labels,assignees",
	)
	if err != nil {
		return nil, err
	}

	var gi ghIssue
	if err := json.Unmarshal(out, &gi); err != nil {
		return nil, fmt.Errorf("parse gh output: %w", err)
	}

	issue := toIssue(&gi)
	return &issue, nil
}

// ListOpen returns all open issues in the repository.
func (s *Store) ListOpen(ctx context.Context) ([]issuestore.Issue, error) {
	out, err := s.run(ctx, "issue", "list",
		"--repo", s.repo,
		"--state", "open",
		"--json", "number,title,body,state,labels,assignees",
		"--limit", "100",
	)
	if err != nil {
		return nil, err
	}

	var ghIssues []ghIssue
	if err := json.Unmarshal(out, &ghIssues); err != nil {
		return nil, fmt.Errorf("parse gh output: %w", err)
	}

	issues := make([]issuestore.Issue, 0, len(ghIssues))
	for i := range ghIssues {
		issues = append(issues, toIssue(&ghIssues[i]))
	}
	return issues, nil
}

// SetAssignee assigns the issue to the named agent account.
func (s *Store) SetAssignee(ctx context.Context, id, agent string) error {
	_, err := s.run(ctx, "issue", "edit", id, "--repo", s.repo, "--add-assignee", agent)
	return err
}

// AddLabels attaches labels to the issue.
func (s *Store) AddLabels(ctx context.Context, id string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	_, err := s.run(ctx, "issue", "edit", id, "--repo", s.repo, "--add-label", strings.Join(labels, ","))
	return err
}

// Close closes the issue.
func (s *Store) Close(ctx context.Context, id string) error {
	_, err := s.run(ctx, "issue", "close", id, "--repo", s.repo)
	return err
}

// LinkPR references the pull request from an issue comment.
func (s *Store) LinkPR(ctx context.Context, issueID, prID string) error {
	body := fmt.Sprintf("Linked pull request: #%s", prID)
	_, err := s.run(ctx, "issue", "comment", issueID, "--repo", s.repo, "--body", body)
	return err
}

func (s *Store) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := s.execCommand(ctx, "gh", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("gh %s: %s: %w", strings.Join(args[:2], " "), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

func toIssue(gi *ghIssue) issuestore.Issue {
	labels := make([]string, 0, len(gi.Labels))
	for _, l := range gi.Labels {
		labels = append(labels, l.Name)
	}

	assignees := make([]string, 0, len(gi.Assignees))
	for _, u := range gi.Assignees {
		assignees = append(assignees, u.Login)
	}

	return issuestore.Issue{
		ID:        fmt.Sprintf("%d", gi.Number),
		Number:    gi.Number,
		Title:     gi.Title,
		Body:      gi.Body,
		State:     strings.ToLower(gi.State),
		Labels:    labels,
		Assignees: assignees,
	}
}

func validateRepo(ref string) error {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid repo ref %q: expected owner/repo", ref)
	}
	return nil
}
