package triage

import "fmt"

// IssueMeta is the subset of issue state the exclusion gate inspects.
type IssueMeta struct {
	State     string   `json:"state"`
	Assignees []string `json:"assignees"`
	Labels    []string `json:"labels"`
}

// Exclusion is the outcome of the gate run before any assignment. Excluded
// issues carry a human-readable reason; they are skipped, not failed.
type Exclusion struct {
	Excluded bool   `json:"excluded"`
	Reason   string `json:"reason,omitempty"`
}

// CheckExclusion applies the assignment gate: closed issues, issues that
// already have an assignee, and issues carrying any caller-supplied
// excluded label are skipped.
func CheckExclusion(meta IssueMeta, excludeLabels []string) Exclusion {
	if meta.State == "closed" {
		return Exclusion{Excluded: true, Reason: "issue is closed"}
	}
	if len(meta.Assignees) > 0 {
		return Exclusion{Excluded: true, Reason: fmt.Sprintf("issue already assigned to %s", meta.Assignees[0])}
	}

	excluded := make(map[string]struct{}, len(excludeLabels))
	for _, l := range excludeLabels {
		excluded[l] = struct{}{}
	}
	for _, l := range meta.Labels {
		if _, ok := excluded[l]; ok {
			return Exclusion{Excluded: true, Reason: fmt.Sprintf("issue carries excluded label %q", l)}
		}
	}

	return Exclusion{}
}
