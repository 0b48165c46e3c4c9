package triage

import (
	"strings"
	"testing"
)

func TestCheckExclusion(t *testing.T) {
	exclude := []string{"wontfix", "on-hold"}

	tests := []struct {
		name       string
		meta       IssueMeta
		excluded   bool
		reasonPart string
	}{
		{
			name:     "open unassigned",
			meta:     IssueMeta{State: "open"},
			excluded: false,
		},
		{
			name:       "closed",
			meta:       IssueMeta{State: "closed"},
			excluded:   true,
			reasonPart: "closed",
		},
		{
			name:       "already assigned",
			meta:       IssueMeta{State: "open", Assignees: []string{"backend-dev"}},
			excluded:   true,
			reasonPart: "backend-dev",
		},
		{
			name:       "excluded label",
			meta:       IssueMeta{State: "open", Labels: []string{"bug", "wontfix"}},
			excluded:   true,
			reasonPart: "wontfix",
		},
		{
			name:     "unlisted label",
			meta:     IssueMeta{State: "open", Labels: []string{"bug"}},
			excluded: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckExclusion(tt.meta, exclude)
			if got.Excluded != tt.excluded {
				t.Fatalf("Excluded = %v, want %v", got.Excluded, tt.excluded)
			}
			if tt.reasonPart != "" && !strings.Contains(got.Reason, tt.reasonPart) {
				t.Errorf("Reason = %q, want it to mention %q", got.Reason, tt.reasonPart)
			}
		})
	}
}
