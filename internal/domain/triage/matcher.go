package triage

import (
	"math"
	"sort"
	"strings"

	"github.com/Bizzy211/heimdall/internal/domain/agent"
)

// Confidence buckets a numeric match score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Weights holds the scoring constants. The defaults reproduce the observed
// reference behavior; they are a fixed, testable contract, not a tuned model.
type Weights struct {
	KeywordWeight       float64 `yaml:"keyword_weight"`
	SpecializationBonus float64 `yaml:"specialization_bonus"`
	HighThreshold       int     `yaml:"high_threshold"`
	MediumThreshold     int     `yaml:"medium_threshold"`
}

// DefaultWeights returns the documented scoring constants.
func DefaultWeights() Weights {
	return Weights{
		KeywordWeight:       70,
		SpecializationBonus: 15,
		HighThreshold:       70,
		MediumThreshold:     40,
	}
}

// Bucket maps a score to its confidence bucket.
func (w Weights) Bucket(score int) Confidence {
	switch {
	case score >= w.HighThreshold:
		return ConfidenceHigh
	case score >= w.MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Match is one agent's score against an extracted keyword set. Matches are
// derived per triage call and never stored.
type Match struct {
	AgentName       string     `json:"agent_name"`
	Score           int        `json:"score"`
	MatchedKeywords []string   `json:"matched_keywords"`
	Confidence      Confidence `json:"confidence"`
}

// MatchAgents scores every agent in the registry against the extracted
// keywords and returns matches sorted by descending score. The sort is
// stable: equal scores keep registry iteration order. A zero-keyword input
// yields score 0 for all agents.
func MatchAgents(keywords []string, reg *agent.Registry, w Weights) []Match {
	matches := make([]Match, 0, reg.Len())

	for _, name := range reg.Names() {
		capability, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		matches = append(matches, scoreAgent(name, keywords, capability, w))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// scoreAgent computes one agent's match. The score is
//
//	min(100, round(kw * |matched|/max(|extracted|,1) + bonus*[specialization overlap]))
//
// with kw=70 and bonus=15 under the default weights.
func scoreAgent(name string, keywords []string, c agent.Capability, w Weights) Match {
	m := Match{AgentName: name}

	for _, kw := range keywords {
		if matchesAny(kw, c.Keywords) {
			m.MatchedKeywords = append(m.MatchedKeywords, kw)
		}
	}

	denom := float64(len(keywords))
	if denom < 1 {
		denom = 1
	}
	raw := w.KeywordWeight * float64(len(m.MatchedKeywords)) / denom
	if overlaps(keywords, c.Specializations) {
		raw += w.SpecializationBonus
	}

	m.Score = int(math.Round(raw))
	if m.Score > 100 {
		m.Score = 100
	}
	m.Confidence = w.Bucket(m.Score)
	return m
}

// matchesAny reports whether kw matches any candidate under bidirectional
// substring containment: a keyword matches if either string contains the
// other. This intentionally lets partial and compound forms match, e.g.
// "react" matches "reactjs".
func matchesAny(kw string, candidates []string) bool {
	for _, cand := range candidates {
		cand = strings.ToLower(cand)
		if strings.Contains(cand, kw) || strings.Contains(kw, cand) {
			return true
		}
	}
	return false
}

// overlaps reports whether any extracted keyword matches any specialization.
func overlaps(keywords, specializations []string) bool {
	for _, kw := range keywords {
		if matchesAny(kw, specializations) {
			return true
		}
	}
	return false
}
