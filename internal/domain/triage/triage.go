package triage

import (
	"strings"

	"github.com/Bizzy211/heimdall/internal/domain/agent"
	"github.com/Bizzy211/heimdall/internal/domain/task"
)

// Input is the text content of a unit of work to triage.
type Input struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// text joins all input fields into the string fed to keyword extraction.
func (in Input) text() string {
	return in.Title + "\n" + in.Body + "\n" + strings.Join(in.Labels, " ")
}

// Result is an actionable triage recommendation. It is a pure function of
// the input text and the registry snapshot; calling Analyze twice with the
// same arguments yields the same result.
type Result struct {
	Priority             task.Priority `json:"priority"`
	Labels               []string      `json:"labels"`
	SuggestedAgent       string        `json:"suggested_agent"`
	Confidence           Confidence    `json:"confidence"`
	Complexity           int           `json:"complexity"`
	EstimatedHours       int           `json:"estimated_hours"`
	RequiresManualReview bool          `json:"requires_manual_review"`
	Keywords             []string      `json:"keywords"`
	Matches              []Match       `json:"matches"`
}

// priorityRules are evaluated in order; the first matching rule wins, so
// "critical but minor" classifies as critical.
var priorityRules = []struct {
	terms    []string
	priority task.Priority
}{
	{[]string{"critical", "urgent", "security"}, task.PriorityCritical},
	{[]string{"important", "high priority"}, task.PriorityHigh},
	{[]string{"minor", "low priority"}, task.PriorityLow},
}

// InferPriority classifies text by the fixed rule order above, defaulting
// to medium.
func InferPriority(text string) task.Priority {
	lowered := strings.ToLower(text)
	for _, rule := range priorityRules {
		for _, term := range rule.terms {
			if strings.Contains(lowered, term) {
				return rule.priority
			}
		}
	}
	return task.PriorityMedium
}

// EstimateComplexity scores 1-10 from body length and signal words:
// base 5, +2 for bodies over 1000 chars, -2 under 100, +1 "refactor",
// -2 "simple"/"easy", +2 "complex"/"difficult".
func EstimateComplexity(title, body string) int {
	c := 5
	switch {
	case len(body) > 1000:
		c += 2
	case len(body) < 100:
		c -= 2
	}

	lowered := strings.ToLower(title + " " + body)
	if strings.Contains(lowered, "refactor") {
		c++
	}
	if strings.Contains(lowered, "simple") || strings.Contains(lowered, "easy") {
		c -= 2
	}
	if strings.Contains(lowered, "complex") || strings.Contains(lowered, "difficult") {
		c += 2
	}

	if c < 1 {
		c = 1
	}
	if c > 10 {
		c = 10
	}
	return c
}

// categoryRank fixes the precedence used to break score ties between agents
// of different categories: security > documentation > frontend >
// backend/database > testing > bug > performance. The ordering is a
// deliberate contract to avoid ambiguous ties.
func categoryRank(agentName string) int {
	name := strings.ToLower(agentName)
	switch {
	case strings.Contains(name, "security"):
		return 0
	case strings.Contains(name, "doc"):
		return 1
	case strings.Contains(name, "frontend"), strings.Contains(name, "ui"),
		strings.Contains(name, "dashboard"):
		return 2
	case strings.Contains(name, "backend"):
		return 3
	case strings.Contains(name, "db"), strings.Contains(name, "data"):
		return 4
	case strings.Contains(name, "test"):
		return 5
	case strings.Contains(name, "debug"):
		return 6
	case strings.Contains(name, "perf"):
		return 7
	}
	return 8
}

// categoryLabels maps issue labels to the keyword sets that trigger them.
var categoryLabels = []struct {
	label string
	terms []string
}{
	{"security", []string{"security", "vulnerability", "xss", "csrf", "injection", "audit", "cve"}},
	{"documentation", []string{"documentation", "docs", "readme", "changelog", "tutorial", "guide", "style-guide"}},
	{"frontend", []string{"frontend", "react", "reactjs", "vue", "angular", "css", "tailwind", "component", "ui", "ux", "dashboard", "animation", "responsive", "navigation"}},
	{"backend", []string{"backend", "api", "endpoint", "server", "microservice", "auth", "middleware", "graphql", "rest"}},
	{"database", []string{"database", "sql", "schema", "migration", "postgres", "mysql", "query", "orm"}},
	{"testing", []string{"test", "testing", "tests", "coverage", "e2e", "unit-test", "regression"}},
	{"bug", []string{"bug", "debug", "crash", "stacktrace", "fix", "error"}},
	{"performance", []string{"performance", "latency", "optimization", "profiling", "benchmark", "throughput"}},
}

// inferLabels derives category labels from the extracted keyword set, in
// precedence order.
func inferLabels(keywords []string) []string {
	var labels []string
	for _, cat := range categoryLabels {
		for _, kw := range keywords {
			if matchesAny(kw, cat.terms) {
				labels = append(labels, cat.label)
				break
			}
		}
	}
	return labels
}

// Analyze combines capability matching with priority and complexity
// inference to produce an actionable recommendation.
func Analyze(in Input, reg *agent.Registry, w Weights) Result {
	text := in.text()
	keywords := ExtractKeywords(text)
	matches := MatchAgents(keywords, reg, w)

	res := Result{
		Priority:       InferPriority(text),
		Labels:         inferLabels(keywords),
		Complexity:     EstimateComplexity(in.Title, in.Body),
		Confidence:     ConfidenceLow,
		Keywords:       keywords,
		Matches:        matches,
	}
	res.EstimatedHours = res.Complexity * 2

	if top := pickTop(matches); top != nil && top.Score > 0 {
		res.SuggestedAgent = top.AgentName
		res.Confidence = top.Confidence
	}
	res.RequiresManualReview = res.Confidence == ConfidenceLow

	return res
}

// pickTop returns the best match, breaking score ties by category
// precedence and then registry order (matches are already stably sorted).
func pickTop(matches []Match) *Match {
	if len(matches) == 0 {
		return nil
	}
	best := &matches[0]
	for i := 1; i < len(matches); i++ {
		m := &matches[i]
		if m.Score != best.Score {
			break
		}
		if categoryRank(m.AgentName) < categoryRank(best.AgentName) {
			best = m
		}
	}
	return best
}
