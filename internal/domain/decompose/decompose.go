// Package decompose expands a requirement into a DAG of subtasks, each
// pre-assigned a suggested agent and wired to its prerequisites. This is a
// fixed rule table, not free-form planning: later rules reference the
// indices emitted by earlier ones, so rule order is part of the contract.
package decompose

import (
	"strings"

	"github.com/Bizzy211/heimdall/internal/domain/task"
	"github.com/Bizzy211/heimdall/internal/domain/triage"
)

// Roster names the agent types the rule table assigns work to.
type Roster struct {
	DBArchitect       string `yaml:"db_architect"`
	Backend           string `yaml:"backend"`
	Frontend          string `yaml:"frontend"`
	AnimatedDashboard string `yaml:"animated_dashboard"`
	Security          string `yaml:"security"`
	Testing           string `yaml:"testing"`
	Coordinator       string `yaml:"coordinator"`
}

// DefaultRoster returns the standard specialist team.
func DefaultRoster() Roster {
	return Roster{
		DBArchitect:       "db-architect",
		Backend:           "backend-dev",
		Frontend:          "frontend-dev",
		AnimatedDashboard: "animated-dashboard",
		Security:          "security-auditor",
		Testing:           "test-engineer",
		Coordinator:       "project-manager",
	}
}

// Subtask is one node of the decomposition. DependsOn holds indices into
// the returned subtask slice; the service layer remaps them to task IDs.
type Subtask struct {
	Title     string        `json:"title"`
	Agent     string        `json:"agent"`
	Priority  task.Priority `json:"priority"`
	DependsOn []int         `json:"depends_on"`
}

// Plan is the output of a decomposition.
type Plan struct {
	Subtasks        []Subtask `json:"subtasks"`
	TeamComposition []string  `json:"team_composition"`
}

var (
	databaseTerms  = []string{"database", "schema", "sql", "migration", "postgres", "mysql", "orm", "data-model"}
	backendTerms   = []string{"backend", "api", "endpoint", "server", "microservice", "auth", "rest", "graphql", "middleware"}
	frontendTerms  = []string{"frontend", "react", "vue", "angular", "css", "component", "ui", "ux", "responsive", "navigation", "tailwind"}
	dashboardTerms = []string{"dashboard", "animation", "animated", "chart", "visualization"}
	securityTerms  = []string{"security", "vulnerability", "audit", "encryption", "xss", "csrf", "injection"}
)

// Decompose applies the rule table to the requirement text. Rules run in
// fixed order because later subtasks depend on the indices of earlier ones:
// database first (no dependencies), backend after database, frontend after
// backend, security after backend, and a final testing subtask depending on
// everything emitted before it.
func Decompose(title, body string, priority task.Priority, roster Roster) Plan {
	keywords := triage.ExtractKeywords(title + "\n" + body)
	var plan Plan

	dbIdx, backendIdx := -1, -1

	if containsAny(keywords, databaseTerms) {
		dbIdx = plan.add(Subtask{
			Title:    "Design database schema: " + title,
			Agent:    roster.DBArchitect,
			Priority: priority,
		})
	}

	if containsAny(keywords, backendTerms) {
		st := Subtask{
			Title:    "Implement backend services: " + title,
			Agent:    roster.Backend,
			Priority: priority,
		}
		if dbIdx >= 0 {
			st.DependsOn = []int{dbIdx}
		}
		backendIdx = plan.add(st)
	}

	if containsAny(keywords, frontendTerms) || containsAny(keywords, dashboardTerms) {
		agent := roster.Frontend
		if containsAny(keywords, dashboardTerms) {
			agent = roster.AnimatedDashboard
		}
		st := Subtask{
			Title:    "Build frontend: " + title,
			Agent:    agent,
			Priority: priority,
		}
		if backendIdx >= 0 {
			st.DependsOn = []int{backendIdx}
		}
		plan.add(st)
	}

	if containsAny(keywords, securityTerms) {
		st := Subtask{
			Title:    "Security review: " + title,
			Agent:    roster.Security,
			Priority: task.PriorityHigh,
		}
		if backendIdx >= 0 {
			st.DependsOn = []int{backendIdx}
		}
		plan.add(st)
	}

	testDeps := make([]int, len(plan.Subtasks))
	for i := range testDeps {
		testDeps[i] = i
	}
	plan.add(Subtask{
		Title:     "Test and verify: " + title,
		Agent:     roster.Testing,
		Priority:  priority,
		DependsOn: testDeps,
	})

	plan.TeamComposition = teamFor(plan.Subtasks, roster.Coordinator)
	return plan
}

// add appends a subtask and returns its index.
func (p *Plan) add(st Subtask) int {
	p.Subtasks = append(p.Subtasks, st)
	return len(p.Subtasks) - 1
}

// teamFor deduplicates assignees in emission order and appends the
// coordinator role.
func teamFor(subtasks []Subtask, coordinator string) []string {
	seen := make(map[string]struct{}, len(subtasks)+1)
	var team []string
	for _, st := range subtasks {
		if _, ok := seen[st.Agent]; ok {
			continue
		}
		seen[st.Agent] = struct{}{}
		team = append(team, st.Agent)
	}
	if _, ok := seen[coordinator]; !ok {
		team = append(team, coordinator)
	}
	return team
}

func containsAny(keywords, terms []string) bool {
	for _, kw := range keywords {
		for _, t := range terms {
			if kw == t || strings.Contains(kw, t) || strings.Contains(t, kw) {
				return true
			}
		}
	}
	return false
}
