// Package triage classifies units of work: it extracts domain keywords,
// scores registered agents against them, infers priority and complexity,
// and applies exclusion rules before any assignment happens.
package triage

import (
	"strings"
	"unicode"
)

// vocabulary is the curated set of single-word technical keywords the
// extractor recognizes. Order matters only for determinism of the output.
var vocabulary = []string{
	// frontend
	"frontend", "react", "reactjs", "vue", "angular", "svelte", "css",
	"tailwind", "component", "responsive", "ui", "ux", "accessibility",
	"dashboard", "animation", "animated", "navigation", "layout", "form",
	// backend
	"backend", "api", "rest", "graphql", "endpoint", "server", "service",
	"microservice", "auth", "authentication", "authorization", "middleware",
	"websocket", "grpc", "queue", "worker", "cache", "caching",
	// database
	"database", "sql", "postgres", "postgresql", "mysql", "sqlite", "schema",
	"migration", "index", "query", "orm", "redis", "nosql", "mongodb",
	// security
	"security", "vulnerability", "xss", "csrf", "injection", "encryption",
	"audit", "oauth", "jwt", "secrets", "cve",
	// testing
	"test", "testing", "tests", "coverage", "regression", "e2e", "mock",
	"fixture", "ci",
	// docs
	"documentation", "docs", "readme", "changelog", "tutorial", "guide",
	// performance
	"performance", "latency", "optimization", "profiling", "benchmark",
	"memory", "throughput",
	// debugging
	"bug", "debug", "debugger", "crash", "stacktrace", "error", "fix",
	"regression",
	// infra
	"docker", "kubernetes", "deploy", "deployment", "pipeline", "terraform",
	"monitoring", "logging",
	// data
	"etl", "analytics", "warehouse", "streaming", "kafka",
}

// phrases maps multi-word phrases that the single-word scan would miss to
// their canonical hyphenated keyword.
var phrases = map[string]string{
	"style guide":      "style-guide",
	"code review":      "code-review",
	"unit test":        "unit-test",
	"load testing":     "load-testing",
	"api design":       "api-design",
	"data model":       "data-model",
	"rate limit":       "rate-limit",
	"tech debt":        "tech-debt",
	"dark mode":        "dark-mode",
	"error handling":   "error-handling",
	"dependency graph": "dependency-graph",
}

// phraseOrder fixes the scan order for phrase detection so repeated calls
// produce identical output.
var phraseOrder = []string{
	"style guide", "code review", "unit test", "load testing", "api design",
	"data model", "rate limit", "tech debt", "dark mode", "error handling",
	"dependency graph",
}

var vocabularySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(vocabulary))
	for _, w := range vocabulary {
		set[w] = struct{}{}
	}
	return set
}()

// ExtractKeywords normalizes free text (title, body, labels joined by the
// caller) into a deduplicated list of lowercase keywords drawn from the
// curated vocabulary, plus detected compound phrases. The function is pure:
// identical input always yields identical output, in text scan order.
func ExtractKeywords(text string) []string {
	lowered := strings.ToLower(text)

	var out []string
	seen := make(map[string]struct{})

	for _, word := range splitWords(lowered) {
		if _, ok := vocabularySet[word]; !ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}

	for _, phrase := range phraseOrder {
		canonical := phrases[phrase]
		if !strings.Contains(lowered, phrase) {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}

	return out
}

// splitWords breaks text into candidate tokens. Hyphens and dots are kept
// inside words so tokens like "e2e" or "style-guide" survive, then trimmed
// from the edges.
func splitWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	for i, f := range fields {
		fields[i] = strings.Trim(f, "-.")
	}
	return fields
}
