package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want default 8080", cfg.Server.Port)
	}
	if cfg.Orchestrator.ScoreThreshold != 40 {
		t.Errorf("score threshold = %d, want 40", cfg.Orchestrator.ScoreThreshold)
	}
	if cfg.Orchestrator.Weights.KeywordWeight != 70 {
		t.Errorf("keyword weight = %v, want 70", cfg.Orchestrator.Weights.KeywordWeight)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heimdall.yaml")
	yaml := `
server:
  port: "9090"
orchestrator:
  max_parallel: 2
  stale_age: 10m
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.Orchestrator.MaxParallel != 2 {
		t.Errorf("max parallel = %d, want 2", cfg.Orchestrator.MaxParallel)
	}
	if cfg.Orchestrator.StaleAge != 10*time.Minute {
		t.Errorf("stale age = %s, want 10m", cfg.Orchestrator.StaleAge)
	}
	// Untouched keys keep their defaults.
	if cfg.Orchestrator.BatchConcurrency != 8 {
		t.Errorf("batch concurrency = %d, want default 8", cfg.Orchestrator.BatchConcurrency)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heimdall.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HEIMDALL_PORT", "7070")
	t.Setenv("HEIMDALL_SCORE_THRESHOLD", "55")
	t.Setenv("HEIMDALL_LOG_ASYNC", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %s, want env value 7070", cfg.Server.Port)
	}
	if cfg.Orchestrator.ScoreThreshold != 55 {
		t.Errorf("score threshold = %d, want 55", cfg.Orchestrator.ScoreThreshold)
	}
	if !cfg.Logging.Async {
		t.Error("log async = false, want env override true")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"zero max parallel", func(c *Config) { c.Orchestrator.MaxParallel = 0 }},
		{"threshold out of range", func(c *Config) { c.Orchestrator.ScoreThreshold = 101 }},
		{"inverted confidence thresholds", func(c *Config) {
			c.Orchestrator.Weights.MediumThreshold = 80
			c.Orchestrator.Weights.HighThreshold = 70
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
