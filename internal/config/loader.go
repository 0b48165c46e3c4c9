package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "heimdall.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg. A missing file
// is not an error.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg. Only non-empty env
// values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "HEIMDALL_PORT")
	setString(&cfg.Server.CORSOrigin, "HEIMDALL_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HEIMDALL_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HEIMDALL_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HEIMDALL_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HEIMDALL_PG_MAX_CONN_IDLE_TIME")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "HEIMDALL_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HEIMDALL_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "HEIMDALL_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "HEIMDALL_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HEIMDALL_BREAKER_TIMEOUT")
	setString(&cfg.Registry.Dir, "HEIMDALL_REGISTRY_DIR")
	setDuration(&cfg.Registry.CacheTTL, "HEIMDALL_REGISTRY_CACHE_TTL")
	setString(&cfg.Issues.Repo, "HEIMDALL_ISSUES_REPO")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setInt(&cfg.Orchestrator.ScoreThreshold, "HEIMDALL_SCORE_THRESHOLD")
	setInt(&cfg.Orchestrator.MaxParallel, "HEIMDALL_MAX_PARALLEL")
	setInt(&cfg.Orchestrator.BatchConcurrency, "HEIMDALL_BATCH_CONCURRENCY")
	setString(&cfg.Orchestrator.TaskLogPath, "HEIMDALL_TASK_LOG_PATH")
	setDuration(&cfg.Orchestrator.StaleAge, "HEIMDALL_STALE_AGE")
}

// validate checks cross-field constraints after all sources are merged.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Orchestrator.MaxParallel < 1 {
		return errors.New("orchestrator.max_parallel must be >= 1")
	}
	if cfg.Orchestrator.BatchConcurrency < 1 {
		return errors.New("orchestrator.batch_concurrency must be >= 1")
	}
	w := cfg.Orchestrator.Weights
	if w.MediumThreshold > w.HighThreshold {
		return errors.New("weights.medium_threshold must not exceed weights.high_threshold")
	}
	if cfg.Orchestrator.ScoreThreshold < 0 || cfg.Orchestrator.ScoreThreshold > 100 {
		return errors.New("orchestrator.score_threshold must be in [0,100]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
