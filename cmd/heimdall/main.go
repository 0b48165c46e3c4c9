// Command heimdall runs the multi-agent orchestration engine: issue triage
// and assignment, task decomposition, dependency-aware scheduling, and
// agent handoff tracking, exposed over a REST API and a websocket feed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Bizzy211/heimdall/internal/adapter/githubis"
	hhttp "github.com/Bizzy211/heimdall/internal/adapter/http"
	"github.com/Bizzy211/heimdall/internal/adapter/jsonl"
	hnats "github.com/Bizzy211/heimdall/internal/adapter/nats"
	"github.com/Bizzy211/heimdall/internal/adapter/otel"
	"github.com/Bizzy211/heimdall/internal/adapter/postgres"
	"github.com/Bizzy211/heimdall/internal/adapter/ristretto"
	"github.com/Bizzy211/heimdall/internal/adapter/ws"
	"github.com/Bizzy211/heimdall/internal/adapter/yamlreg"
	"github.com/Bizzy211/heimdall/internal/config"
	"github.com/Bizzy211/heimdall/internal/domain/decompose"
	"github.com/Bizzy211/heimdall/internal/eventlog"
	"github.com/Bizzy211/heimdall/internal/logger"
	"github.com/Bizzy211/heimdall/internal/port/issuestore"
	"github.com/Bizzy211/heimdall/internal/resilience"
	"github.com/Bizzy211/heimdall/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"registry_dir", cfg.Registry.Dir,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := hnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()
	slog.Info("nats connected")

	regCache, err := ristretto.New(cfg.Registry.CacheBytes)
	if err != nil {
		return fmt.Errorf("registry cache: %w", err)
	}
	defer regCache.Close()

	// --- Issue tracker ---
	var issues issuestore.Store
	if cfg.Issues.Repo != "" {
		issues, err = githubis.New(cfg.Issues.Repo)
		if err != nil {
			return fmt.Errorf("issue store: %w", err)
		}
		slog.Info("issue tracker configured", "backend", issues.Name(), "repo", cfg.Issues.Repo)
	} else {
		slog.Warn("no issue repo configured, triage endpoints limited to text analysis")
	}

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	loader := yamlreg.New(regCache, cfg.Registry.CacheTTL)
	events := eventlog.New(cfg.Orchestrator.EventLogCapacity)
	taskLog := jsonl.New(cfg.Orchestrator.TaskLogPath)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	orch := service.NewOrchestrator(service.OrchestratorOpts{
		Store:   store,
		Queue:   queue,
		Hub:     hub,
		Events:  events,
		TaskLog: taskLog,
		Logger:  log,
	})
	triageEngine := service.NewTriageEngine(service.TriageEngineOpts{
		Issues:        issues,
		Loader:        loader,
		RegistryDir:   cfg.Registry.Dir,
		Weights:       cfg.Orchestrator.Weights,
		Threshold:     cfg.Orchestrator.ScoreThreshold,
		ExcludeLabels: cfg.Issues.ExcludeLabels,
		Breaker:       breaker,
		Metrics:       metrics,
		Logger:        log,
		BatchLimit:    cfg.Orchestrator.BatchConcurrency,
	})
	handoffs := service.NewHandoffCoordinator(orch, metrics, log)
	executor := service.NewExecutor(orch, metrics, log, cfg.Orchestrator.MaxParallel)

	if n, err := orch.Restore(ctx); err != nil {
		return fmt.Errorf("restore orchestrations: %w", err)
	} else if n > 0 {
		slog.Info("orchestrations restored", "count", n)
	}

	// --- HTTP ---
	handlers := &hhttp.Handlers{
		Triage:       triageEngine,
		Orchestrator: orch,
		Handoffs:     handoffs,
		Executor:     executor,
		Roster:       decompose.DefaultRoster(),
		StaleAge:     cfg.Orchestrator.StaleAge,
	}

	r := chi.NewRouter()
	r.Use(hhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(hhttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(queue))
	r.Get("/ws", hub.HandleWS)
	hhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports process and queue connectivity status.
func healthHandler(queue *hnats.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		nats := "disconnected"
		if queue.IsConnected() {
			nats = "connected"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","nats":%q}`+"\n", nats)
	}
}
