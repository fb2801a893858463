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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/featureflags"
	"github.com/aryan0dhankhar/bluecarbon/internal/handler"
	"github.com/aryan0dhankhar/bluecarbon/internal/infrastructure/events"
	"github.com/aryan0dhankhar/bluecarbon/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/bluecarbon/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/bluecarbon/internal/infrastructure/scoring"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/tracing"
	"github.com/aryan0dhankhar/bluecarbon/internal/repository"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/audit"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/auth"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/middleware"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/ratelimit"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
	"github.com/aryan0dhankhar/bluecarbon/internal/worker"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
	"github.com/aryan0dhankhar/bluecarbon/pkg/config"
	"github.com/aryan0dhankhar/bluecarbon/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	flags := featureflags.Load()
	log.Info("starting Blue Carbon MRV registry",
		slog.String("environment", cfg.Environment),
		slog.String("state_backend", cfg.StateBackend),
		slog.Bool("offline_ai", flags.OfflineAI),
		slog.Bool("open_purchase", flags.OpenPurchase),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "bluecarbon-mrv", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Initialize state stores: local SQLite snapshots plus an optional remote copy
	local, err := repository.NewSQLiteStateStore(cfg.LocalStatePath, cfg.LocalSnapshotRetention, log)
	if err != nil {
		log.Error("failed to open local state store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer local.Close()

	var checks []namedCheck
	checks = append(checks, namedCheck{"local", true, func(ctx context.Context) error {
		_, err := local.SnapshotCount(ctx)
		return err
	}})

	remote, remoteName, closeRemote := openRemote(ctx, cfg, log, &checks)
	defer closeRemote()

	store := repository.NewFallbackStore(remote, remoteName, local, log)

	// 4. Initialize the scorer
	var scorer domain.Scorer
	if cfg.AIScorerURL != "" && !flags.OfflineAI {
		scorer = scoring.NewClient(cfg.AIScorerURL, cfg.AIScorerAPIKey, cfg.AIScorerTimeout, log)
	} else {
		log.Warn("AI scorer not configured, submissions use the fallback analysis")
	}

	// 5. Initialize services
	policy := workflow.DefaultPolicy()
	policy.RequirePositiveCarbon = cfg.RequirePositiveCarbon
	if flags.OpenPurchase {
		policy.RestrictPurchaseToCorporate = false
	}
	engine := workflow.NewEngine(policy)

	opts := service.DefaultOptions()
	opts.DefaultSiteArea = cfg.DefaultSiteAreaHectares
	opts.CreditPriceUSD = cfg.CreditPriceUSD
	opts.ScorerTimeout = cfg.AIScorerTimeout
	opts.AnalysisTTL = cfg.AICacheTTL
	opts.OfflineScoring = flags.OfflineAI

	registry := service.NewRegistryService(engine, store, scorer, log, opts)
	if err := registry.Bootstrap(ctx); err != nil {
		log.Error("registry started with empty state", slog.String("error", err.Error()))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("failed to create audit publisher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer publisher.Close()
		registry.SetPublisher(publisher)
		// flushes queued entries before the writer above is closed
		defer registry.Close()
		log.Info("audit events published to kafka", slog.String("topic", cfg.KafkaAuditTopic))
	}

	// 5a. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "bluecarbon")
	authService := service.NewAuthService(auth.NewDirectory(), tokenManager, registry, cfg.SessionTTL, log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 6. Initialize handlers
	var breaker = store.Breaker()
	if remote == nil {
		breaker = nil
	}
	healthHandler := handler.NewHealthHandler(registry, breaker, log)
	for _, c := range checks {
		healthHandler.AddCheck(c.name, c.critical, c.check)
	}

	routes := handler.Routes{
		Auth:        handler.NewAuthHandler(authService, registry, log),
		Submissions: handler.NewSubmissionHandler(registry, log),
		Credits:     handler.NewCreditHandler(registry, log),
		Dashboard:   handler.NewDashboardHandler(registry, log),
		Health:      healthHandler,
	}
	if flags.AuditStream {
		routes.AuditStream = handler.NewAuditStreamHandler(registry, log, cfg.CORSAllowedOrigins)
	}

	// 7. Setup HTTP routes
	mux := http.NewServeMux()
	routes.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Metrics wrap the mux directly so the matched route pattern is visible.
	// Chain: request ID -> CORS -> sanitize -> JWT -> rate limit -> audit -> content type
	rootHandler := middleware.Chain(
		metrics.HTTPMetricsMiddleware(mux),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware(cfg.CORSAllowedOrigins),
		middleware.SanitizeInputs(log),
		middleware.JWTMiddleware(tokenManager, log),
		middleware.RateLimitMiddleware(rateLimiter, log),
		middleware.AuditMiddleware(auditLogger),
		middleware.ValidateJSONContentType(log),
	)

	// 8. Start sync worker in background
	syncWorker := worker.NewSyncWorker(registry, log, cfg.SyncInterval)
	go syncWorker.Start(ctx)

	// 9. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "bluecarbon-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop sync worker

	// Last chance to push a locally saved state to the remote copy
	if synced, err := registry.SyncPending(shutdownCtx); err != nil {
		log.Warn("state still pending remote sync at shutdown", slog.String("error", err.Error()))
	} else if synced {
		log.Info("pending state synced before shutdown")
	}

	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type namedCheck struct {
	name     string
	critical bool
	check    handler.Check
}

// openRemote connects the configured remote backend. A remote that cannot be
// reached at startup leaves the registry running on the local store alone.
func openRemote(ctx context.Context, cfg *config.Config, log *slog.Logger, checks *[]namedCheck) (domain.StateStore, string, func()) {
	noop := func() {}

	switch cfg.StateBackend {
	case config.BackendPostgres:
		pool, err := database.Open(ctx, cfg.Database, log)
		if err != nil {
			log.Warn("postgres unavailable, running on local state only", slog.String("error", err.Error()))
			return nil, "", noop
		}
		pg := repository.NewPostgresStateStore(pool.DB(), log)
		if err := pg.Migrate(ctx); err != nil {
			log.Warn("postgres migration failed, running on local state only", slog.String("error", err.Error()))
			pool.Close()
			return nil, "", noop
		}
		*checks = append(*checks, namedCheck{"postgres", false, pool.Health})
		return pg, "postgres", func() { pool.Close() }

	case config.BackendRedis:
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, running on local state only", slog.String("error", err.Error()))
			return nil, "", noop
		}
		*checks = append(*checks, namedCheck{"redis", false, client.Ping})
		return repository.NewRedisStateStore(client, log), "redis", func() { client.Close() }
	}

	log.Info("no remote state backend configured")
	return nil, "", noop
}
