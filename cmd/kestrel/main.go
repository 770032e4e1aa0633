// Kestrel - Transaction risk scoring and classification engine.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openrisk-labs/kestrel/internal/api"
	"github.com/openrisk-labs/kestrel/internal/auth"
	"github.com/openrisk-labs/kestrel/internal/bus"
	"github.com/openrisk-labs/kestrel/internal/cache"
	"github.com/openrisk-labs/kestrel/internal/detector"
	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/metrics"
	"github.com/openrisk-labs/kestrel/internal/repository"
	"github.com/openrisk-labs/kestrel/internal/scoring"
	"github.com/openrisk-labs/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		slog.Info(".env loaded")
	}

	// Load configuration
	cfg := domain.DefaultConfig()
	applyEnvOverrides(cfg)

	// Initialize structured logger
	logger := slog.New(newLogHandler(cfg.Logging))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	if err := cfg.Thresholds.Validate(); err != nil {
		slog.Error("invalid threshold configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"auth_enabled", cfg.Auth.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Load extension signals from the database
	signals, err := loadSignalsFromDatabase(ctx, repo)
	if err != nil {
		slog.Error("failed to load signals", "error", err)
		os.Exit(1)
	}

	// Initialize Scoring Engine
	engine, err := scoring.NewEngine(cfg.Thresholds, signals)
	if err != nil {
		slog.Error("failed to initialize scoring engine", "error", err)
		os.Exit(1)
	}
	slog.Info("scoring engine initialized", "signal_count", engine.SignalCount())

	// Initialize Detector
	det := detector.New(engine, envInt("KESTREL_BATCH_WORKERS", 10))

	// Initialize Auth
	authMgr, err := auth.NewManager(cfg.Auth)
	if err != nil {
		slog.Error("failed to initialize auth", "error", err)
		os.Exit(1)
	}

	// Initialize Metrics
	recorder := metrics.NewRecorder()

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if envBool("KESTREL_ASYNC_WORKER", false) {
		asyncWorker = worker.NewWorker(busImpl, repo, det)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg, repo, cacheImpl, busImpl, det, engine, recorder, authMgr, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// loadSignalsFromDatabase loads extension signals for the engine. A missing
// or empty table is not an error; signals are added via POST /api/v1/signals.
func loadSignalsFromDatabase(ctx context.Context, repo domain.Repository) ([]*domain.SignalConfig, error) {
	signals, err := repo.ListSignalConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list signals from database", "error", err)
		return nil, nil
	}

	if len(signals) > 0 {
		slog.Info("loading signals from database", "count", len(signals))
	} else {
		slog.Info("no signals in database - configure via POST /api/v1/signals")
	}
	return signals, nil
}

func newLogHandler(cfg domain.LoggingConfig) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

// applyEnvOverrides layers KESTREL_* environment variables over the defaults.
func applyEnvOverrides(cfg *domain.Config) {
	cfg.Server.Host = envStr("KESTREL_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("KESTREL_PORT", cfg.Server.Port)

	cfg.Repository.Driver = envStr("KESTREL_DB_DRIVER", cfg.Repository.Driver)
	cfg.Repository.SQLitePath = envStr("KESTREL_SQLITE_PATH", cfg.Repository.SQLitePath)
	cfg.Repository.PostgresHost = envStr("KESTREL_POSTGRES_HOST", cfg.Repository.PostgresHost)
	cfg.Repository.PostgresPort = envInt("KESTREL_POSTGRES_PORT", cfg.Repository.PostgresPort)
	cfg.Repository.PostgresUser = envStr("KESTREL_POSTGRES_USER", cfg.Repository.PostgresUser)
	cfg.Repository.PostgresPassword = envStr("KESTREL_POSTGRES_PASSWORD", cfg.Repository.PostgresPassword)
	cfg.Repository.PostgresDB = envStr("KESTREL_POSTGRES_DB", cfg.Repository.PostgresDB)

	cfg.Cache.Type = envStr("KESTREL_CACHE_TYPE", cfg.Cache.Type)
	cfg.Cache.RedisAddr = envStr("KESTREL_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envStr("KESTREL_REDIS_PASSWORD", cfg.Cache.RedisPassword)

	cfg.EventBus.Type = envStr("KESTREL_BUS_TYPE", cfg.EventBus.Type)
	cfg.EventBus.NATSUrl = envStr("KESTREL_NATS_URL", cfg.EventBus.NATSUrl)
	cfg.EventBus.NATSToken = envStr("KESTREL_NATS_TOKEN", cfg.EventBus.NATSToken)

	cfg.Auth.Enabled = envBool("KESTREL_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.Secret = envStr("KESTREL_AUTH_SECRET", cfg.Auth.Secret)
	cfg.Auth.Username = envStr("KESTREL_AUTH_USERNAME", cfg.Auth.Username)
	cfg.Auth.Password = envStr("KESTREL_AUTH_PASSWORD", cfg.Auth.Password)
	cfg.Auth.TokenTTL = envInt("KESTREL_AUTH_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.RateLimit.Enabled = envBool("KESTREL_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Requests = envInt("KESTREL_RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.WindowSecs = envInt("KESTREL_RATE_LIMIT_WINDOW", cfg.RateLimit.WindowSecs)

	cfg.Logging.Level = envStr("KESTREL_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envStr("KESTREL_LOG_FORMAT", cfg.Logging.Format)

	cfg.Thresholds.SuspiciousAmount = envFloat("KESTREL_SUSPICIOUS_AMOUNT", cfg.Thresholds.SuspiciousAmount)
	cfg.Thresholds.HighAmount = envFloat("KESTREL_HIGH_AMOUNT", cfg.Thresholds.HighAmount)
	cfg.Thresholds.BatchLimit = envInt("KESTREL_BATCH_LIMIT", cfg.Thresholds.BatchLimit)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Printf("  Kestrel %s - transaction risk scoring\n", version)
	fmt.Printf("  Server: http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/v1/fraud/detect        - Score a transaction")
	fmt.Println("    POST /api/v1/fraud/detect/batch  - Score a batch (max", cfg.Thresholds.BatchLimit, "items)")
	fmt.Println("    GET  /api/v1/transactions/{id}   - Get transaction by ID")
	fmt.Println("    GET  /api/v1/signals             - List extension signals")
	fmt.Println("    POST /api/v1/signals             - Create an extension signal")
	fmt.Println("    POST /api/v1/auth/token          - Issue a bearer token")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println("    GET  /ready                      - Readiness check")
	fmt.Println("    GET  /metrics                    - Service counters")
	fmt.Println()
}
