package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmoreira/fintrack-api/internal/config"
	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/handler"
	"github.com/lmoreira/fintrack-api/internal/infra/cache"
	"github.com/lmoreira/fintrack-api/internal/infra/observability"
	"github.com/lmoreira/fintrack-api/internal/infra/postgres"
	"github.com/lmoreira/fintrack-api/internal/infra/postgrest"
	"github.com/lmoreira/fintrack-api/internal/infra/resilience"
	"github.com/lmoreira/fintrack-api/internal/port"
	"github.com/lmoreira/fintrack-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fintrack-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	accountCache := cache.New[[]domain.Account](cfg.CacheTTL)
	categoryCache := cache.New[[]domain.Category](cfg.CacheTTL)

	// --- Store backend ---
	var ledgerStore port.LedgerStore
	var authStore port.AuthStore

	switch cfg.StoreBackend {
	case "postgres":
		logger.Info("using direct Postgres as data backend")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		ledgerStore = db
		authStore = db

	default:
		logger.Info("using PostgREST as data backend",
			zap.String("postgrest_url", cfg.PostgRESTURL),
		)
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("postgrest")
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		pg := postgrest.NewClient(
			httpClient,
			cfg.PostgRESTURL,
			cfg.PostgRESTAnonKey,
			cfg.PostgRESTServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		ledgerStore = pg
		authStore = pg
	}

	// --- Services ---
	ledgerSvc := service.NewLedgerService(ledgerStore, accountCache, categoryCache, metrics, logger)
	insightsSvc := service.NewInsightsService(ledgerStore, metrics, logger)
	authSvc := service.NewAuthService(authStore, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, insightsSvc, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
