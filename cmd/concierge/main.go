package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/cache"
	"github.com/kailas-cloud/concierge/internal/config"
	"github.com/kailas-cloud/concierge/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/concierge/internal/db/redis"
	logpkg "github.com/kailas-cloud/concierge/internal/logger"
	"github.com/kailas-cloud/concierge/internal/metrics"
	businessrepo "github.com/kailas-cloud/concierge/internal/repository/business"
	"github.com/kailas-cloud/concierge/internal/repository/embcache"
	photorepo "github.com/kailas-cloud/concierge/internal/repository/photo"
	reviewrepo "github.com/kailas-cloud/concierge/internal/repository/review"
	"github.com/kailas-cloud/concierge/internal/resilience"
	chiTransport "github.com/kailas-cloud/concierge/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/concierge/internal/transport/openai"
	"github.com/kailas-cloud/concierge/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/concierge/internal/usecase/health"
	"github.com/kailas-cloud/concierge/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting concierge API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	// Shared cache / vector store. Unreachable Redis is non-fatal: the
	// query cache runs L1-only and the vector breakers absorb failures.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	readiness := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Warn("Redis not ready, starting in L1-only cache mode", zap.Error(err))
	} else {
		logger.Info("Connected to redis")
	}

	// Authoritative business store.
	pg, err := postgres.New(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.RunMigrations(cfg.Postgres.URL); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Connected to postgres, migrations applied")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Breaker/limiter registry — built once, injected everywhere.
	registry := resilience.NewRegistry(registryConfig(cfg.Resilience), metrics.BreakerState, logger)

	// Two-tier query cache.
	local := cache.NewLocalCache(cfg.Cache.LocalCapacity)
	queryCache := cache.New(local, store, metrics.CacheResultTotal, logger)

	// OpenAI-compatible adapters.
	aiCfg := openaiTransport.Config{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		ClassifierModel: cfg.OpenAI.ClassifierModel,
		GeneratorModel:  cfg.OpenAI.GeneratorModel,
		EmbeddingModel:  cfg.OpenAI.EmbeddingModel,
		EmbeddingDims:   cfg.OpenAI.EmbeddingDims,
	}
	classifier := openaiTransport.NewClassifier(aiCfg, logger)
	generator := openaiTransport.NewGenerator(aiCfg, logger)
	embedder := embcache.New(openaiTransport.NewEmbedder(aiCfg, logger), queryCache, logger)

	// Backends.
	bizRepo := businessrepo.New(pg.Pool)
	reviewRepo := reviewrepo.New(store, embedder, cfg.Redis.ReviewIndex)
	photoRepo := photorepo.New(store, embedder, cfg.Redis.PhotoIndex)

	// Pipeline.
	budgets := assistant.Budgets{
		Structured: time.Duration(cfg.Resilience.StructuredBudget) * time.Millisecond,
		Vector:     time.Duration(cfg.Resilience.VectorBudget) * time.Millisecond,
		Generator:  time.Duration(cfg.Resilience.GeneratorBudget) * time.Millisecond,
	}
	pipeline := assistant.New(
		classifier, bizRepo, reviewRepo, photoRepo, generator,
		queryCache, registry, budgets,
		assistant.Metrics{
			BackendDuration:   metrics.BackendCallDuration,
			GeneratorFallback: metrics.GeneratorFallbackTotal,
		},
		logger,
	)

	healthSvc := healthuc.New(store, pg.Pool, registry, queryCache)

	server := chiTransport.NewServer(pipeline, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiTransport.CorrelationMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// registryConfig translates config into breaker/limiter settings for the
// four guarded dependencies, filling defaults for any the file omits.
func registryConfig(rc config.ResilienceConfig) resilience.RegistryConfig {
	deps := []string{
		resilience.DepStructured,
		resilience.DepReview,
		resilience.DepPhoto,
		resilience.DepGenerator,
	}

	breakers := make(map[string]resilience.BreakerConfig, len(deps))
	for _, dep := range deps {
		bc := resilience.BreakerConfig{}
		if settings, ok := rc.Breakers[dep]; ok {
			bc.FailureThreshold = settings.FailureThreshold
			bc.SuccessThreshold = settings.SuccessThreshold
			bc.RecoveryTimeout = time.Duration(settings.RecoveryTimeoutSec) * time.Second
		}
		breakers[dep] = bc
	}

	return resilience.RegistryConfig{
		Breakers: breakers,
		Limiters: map[string]int{
			resilience.LimiterVector:   rc.VectorSlots,
			resilience.LimiterGenerate: rc.GenerateSlots,
		},
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
