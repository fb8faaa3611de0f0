package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/api"
	"github.com/blueprintpro/estimator/internal/api/handlers"
	mw "github.com/blueprintpro/estimator/internal/api/middleware"
	"github.com/blueprintpro/estimator/internal/catalog"
	"github.com/blueprintpro/estimator/internal/estimate"
	"github.com/blueprintpro/estimator/internal/orchestrator"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/queue/tasks"
	"github.com/blueprintpro/estimator/internal/repository"
	"github.com/blueprintpro/estimator/internal/services"
	"github.com/blueprintpro/estimator/pkg/config"
	"github.com/blueprintpro/estimator/pkg/database"
	"github.com/blueprintpro/estimator/pkg/logger"
	"github.com/blueprintpro/estimator/pkg/metrics"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting blueprint estimator",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: cfg.AppEnv == "development",
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.DatabaseDriver))

	m := metrics.New()

	// Provider chain shared by the relay and the project routes
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout + 5*time.Second}
	adapters := providers.Build(cfg, httpClient)
	analyzers := make([]providers.Provider, 0, len(adapters))
	generators := make([]providers.Generator, 0, len(adapters))
	for _, a := range adapters {
		analyzers = append(analyzers, a)
		generators = append(generators, a)
	}
	orch := orchestrator.New(analyzers, orchestrator.Options{AttemptTimeout: cfg.ProviderTimeout, Metrics: m})
	gen := estimate.New(generators, estimate.Options{Timeout: cfg.ProviderTimeout, Metrics: m})
	serverCreds := providers.ServerCredentials(cfg)

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var opts []services.ProjectServiceOption
	if cfg.QueueEnabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		qc := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer qc.Close()
		opts = append(opts, services.WithEnqueuer(tasks.NewEnqueuer(qc, tasks.DefaultQueue)))
		log.Info("estimate queue enabled", zap.String("redis", cfg.RedisAddr))
	}

	projectRepo := repository.NewProjectRepository(db)
	projectSvc := services.NewProjectService(projectRepo, orch, gen, serverCreds, opts...)

	cat, err := catalog.Default()
	if err != nil {
		log.Fatal("material catalog is invalid", zap.Error(err))
	}

	limiter := mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	var secret []byte
	if cfg.AuthHMACSecret != "" {
		secret = []byte(cfg.AuthHMACSecret)
	} else {
		log.Warn("AUTH_HMAC_SECRET not set, project routes are unauthenticated")
	}

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		HMACSecret:      secret,
		CORSOrigins:     cfg.CORSOriginList(),
		Metrics:         m,
		RateLimiter:     limiter,
		HealthHandler:   handlers.NewHealthHandler(checks),
		AnalyzeHandler:  handlers.NewAnalyzeHandler(orch, serverCreds),
		ProjectsHandler: handlers.NewProjectsHandler(projectSvc),
		CatalogHandler:  handlers.NewCatalogHandler(cat),
		ScheduleHandler: handlers.NewScheduleHandler(),
	})

	// Create HTTP server; provider calls can take most of a minute per attempt.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3*cfg.ProviderTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
