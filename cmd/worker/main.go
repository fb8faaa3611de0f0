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

	"github.com/blueprintpro/estimator/pkg/config"
	"github.com/blueprintpro/estimator/pkg/database"
	"github.com/blueprintpro/estimator/pkg/logger"
	"github.com/blueprintpro/estimator/pkg/metrics"

	"github.com/blueprintpro/estimator/internal/estimate"
	"github.com/blueprintpro/estimator/internal/orchestrator"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/queue/tasks"
	"github.com/blueprintpro/estimator/internal/repository"
	"github.com/blueprintpro/estimator/internal/services"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !cfg.QueueEnabled() {
		log.Fatal("REDIS_ADDR is required for the worker")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
			Queues:      map[string]int{tasks.DefaultQueue: 1},
		},
	)

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	m := metrics.New()
	adapters := providers.Build(cfg, &http.Client{Timeout: cfg.ProviderTimeout + 5*time.Second})
	analyzers := make([]providers.Provider, 0, len(adapters))
	generators := make([]providers.Generator, 0, len(adapters))
	for _, a := range adapters {
		analyzers = append(analyzers, a)
		generators = append(generators, a)
	}

	// Queued jobs only ever see server-side keys.
	projectSvc := services.NewProjectService(
		repository.NewProjectRepository(db),
		orchestrator.New(analyzers, orchestrator.Options{AttemptTimeout: cfg.ProviderTimeout, Metrics: m}),
		estimate.New(generators, estimate.Options{Timeout: cfg.ProviderTimeout, Metrics: m}),
		providers.ServerCredentials(cfg),
	)

	mux := asynq.NewServeMux()
	handler := tasks.NewEstimateTaskHandler(projectSvc)
	mux.HandleFunc(tasks.TypeEstimateGenerate, handler.HandleEstimate)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Let in-flight estimates finish
	srv.Shutdown()
}
