package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/app"
	jobmetrics "github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/jobs"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/cache"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if !cfg.CacheEnabled() {
		return errors.New("REDIS_ADDR is required for the worker")
	}
	if cfg.StoreDriver == app.StoreMemory {
		logger.Warn("worker uses its own memory store; warmups will not see server writes")
	}
	tz, err := cfg.Location()
	if err != nil {
		return err
	}

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL, analytics.WithChannel(cfg.AnalyticsInvalidation))
	analyticsService := analytics.NewService(backend.Analytics, analyticsCache, logger, tz)
	metrics := jobmetrics.NewMetrics(nil)

	warmupJob := jobs.NewAnalyticsWarmupJob(analyticsService, backend.MasterData, logger, metrics)
	bumpJob := &jobs.CacheBumpJob{Cache: analyticsCache, Logger: logger, Metrics: metrics}
	cleanupJob := &jobs.IdempotencyCleanupJob{
		Store:            backend.Idempotency,
		DefaultRetention: cfg.IdempotencyRetention,
		Logger:           logger,
		Metrics:          metrics,
	}

	warmupTask, err := jobs.NewAnalyticsWarmupTask()
	if err != nil {
		return err
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyRetention)
	if err != nil {
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:    logger,
		Location:  tz,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAnalyticsCacheBump, Handler: bumpJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.CleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return err
	}
	logger.Info("worker started", slog.String("store", cfg.StoreDriver))
	return worker.Run(ctx)
}
