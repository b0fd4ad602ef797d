package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/cmd/inventory/cli"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	analytichttp "github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics/http"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/app"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/audit"
	audithttp "github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/audit/http"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/observability"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/cache"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/ranking"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	tz, err := cfg.Location()
	if err != nil {
		return err
	}

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer backend.Close()

	metrics := observability.NewMetrics()

	var (
		analyticsCache *analytics.Cache
		events         inventory.EventHandlers
		jobHandler     *jobs.Handler
	)
	if cfg.CacheEnabled() {
		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		analyticsCache = analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL, analytics.WithChannel(cfg.AnalyticsInvalidation))
		if err := analyticsCache.ListenForInvalidation(ctx); err != nil {
			logger.Warn("analytics invalidation listener", slog.Any("error", err))
		}

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		jobClient := jobs.NewClient(redisOpts)
		defer func() { _ = jobClient.Close() }()
		inspector := asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()

		events = append(events, analyticsCache, jobs.NewLedgerEventEnqueuer(jobClient, cfg.WarmupWindow, logger))
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		logger.Info("REDIS_ADDR not set, analytics cache and background jobs disabled")
	}

	masterService := masterdata.NewService(backend.MasterData, analyticsCache, logger)
	inventoryService := inventory.NewService(backend.Ledger, inventory.Dependencies{
		Audit:       backend.Audit,
		Idempotency: backend.Idempotency,
		Events:      events,
		Metrics:     metrics,
		Logger:      logger,
	}, inventory.ServiceConfig{TxTimeout: cfg.LedgerTxTimeout})
	rankingService := ranking.NewService(backend.Ranking, masterService, logger)
	analyticsService := analytics.NewService(backend.Analytics, analyticsCache, logger, tz)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		InventoryHandler:  inventory.NewHandler(logger, inventoryService),
		MasterDataHandler: masterdata.NewHandler(logger, masterService),
		RankingHandler:    ranking.NewHandler(logger, rankingService),
		AnalyticsHandler:  analytichttp.NewHandler(logger, analyticsService),
		AuditHandler:      audithttp.NewHandler(logger, audit.NewService(backend.AuditTrail)),
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if !cfg.CacheEnabled() {
		return errors.New("REDIS_ADDR is required for job commands")
	}
	jobsCLI := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() { _ = jobsCLI.Close() }()

	if len(args) == 0 {
		return errors.New("usage: inventory jobs <trigger NAME|stats>")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: inventory jobs trigger NAME")
		}
		info, err := jobsCLI.Trigger(ctx, args[1], cfg.IdempotencyRetention)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s\n", info.Type, info.ID)
		return nil
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
}
