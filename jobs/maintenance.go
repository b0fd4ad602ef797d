package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/jobs"
)

// Bumper invalidates cached analytics.
type Bumper interface {
	Bump(ctx context.Context) error
}

// CacheBumpJob advances the analytics cache version.
type CacheBumpJob struct {
	Cache   Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes cache bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskAnalyticsCacheBump)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if err := j.Cache.Bump(ctx); err != nil {
		loggerOrDefault(j.Logger).Warn("bump analytics cache", slog.Any("error", err))
		return err
	}
	return nil
}

// Cleaner purges processed idempotency keys.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob removes keys older than the task's retention, or
// DefaultRetention when the payload omits it.
type IdempotencyCleanupJob struct {
	Store            Cleaner
	DefaultRetention time.Duration
	Logger           *slog.Logger
	Metrics          *jobmetrics.Metrics
}

// Handle processes idempotency cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.DefaultRetention
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskIdempotencyCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		return err
	}
	loggerOrDefault(j.Logger).Info("purged idempotency keys", slog.Duration("retention", retention))
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
