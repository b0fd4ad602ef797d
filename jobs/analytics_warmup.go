package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	jobmetrics "github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/jobs"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer is the analytics surface the warmup job drives.
type Warmer interface {
	ComputeKPIs(ctx context.Context, q analytics.Query) (analytics.KPISummary, error)
	LowStockPriorities(ctx context.Context, q analytics.Query) ([]analytics.LowStockItem, error)
	RecentActivity(ctx context.Context, q analytics.Query) ([]analytics.ActivityItem, error)
	TopActiveProducts(ctx context.Context, q analytics.Query) ([]analytics.ProductActivity, error)
	OutletSummaries(ctx context.Context, q analytics.Query) ([]analytics.OutletSummary, error)
	InactiveProducts(ctx context.Context, q analytics.Query) ([]analytics.InactiveProduct, error)
}

// OutletLister enumerates outlets to warm.
type OutletLister interface {
	ListOutlets(ctx context.Context) ([]masterdata.Outlet, error)
}

// AnalyticsWarmupJob pre-populates dashboard caches. Each location is warmed
// under the scope of a user restricted to that location, which is the
// cache key outlet staff hit.
type AnalyticsWarmupJob struct {
	Analytics Warmer
	Outlets   OutletLister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	// Limit matches the dashboard default page size.
	Limit int
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(warmer Warmer, outlets OutletLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{Analytics: warmer, Outlets: outlets, Logger: logger, Metrics: metrics, Limit: 5}
}

type warmTarget struct {
	filter location.Filter
	scope  location.Scope
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	targets, err := j.targets(ctx, payload.Locations)
	if err != nil {
		logger.Error("resolve warmup targets", slog.Any("error", err))
		return err
	}
	for _, target := range targets {
		if err := j.warm(ctx, target); err != nil {
			logger.Error("warm location", slog.String("location", target.filter.String()), slog.Any("error", err))
			return err
		}
	}
	logger.Info("completed analytics warmup", slog.Int("targets", len(targets)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *AnalyticsWarmupJob) targets(ctx context.Context, keys []string) ([]warmTarget, error) {
	if len(keys) == 0 {
		targets := []warmTarget{
			{filter: location.AllLocations(), scope: location.FullScope()},
			{filter: location.Only(location.Central()), scope: location.NewScope(true)},
		}
		if j.Outlets == nil {
			return targets, nil
		}
		outlets, err := j.Outlets.ListOutlets(ctx)
		if err != nil {
			return nil, err
		}
		for _, o := range outlets {
			targets = append(targets, warmTarget{filter: location.Only(location.Outlet(o.ID)), scope: location.NewScope(false, o.ID)})
		}
		return targets, nil
	}
	targets := make([]warmTarget, 0, len(keys)+1)
	targets = append(targets, warmTarget{filter: location.AllLocations(), scope: location.FullScope()})
	for _, key := range keys {
		loc, err := location.ParseKey(key)
		if err != nil {
			return nil, err
		}
		scope := location.NewScope(loc.IsCentral())
		if !loc.IsCentral() {
			scope = location.NewScope(false, loc.OutletID)
		}
		targets = append(targets, warmTarget{filter: location.Only(loc), scope: scope})
	}
	return targets, nil
}

func (j *AnalyticsWarmupJob) warm(ctx context.Context, target warmTarget) error {
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	base := analytics.Query{Filter: target.filter, Scope: target.scope, Limit: j.Limit}
	for _, period := range []analytics.Period{analytics.PeriodToday, analytics.PeriodLast7Days, analytics.PeriodLast30Days} {
		q := base
		q.Period = period
		if _, err := j.Analytics.ComputeKPIs(scopeCtx, q); err != nil {
			return err
		}
		if _, err := j.Analytics.RecentActivity(scopeCtx, q); err != nil {
			return err
		}
		if _, err := j.Analytics.TopActiveProducts(scopeCtx, q); err != nil {
			return err
		}
		if _, err := j.Analytics.OutletSummaries(scopeCtx, q); err != nil {
			return err
		}
	}
	if _, err := j.Analytics.LowStockPriorities(scopeCtx, base); err != nil {
		return err
	}
	_, err := j.Analytics.InactiveProducts(scopeCtx, base)
	return err
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
