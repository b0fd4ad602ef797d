package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Query scopes one aggregation request.
type Query struct {
	Period Period
	Filter location.Filter
	Scope  location.Scope
	Limit  int
}

// Service coordinates snapshot loading and aggregation with the cache layer.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	tz     *time.Location
	now    func() time.Time
	loads  singleflight.Group
}

// NewService wires a Source with an optional Cache helper. tz selects the
// calendar used for period windows and trend buckets.
func NewService(source Source, cache *Cache, logger *slog.Logger, tz *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tz == nil {
		tz = time.Local
	}
	return &Service{source: source, cache: cache, logger: logger, tz: tz, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

func (s *Service) clock() time.Time {
	return s.now().In(s.tz)
}

// ComputeKPIs returns the summary cards.
func (s *Service) ComputeKPIs(ctx context.Context, q Query) (KPISummary, error) {
	now := s.clock()
	since, _ := q.Period.Window(now)
	return cached(ctx, s, "kpi", q, now, since, func(a *Aggregator) KPISummary {
		return a.KPIs(q.Period, q.Filter)
	})
}

// LowStockPriorities returns products at or below their minimum.
func (s *Service) LowStockPriorities(ctx context.Context, q Query) ([]LowStockItem, error) {
	now := s.clock()
	q.Period = ""
	return cached(ctx, s, "low_stock", q, now, now, func(a *Aggregator) []LowStockItem {
		return a.LowStock(q.Filter, q.Limit)
	})
}

// RecentActivity returns the merged activity feed.
func (s *Service) RecentActivity(ctx context.Context, q Query) ([]ActivityItem, error) {
	now := s.clock()
	since, _ := q.Period.Window(now)
	return cached(ctx, s, "activity", q, now, since, func(a *Aggregator) []ActivityItem {
		return a.RecentActivity(q.Period, q.Filter, q.Limit)
	})
}

// TopActiveProducts returns the most moved products.
func (s *Service) TopActiveProducts(ctx context.Context, q Query) ([]ProductActivity, error) {
	now := s.clock()
	since, _ := q.Period.Window(now)
	return cached(ctx, s, "top_active", q, now, since, func(a *Aggregator) []ProductActivity {
		return a.TopActiveProducts(q.Period, q.Filter, q.Limit)
	})
}

// OutletSummaries returns per-outlet activity.
func (s *Service) OutletSummaries(ctx context.Context, q Query) ([]OutletSummary, error) {
	now := s.clock()
	since, _ := q.Period.Window(now)
	return cached(ctx, s, "outlets", q, now, since, func(a *Aggregator) []OutletSummary {
		return a.OutletSummaries(q.Period, q.Filter)
	})
}

// InactiveProducts returns products idle for the inactivity window. The
// period of q is ignored.
func (s *Service) InactiveProducts(ctx context.Context, q Query) ([]InactiveProduct, error) {
	now := s.clock()
	q.Period = ""
	return cached(ctx, s, "inactive", q, now, now, func(a *Aggregator) []InactiveProduct {
		return a.InactiveProducts(q.Filter, q.Limit)
	})
}

// Trend returns in/out buckets for r. The period of q is ignored.
func (s *Service) Trend(ctx context.Context, r TrendRange, q Query) ([]TrendBucket, error) {
	now := s.clock()
	q.Period = ""
	return cached(ctx, s, "trend:"+string(r), q, now, r.Start(now), func(a *Aggregator) []TrendBucket {
		return a.Trend(r, q.Filter)
	})
}

// StockRows returns the flat export rows.
func (s *Service) StockRows(ctx context.Context, q Query) ([]StockRow, error) {
	now := s.clock()
	q.Period = ""
	return cached(ctx, s, "stock_rows", q, now, now, func(a *Aggregator) []StockRow {
		return a.StockRows(q.Filter)
	})
}

// cached checks the scope, then serves the result from the cache or
// computes it from a fresh snapshot.
func cached[T any](ctx context.Context, s *Service, op string, q Query, now, since time.Time, compute func(*Aggregator) T) (T, error) {
	var zero T
	if err := q.Scope.Check(q.Filter); err != nil {
		return zero, fmt.Errorf("analytics: %v: %w", err, shared.ErrForbidden)
	}
	loader := func(ctx context.Context) (any, error) {
		snap, err := s.snapshot(ctx, since)
		if err != nil {
			return nil, err
		}
		return compute(NewAggregator(snap, q.Scope, now)), nil
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return zero, err
		}
		return value.(T), nil
	}

	key, err := s.cache.BuildKey(ctx, queryKey(op, q, now))
	if err == nil {
		var out T
		if err = s.cache.FetchJSON(ctx, key, &out, loader); err == nil {
			return out, nil
		}
	}
	if !errors.Is(err, ErrCacheUnavailable) {
		return zero, err
	}
	s.logger.Warn("analytics cache bypassed", slog.String("op", op), slog.Any("error", err))
	value, err := loader(ctx)
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// snapshotLoadTimeout bounds a shared snapshot load.
const snapshotLoadTimeout = 30 * time.Second

// snapshot collapses concurrent loads with the same cut-off. The shared load
// is detached from the caller that started it; each caller still returns
// when its own context ends.
func (s *Service) snapshot(ctx context.Context, since time.Time) (Snapshot, error) {
	key := strconv.FormatInt(since.UnixNano(), 10)
	ch := s.loads.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotLoadTimeout)
		defer cancel()
		return s.source.Snapshot(loadCtx, since)
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}
