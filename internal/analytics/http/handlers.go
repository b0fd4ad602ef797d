package analytichttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

const (
	requestTimeout = 3 * time.Second
	defaultLimit   = 5
	maxLimit       = 100
)

// AnalyticsService defines the dashboard data contract used by the handler.
type AnalyticsService interface {
	ComputeKPIs(ctx context.Context, q analytics.Query) (analytics.KPISummary, error)
	LowStockPriorities(ctx context.Context, q analytics.Query) ([]analytics.LowStockItem, error)
	RecentActivity(ctx context.Context, q analytics.Query) ([]analytics.ActivityItem, error)
	TopActiveProducts(ctx context.Context, q analytics.Query) ([]analytics.ProductActivity, error)
	OutletSummaries(ctx context.Context, q analytics.Query) ([]analytics.OutletSummary, error)
	InactiveProducts(ctx context.Context, q analytics.Query) ([]analytics.InactiveProduct, error)
	Trend(ctx context.Context, r analytics.TrendRange, q analytics.Query) ([]analytics.TrendBucket, error)
	StockRows(ctx context.Context, q analytics.Query) ([]analytics.StockRow, error)
}

// Handler serves the stock analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Dashboard bundles every section of the dashboard page.
type Dashboard struct {
	KPIs      analytics.KPISummary        `json:"kpis"`
	LowStock  []analytics.LowStockItem    `json:"low_stock"`
	Activity  []analytics.ActivityItem    `json:"activity"`
	TopActive []analytics.ProductActivity `json:"top_active"`
	Outlets   []analytics.OutletSummary   `json:"outlets"`
	Inactive  []analytics.InactiveProduct `json:"inactive"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var data Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.KPIs, err = h.service.ComputeKPIs(ctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		data.LowStock, err = h.service.LowStockPriorities(ctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		data.Activity, err = h.service.RecentActivity(ctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		data.TopActive, err = h.service.TopActiveProducts(ctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		data.Outlets, err = h.service.OutletSummaries(ctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		data.Inactive, err = h.service.InactiveProducts(ctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

// section adapts one service call to an endpoint.
func section[T any](h *Handler, name string, load func(context.Context, analytics.Query) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := h.parseQuery(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		data, err := load(ctx, q)
		if err != nil {
			h.fail(w, name, err)
			return
		}
		httpx.JSON(w, http.StatusOK, data)
	}
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	rng, err := analytics.ParseTrendRange(r.URL.Query().Get("range"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	buckets, err := h.service.Trend(ctx, rng, q)
	if err != nil {
		h.fail(w, "trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, buckets)
}

// parseQuery reads period, location and limit. Parse errors are written to
// w and reported through ok.
func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (analytics.Query, bool) {
	values := r.URL.Query()
	fields := map[string]string{}
	period, err := analytics.ParsePeriod(values.Get("period"))
	if err != nil {
		fields["period"] = "must be today, last7days or last30days"
	}
	filter, err := location.ParseFilter(values.Get("location"))
	if err != nil {
		fields["location"] = "must be all, central or outlet:<id>"
	}
	limit := defaultLimit
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			fields["limit"] = "must be between 1 and " + strconv.Itoa(maxLimit)
		} else {
			limit = n
		}
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return analytics.Query{}, false
	}
	return analytics.Query{
		Period: period,
		Filter: filter,
		Scope:  shared.ScopeFromContext(r.Context()),
		Limit:  limit,
	}, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("analytics request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
