package analytichttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

type stubService struct {
	last analytics.Query
	rng  analytics.TrendRange
}

func (s *stubService) check(q analytics.Query) error {
	s.last = q
	if err := q.Scope.Check(q.Filter); err != nil {
		return fmt.Errorf("%v: %w", err, shared.ErrForbidden)
	}
	return nil
}

func (s *stubService) ComputeKPIs(_ context.Context, q analytics.Query) (analytics.KPISummary, error) {
	return analytics.KPISummary{Period: q.Period, InQty: 7, OutQty: 45, NetQty: -38}, s.check(q)
}

func (s *stubService) LowStockPriorities(_ context.Context, q analytics.Query) ([]analytics.LowStockItem, error) {
	return []analytics.LowStockItem{{ProductID: "p", Gap: 5}}, s.check(q)
}

func (s *stubService) RecentActivity(_ context.Context, q analytics.Query) ([]analytics.ActivityItem, error) {
	return []analytics.ActivityItem{{Kind: analytics.KindMovement, RecordID: "m1"}}, s.check(q)
}

func (s *stubService) TopActiveProducts(_ context.Context, q analytics.Query) ([]analytics.ProductActivity, error) {
	return nil, s.check(q)
}

func (s *stubService) OutletSummaries(_ context.Context, q analytics.Query) ([]analytics.OutletSummary, error) {
	return nil, s.check(q)
}

func (s *stubService) InactiveProducts(_ context.Context, q analytics.Query) ([]analytics.InactiveProduct, error) {
	return nil, s.check(q)
}

func (s *stubService) Trend(_ context.Context, r analytics.TrendRange, q analytics.Query) ([]analytics.TrendBucket, error) {
	s.rng = r
	return []analytics.TrendBucket{{Label: "2026-10"}}, s.check(q)
}

func (s *stubService) StockRows(_ context.Context, q analytics.Query) ([]analytics.StockRow, error) {
	return []analytics.StockRow{{LocationKey: "central"}}, s.check(q)
}

func newRouter(svc AnalyticsService) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return r
}

func request(t *testing.T, h http.Handler, target string, scope location.Scope) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: "u1", Scope: scope}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboardLoadsAllSections(t *testing.T) {
	svc := &stubService{}
	rec := request(t, newRouter(svc), "/analytics/dashboard?period=last7days&location=outlet:a&limit=3", location.NewScope(false, "a"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(-38), body.KPIs.NetQty)
	require.Len(t, body.LowStock, 1)
	require.Equal(t, "m1", body.Activity[0].RecordID)
	require.Equal(t, analytics.PeriodLast7Days, svc.last.Period)
	require.Equal(t, 3, svc.last.Limit)
	require.Equal(t, location.Only(location.Outlet("a")), svc.last.Filter)
}

func TestDashboardRejectsBadQuery(t *testing.T) {
	rec := request(t, newRouter(&stubService{}), "/analytics/dashboard?period=yesterday&location=warehouse&limit=0", location.FullScope())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, httpx.ProblemContentType, rec.Header().Get("Content-Type"))

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Contains(t, problem.Fields, "period")
	require.Contains(t, problem.Fields, "location")
	require.Contains(t, problem.Fields, "limit")
}

func TestSectionOutsideScopeIsForbidden(t *testing.T) {
	rec := request(t, newRouter(&stubService{}), "/analytics/low-stock?location=central", location.NewScope(false, "a"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTrendRange(t *testing.T) {
	svc := &stubService{}
	h := newRouter(svc)
	rec := request(t, h, "/analytics/trend?range=yearly-5", location.FullScope())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, analytics.TrendYearly5, svc.rng)

	rec = request(t, h, "/analytics/trend?range=weekly", location.FullScope())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockRowsRateLimited(t *testing.T) {
	h := newRouter(&stubService{})
	for i := 0; i < 10; i++ {
		rec := request(t, h, "/analytics/stock-rows", location.FullScope())
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := request(t, h, "/analytics/stock-rows", location.FullScope())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
