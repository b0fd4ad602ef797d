package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	svc, repo, _, _ := seededService(t)
	router := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(router)
	return router, repo
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, scope location.Scope, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: "u-1", Role: "staff", Scope: scope}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRecordMovement(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/inventory/movements",
		`{"product_id":"p","type":"out","quantity":5,"location":"central"}`, location.FullScope(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var m Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, int64(45), m.BalanceAfter)
	require.Equal(t, int64(45), repo.state.products["p"].CentralStock)
}

func TestHandlerRejectsFractionalQuantity(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/inventory/movements",
		`{"product_id":"p","type":"in","quantity":2.5,"location":"central"}`, location.FullScope(), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, httpx.ProblemContentType, rec.Header().Get("Content-Type"))
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Contains(t, problem.Fields, "quantity")
	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)
}

func TestHandlerValidatesRequiredFields(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/inventory/movements",
		`{"type":"sideways","quantity":1,"location":"central"}`, location.FullScope(), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "required", problem.Fields["product_id"])
	require.Equal(t, "oneof", problem.Fields["type"])
}

func TestHandlerInsufficientStockIsConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/inventory/movements",
		`{"product_id":"p","type":"out","quantity":51,"location":"central"}`, location.FullScope(), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient-stock")
}

func TestHandlerEnforcesScope(t *testing.T) {
	router, repo := newTestRouter(t)
	outletOnly := location.NewScope(false, "a")

	rec := doJSON(t, router, http.MethodPost, "/inventory/opname",
		`{"product_id":"p","actual_stock":3,"location":"central"}`, outletOnly, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)

	rec = doJSON(t, router, http.MethodPost, "/inventory/opname",
		`{"product_id":"p","actual_stock":3,"location":"outlet:a"}`, outletOnly, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/inventory/movements?location=central", "", outletOnly, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerTransferAndHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/inventory/transfers",
		`{"product_id":"p","source":"central","destinations":[{"outlet_id":"a","quantity":4},{"outlet_id":"b","quantity":1}]}`,
		location.FullScope(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/inventory/transfers", "", location.NewScope(false, "b"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var transfers []TransferRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transfers))
	require.Len(t, transfers, 1)
	require.Equal(t, int64(5), transfers[0].TotalQty)

	rec = doJSON(t, router, http.MethodGet, "/inventory/stock?product_id=p&location=outlet:a", "", location.FullScope(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"product_id":"p","location":"outlet:a","qty":4}`, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/inventory/outlet-stock", "", location.NewScope(false, "b"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []OutletStock
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Equal(t, []OutletStock{{OutletID: "b", ProductID: "p", Qty: 1}}, rows)
}

func TestHandlerIdempotencyKey(t *testing.T) {
	router, repo := newTestRouter(t)
	body := `{"product_id":"p","type":"in","quantity":2,"location":"central"}`
	headers := map[string]string{IdempotencyHeader: "abc"}

	rec := doJSON(t, router, http.MethodPost, "/inventory/movements", body, location.FullScope(), headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/inventory/movements", body, location.FullScope(), headers)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, int64(52), repo.state.products["p"].CentralStock)
}
