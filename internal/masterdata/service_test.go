package masterdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/store/memory"
)

type countingNotifier struct{ bumps int }

func (n *countingNotifier) Bump(context.Context) error {
	n.bumps++
	return nil
}

func TestProductSKUIsCaseInsensitive(t *testing.T) {
	notifier := &countingNotifier{}
	svc := masterdata.NewService(memory.New(), notifier, nil)
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, masterdata.Product{Name: " Gula ", SKU: "gl-01", CentralStock: 12})
	require.NoError(t, err)
	require.Equal(t, "Gula", first.Name)
	require.NotEmpty(t, first.ID)

	_, err = svc.CreateProduct(ctx, masterdata.Product{Name: "Gula Aren", SKU: "GL-01"})
	require.ErrorIs(t, err, masterdata.ErrDuplicateSKU)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, 1, notifier.bumps)
}

func TestUpdateProductKeepsCentralStock(t *testing.T) {
	svc := masterdata.NewService(memory.New(), nil, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, masterdata.Product{Name: "Kopi", SKU: "KP", CentralStock: 30})
	require.NoError(t, err)
	updated, err := svc.UpdateProduct(ctx, created.ID, masterdata.Product{Name: "Kopi Bubuk", SKU: "KP", CentralStock: 999, MinStock: 5})
	require.NoError(t, err)
	require.Equal(t, int64(30), updated.CentralStock)
	require.Equal(t, "Kopi Bubuk", updated.Name)

	stored, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(30), stored.CentralStock)
}

func TestProductValidation(t *testing.T) {
	svc := masterdata.NewService(memory.New(), nil, nil)
	ctx := context.Background()

	cases := []masterdata.Product{
		{Name: "", SKU: "A"},
		{Name: "A", SKU: "  "},
		{Name: "A", SKU: "A", MinStock: -1},
		{Name: "A", SKU: "A", CentralStock: -1},
	}
	for _, p := range cases {
		_, err := svc.CreateProduct(ctx, p)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
	_, err := svc.CreateProduct(ctx, masterdata.Product{Name: "A", SKU: "A", CategoryID: "missing"})
	require.ErrorIs(t, err, masterdata.ErrCategoryNotFound)
}

func TestClassificationDeletionGuard(t *testing.T) {
	svc := masterdata.NewService(memory.New(), nil, nil)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, masterdata.Category{Name: "Minuman"})
	require.NoError(t, err)
	unit, err := svc.CreateUnit(ctx, masterdata.Unit{Name: "pcs"})
	require.NoError(t, err)
	p, err := svc.CreateProduct(ctx, masterdata.Product{Name: "Teh", SKU: "T", CategoryID: cat.ID, UnitID: unit.ID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteCategory(ctx, cat.ID), masterdata.ErrInUse)
	require.ErrorIs(t, svc.DeleteUnit(ctx, unit.ID), masterdata.ErrInUse)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	require.NoError(t, svc.DeleteCategory(ctx, cat.ID))
	require.NoError(t, svc.DeleteUnit(ctx, unit.ID))
}

func TestOutletCodeUnique(t *testing.T) {
	svc := masterdata.NewService(memory.New(), nil, nil)
	ctx := context.Background()

	a, err := svc.CreateOutlet(ctx, masterdata.Outlet{Code: "JKT", Name: "Jakarta"})
	require.NoError(t, err)
	b, err := svc.CreateOutlet(ctx, masterdata.Outlet{Code: "BDG", Name: "Bandung"})
	require.NoError(t, err)

	_, err = svc.UpdateOutlet(ctx, b.ID, masterdata.Outlet{Code: "JKT", Name: "Bandung"})
	require.ErrorIs(t, err, masterdata.ErrDuplicateOutletCode)

	renamed, err := svc.UpdateOutlet(ctx, a.ID, masterdata.Outlet{Code: "JKT", Name: "Jakarta Pusat"})
	require.NoError(t, err)
	require.Equal(t, a.CreatedAt, renamed.CreatedAt)
}

func TestHandlerProductLifecycle(t *testing.T) {
	router := chi.NewRouter()
	masterdata.NewHandler(nil, masterdata.NewService(memory.New(), nil, nil)).MountRoutes(router)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/masterdata/products", `{"name":"Beras","sku":"BR-5","central_stock":1.5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "central_stock")

	rec = do(http.MethodPost, "/masterdata/products", `{"sku":"BR-5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"required"`)

	rec = do(http.MethodPost, "/masterdata/products", `{"name":"Beras","sku":"BR-5","central_stock":40,"min_stock":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(http.MethodPost, "/masterdata/products", `{"name":"Beras Merah","sku":"br-5"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodGet, "/masterdata/products?search=beras", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"central_stock":40`)

	rec = do(http.MethodGet, "/masterdata/products/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
