package masterdata

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
)

// Handler exposes master data CRUD over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Handler{logger: logger, service: service, validator: validate}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/masterdata", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Get("/products/{id}", h.getProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)

		r.Get("/outlets", h.listOutlets)
		r.Post("/outlets", h.createOutlet)
		r.Get("/outlets/{id}", h.getOutlet)
		r.Put("/outlets/{id}", h.updateOutlet)
		r.Delete("/outlets/{id}", h.deleteOutlet)

		r.Get("/categories", h.listCategories)
		r.Post("/categories", h.createCategory)
		r.Delete("/categories/{id}", h.deleteCategory)

		r.Get("/units", h.listUnits)
		r.Post("/units", h.createUnit)
		r.Delete("/units/{id}", h.deleteUnit)
	})
}

type productRequest struct {
	Name         string      `json:"name" validate:"required,max=200"`
	SKU          string      `json:"sku" validate:"required,max=64"`
	CentralStock json.Number `json:"central_stock"`
	MinStock     json.Number `json:"min_stock"`
	CategoryID   string      `json:"category_id"`
	UnitID       string      `json:"unit_id"`
}

type outletRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
}

type namedRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{
		Search:     r.URL.Query().Get("search"),
		CategoryID: r.URL.Query().Get("category_id"),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filters.Limit = limit
	}
	products, err := h.service.ListProducts(r.Context(), filters)
	h.respond(w, "list products", http.StatusOK, products, err)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, "get product", http.StatusOK, product, err)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromRequest(w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateProduct(r.Context(), product)
	h.respond(w, "create product", http.StatusCreated, created, err)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromRequest(w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), product)
	h.respond(w, "update product", http.StatusOK, updated, err)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	h.respondNoContent(w, "delete product", err)
}

func (h *Handler) listOutlets(w http.ResponseWriter, r *http.Request) {
	outlets, err := h.service.ListOutlets(r.Context())
	h.respond(w, "list outlets", http.StatusOK, outlets, err)
}

func (h *Handler) getOutlet(w http.ResponseWriter, r *http.Request) {
	outlet, err := h.service.GetOutlet(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, "get outlet", http.StatusOK, outlet, err)
}

func (h *Handler) createOutlet(w http.ResponseWriter, r *http.Request) {
	var req outletRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateOutlet(r.Context(), Outlet{Code: req.Code, Name: req.Name, Address: req.Address})
	h.respond(w, "create outlet", http.StatusCreated, created, err)
}

func (h *Handler) updateOutlet(w http.ResponseWriter, r *http.Request) {
	var req outletRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.UpdateOutlet(r.Context(), chi.URLParam(r, "id"), Outlet{Code: req.Code, Name: req.Name, Address: req.Address})
	h.respond(w, "update outlet", http.StatusOK, updated, err)
}

func (h *Handler) deleteOutlet(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteOutlet(r.Context(), chi.URLParam(r, "id"))
	h.respondNoContent(w, "delete outlet", err)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	h.respond(w, "list categories", http.StatusOK, categories, err)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateCategory(r.Context(), Category{Name: req.Name})
	h.respond(w, "create category", http.StatusCreated, created, err)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	h.respondNoContent(w, "delete category", err)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	h.respond(w, "list units", http.StatusOK, units, err)
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var req namedRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateUnit(r.Context(), Unit{Name: req.Name})
	h.respond(w, "create unit", http.StatusCreated, created, err)
}

func (h *Handler) deleteUnit(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUnit(r.Context(), chi.URLParam(r, "id"))
	h.respondNoContent(w, "delete unit", err)
}

func (h *Handler) productFromRequest(w http.ResponseWriter, r *http.Request) (Product, bool) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return Product{}, false
	}
	fields := map[string]string{}
	central, ok := optionalWhole(req.CentralStock)
	if !ok {
		fields["central_stock"] = "must be a whole number"
	}
	minStock, ok := optionalWhole(req.MinStock)
	if !ok {
		fields["min_stock"] = "must be a whole number"
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return Product{}, false
	}
	return Product{
		Name:         req.Name,
		SKU:          req.SKU,
		CentralStock: central,
		MinStock:     minStock,
		CategoryID:   strings.TrimSpace(req.CategoryID),
		UnitID:       strings.TrimSpace(req.UnitID),
	}, true
}

func optionalWhole(n json.Number) (int64, bool) {
	if n == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	return v, err == nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		fields := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range errs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, op string, status int, data any, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, status, data)
}

func (h *Handler) respondNoContent(w http.ResponseWriter, op string, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("masterdata request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
