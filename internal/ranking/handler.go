package ranking

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Handler serves ranked product lists and favorite toggles.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ranking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ranking/products", h.handleRanked)
	r.Post("/ranking/favorites/{productID}/toggle", h.handleToggle)
}

func (h *Handler) handleRanked(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	filters := masterdata.ListFilters{
		Search:     r.URL.Query().Get("search"),
		CategoryID: r.URL.Query().Get("category_id"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.ValidationProblem(w, map[string]string{"limit": "must be a positive integer"})
			return
		}
		filters.Limit = limit
	}
	entries, err := h.service.Ranked(r.Context(), loc, filters)
	if err != nil {
		h.fail(w, "ranked products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")
	favorite, err := h.service.ToggleFavorite(r.Context(), loc, productID)
	if err != nil {
		h.fail(w, "toggle favorite", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": productID, "location": loc.Key(), "favorite": favorite})
}

func (h *Handler) location(w http.ResponseWriter, r *http.Request) (location.Location, bool) {
	loc, err := location.ParseKey(r.URL.Query().Get("location"))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"location": "must be central or outlet:<id>"})
		return location.Location{}, false
	}
	if !shared.ScopeFromContext(r.Context()).Allows(loc) {
		httpx.RespondError(w, fmt.Errorf("location %s: %w", loc.Key(), shared.ErrForbidden))
		return location.Location{}, false
	}
	return loc, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("ranking request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
