package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// MountRoutes registers stock analytics endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)

	r.Get("/analytics/dashboard", h.handleDashboard)
	r.Get("/analytics/kpis", section(h, "kpis", h.service.ComputeKPIs))
	r.Get("/analytics/low-stock", section(h, "low stock", h.service.LowStockPriorities))
	r.Get("/analytics/activity", section(h, "activity", h.service.RecentActivity))
	r.Get("/analytics/top-active", section(h, "top active", h.service.TopActiveProducts))
	r.Get("/analytics/outlets", section(h, "outlets", h.service.OutletSummaries))
	r.Get("/analytics/inactive", section(h, "inactive", h.service.InactiveProducts))
	r.Get("/analytics/trend", h.handleTrend)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/analytics/stock-rows", section(h, "stock rows", h.service.StockRows))
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := shared.ActorFromContext(r.Context()); ok && actor.ID != "" {
		return "user:" + actor.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
