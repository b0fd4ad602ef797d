package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Metrics collects the service's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movements       *prometheus.CounterVec
	transfers       prometheus.Counter
	destinations    prometheus.Histogram
	rejected        *prometheus.CounterVec
}

// NewMetrics builds a dedicated registry with HTTP and ledger collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_ledger_movements_total",
		Help: "Committed movements by type and location kind.",
	}, []string{"type", "location_kind"})
	transfers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_ledger_transfers_total",
		Help: "Committed transfers.",
	})
	destinations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_ledger_transfer_destinations",
		Help:    "Destinations per committed transfer.",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_ledger_rejected_total",
		Help: "Ledger operations rejected by operation and reason.",
	}, []string{"op", "reason"})
	registry.MustRegister(requests, duration, movements, transfers, destinations, rejected)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movements:       movements,
		transfers:       transfers,
		destinations:    destinations,
		rejected:        rejected,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// MovementRecorded implements inventory.Metrics.
func (m *Metrics) MovementRecorded(movementType inventory.MovementType, kind location.Kind) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(string(movementType), string(kind)).Inc()
}

// TransferRecorded implements inventory.Metrics.
func (m *Metrics) TransferRecorded(destinations int) {
	if m == nil {
		return
	}
	m.transfers.Inc()
	m.destinations.Observe(float64(destinations))
}

// OperationRejected implements inventory.Metrics.
func (m *Metrics) OperationRejected(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rejected.WithLabelValues(operation, rejectReason(err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrForbidden):
		return "forbidden"
	case errors.Is(err, shared.ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}

var _ inventory.Metrics = (*Metrics)(nil)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
