package audithttp

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/audit"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

var errFilter = errors.New("invalid filter")

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	now     func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	filters, fields := h.parseFilters(r)
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	filters, fields := h.parseFilters(r)
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.fail(w, "export audit timeline", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if err := writeCSV(w, rows); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// authorized limits the timeline to callers with unrestricted scope since
// entries span every location.
func authorized(r *http.Request) bool {
	return shared.ScopeFromContext(r.Context()).Unrestricted
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, map[string]string) {
	values := r.URL.Query()
	fields := map[string]string{}
	now := h.now()

	to := now
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			fields["to"] = err.Error()
		} else {
			to = parsed
		}
	}
	from := to.Add(-defaultDateRange)
	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			fields["from"] = err.Error()
		} else {
			from = parsed
		}
	}
	if len(fields) == 0 {
		switch {
		case from.After(to):
			fields["from"] = "must not be after to"
		case to.Sub(from) > maxDateRange:
			fields["from"] = "range must not exceed 90 days"
		}
	}

	page := parsePositive(values.Get("page"), "page", fields)
	pageSize := parsePositive(values.Get("page_size"), "page_size", fields)

	return audit.TimelineFilters{
		From:     from,
		To:       to,
		Actor:    values.Get("actor"),
		Entity:   values.Get("entity"),
		Action:   values.Get("action"),
		Page:     page,
		PageSize: pageSize,
	}, fields
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: use RFC3339 or YYYY-MM-DD", errFilter)
}

func parsePositive(raw, field string, fields map[string]string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		fields[field] = "must be a positive integer"
		return 0
	}
	return n
}

func writeCSV(w http.ResponseWriter, rows []audit.TimelineRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"at", "actor", "action", "entity", "entity_id", "meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			meta = string(raw)
		}
		record := []string{row.At.UTC().Format(time.RFC3339), row.Actor, row.Action, row.Entity, row.EntityID, meta}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("audit request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
