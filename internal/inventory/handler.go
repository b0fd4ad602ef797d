package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the ledger over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new inventory handler instance.
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

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/stock", h.handleGetStock)
		r.Get("/outlet-stock", h.handleOutletStock)
		r.Get("/movements", h.handleListMovements)
		r.Post("/movements", h.handleRecordMovement)
		r.Post("/opname", h.handleRecordOpname)
		r.Get("/transfers", h.handleListTransfers)
		r.Post("/transfers", h.handleTransfer)
	})
}

type movementRequest struct {
	ProductID string      `json:"product_id" validate:"required"`
	Type      string      `json:"type" validate:"required,oneof=in out"`
	Quantity  json.Number `json:"quantity" validate:"required"`
	Location  string      `json:"location" validate:"required"`
	Note      string      `json:"note" validate:"max=500"`
}

type opnameRequest struct {
	ProductID   string      `json:"product_id" validate:"required"`
	ActualStock json.Number `json:"actual_stock" validate:"required"`
	Location    string      `json:"location" validate:"required"`
	Note        string      `json:"note" validate:"max=500"`
}

type destinationRequest struct {
	OutletID string      `json:"outlet_id"`
	Quantity json.Number `json:"quantity"`
}

type transferRequest struct {
	ProductID    string               `json:"product_id" validate:"required"`
	Source       string               `json:"source" validate:"required"`
	Destinations []destinationRequest `json:"destinations" validate:"required,min=1"`
	Note         string               `json:"note" validate:"max=500"`
}

func (h *Handler) handleRecordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	body, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	fields := map[string]string{}
	qty, err := wholeNumber(req.Quantity)
	if err != nil {
		fields["quantity"] = err.Error()
	}
	loc, err := location.ParseKey(req.Location)
	if err != nil {
		fields["location"] = "must be central or outlet:<id>"
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	actor, ok := h.authorize(w, r, loc)
	if !ok {
		return
	}
	movement, err := h.service.RecordMovement(r.Context(), MovementInput{
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  qty,
		Type:      MovementType(req.Type),
		Note:      strings.TrimSpace(req.Note),
		Location:  loc,
		ActorID:   actor.ID,
	}, requestKey(r, body))
	if err != nil {
		h.fail(w, "record movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) handleRecordOpname(w http.ResponseWriter, r *http.Request) {
	var req opnameRequest
	body, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	fields := map[string]string{}
	actual, err := wholeNumber(req.ActualStock)
	if err != nil {
		fields["actual_stock"] = err.Error()
	}
	loc, err := location.ParseKey(req.Location)
	if err != nil {
		fields["location"] = "must be central or outlet:<id>"
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	actor, ok := h.authorize(w, r, loc)
	if !ok {
		return
	}
	movement, err := h.service.RecordOpname(r.Context(), OpnameInput{
		ProductID:   strings.TrimSpace(req.ProductID),
		ActualStock: actual,
		Note:        strings.TrimSpace(req.Note),
		Location:    loc,
		ActorID:     actor.ID,
	}, requestKey(r, body))
	if err != nil {
		h.fail(w, "record opname", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	body, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	fields := map[string]string{}
	source, err := location.ParseKey(req.Source)
	if err != nil {
		fields["source"] = "must be central or outlet:<id>"
	}
	destinations := make([]DestinationInput, 0, len(req.Destinations))
	for i, d := range req.Destinations {
		qty, err := wholeNumber(d.Quantity)
		if err != nil {
			fields[fmt.Sprintf("destinations[%d].quantity", i)] = err.Error()
			continue
		}
		destinations = append(destinations, DestinationInput{OutletID: d.OutletID, Quantity: qty})
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	actor, ok := h.authorize(w, r, source)
	if !ok {
		return
	}
	record, err := h.service.Transfer(r.Context(), TransferInput{
		ProductID:    strings.TrimSpace(req.ProductID),
		Source:       source,
		Destinations: destinations,
		Note:         req.Note,
		ActorID:      actor.ID,
	}, requestKey(r, body))
	if err != nil {
		h.fail(w, "transfer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	loc, err := location.ParseKey(values.Get("location"))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"location": "must be central or outlet:<id>"})
		return
	}
	if _, ok := h.authorize(w, r, loc); !ok {
		return
	}
	productID := values.Get("product_id")
	qty, err := h.service.GetStock(r.Context(), productID, loc)
	if err != nil {
		h.fail(w, "get stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"location":   loc.Key(),
		"qty":        qty,
	})
}

func (h *Handler) handleOutletStock(w http.ResponseWriter, r *http.Request) {
	outletID := strings.TrimSpace(r.URL.Query().Get("outlet_id"))
	scope := shared.ScopeFromContext(r.Context())
	if outletID != "" && !scope.AllowsOutlet(outletID) {
		httpx.RespondError(w, fmt.Errorf("outlet %s: %w", outletID, shared.ErrForbidden))
		return
	}
	rows, err := h.service.ListOutletStock(r.Context(), outletID)
	if err != nil {
		h.fail(w, "list outlet stock", err)
		return
	}
	visible := rows[:0]
	for _, row := range rows {
		if scope.AllowsOutlet(row.OutletID) {
			visible = append(visible, row)
		}
	}
	httpx.JSON(w, http.StatusOK, visible)
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	filter, scope, ok := h.historyFilter(w, r)
	if !ok {
		return
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.fail(w, "list movements", err)
		return
	}
	visible := make([]Movement, 0, len(movements))
	for _, m := range movements {
		if scope.Allows(m.Location()) {
			visible = append(visible, m)
		}
	}
	httpx.JSON(w, http.StatusOK, visible)
}

func (h *Handler) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	filter, scope, ok := h.historyFilter(w, r)
	if !ok {
		return
	}
	transfers, err := h.service.ListTransfers(r.Context(), filter)
	if err != nil {
		h.fail(w, "list transfers", err)
		return
	}
	visible := make([]TransferRecord, 0, len(transfers))
	for _, t := range transfers {
		if transferInScope(scope, t) {
			visible = append(visible, t)
		}
	}
	httpx.JSON(w, http.StatusOK, visible)
}

func transferInScope(scope location.Scope, t TransferRecord) bool {
	if scope.Allows(t.Source()) {
		return true
	}
	for _, d := range t.Destinations {
		if scope.AllowsOutlet(d.OutletID) {
			return true
		}
	}
	return false
}

func (h *Handler) historyFilter(w http.ResponseWriter, r *http.Request) (HistoryFilter, location.Scope, bool) {
	values := r.URL.Query()
	fields := map[string]string{}
	filter := HistoryFilter{ProductID: strings.TrimSpace(values.Get("product_id"))}
	var err error
	if filter.Filter, err = location.ParseFilter(values.Get("location")); err != nil {
		fields["location"] = "must be all, central or outlet:<id>"
	}
	if raw := values.Get("from"); raw != "" {
		if filter.From, err = time.Parse(time.RFC3339, raw); err != nil {
			fields["from"] = "must be an RFC3339 timestamp"
		}
	}
	if raw := values.Get("to"); raw != "" {
		if filter.To, err = time.Parse(time.RFC3339, raw); err != nil {
			fields["to"] = "must be an RFC3339 timestamp"
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 1 {
			fields["limit"] = "must be a positive integer"
		}
	}
	if len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return HistoryFilter{}, location.Scope{}, false
	}
	scope := shared.ScopeFromContext(r.Context())
	if err := scope.Check(filter.Filter); err != nil {
		httpx.RespondError(w, fmt.Errorf("%v: %w", err, shared.ErrForbidden))
		return HistoryFilter{}, location.Scope{}, false
	}
	return filter, scope, true
}

// decode reads the body, decodes it into dst and runs struct validation.
// The raw body is returned for the idempotency fingerprint.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrMalformedBody, err))
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	if err := h.validator.Struct(dst); err != nil {
		fields := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range errs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return nil, false
	}
	return body, true
}

// authorize rejects locations outside the caller's scope.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, loc location.Location) (shared.Actor, bool) {
	actor, _ := shared.ActorFromContext(r.Context())
	if !shared.ScopeFromContext(r.Context()).Allows(loc) {
		httpx.RespondError(w, fmt.Errorf("location %s: %w", loc.Key(), shared.ErrForbidden))
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("inventory request failed", slog.String("op", op), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func requestKey(r *http.Request, body []byte) string {
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" {
		return ""
	}
	return shared.IdempotencyKey(key, body)
}

var errWholeNumber = errors.New("must be a whole number")

// wholeNumber accepts integral JSON numbers only, so 2.5 or 1e3 are
// rejected rather than truncated.
func wholeNumber(n json.Number) (int64, error) {
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, errWholeNumber
	}
	return v, nil
}
