package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives ledger counters.
type Metrics interface {
	MovementRecorded(movementType MovementType, kind location.Kind)
	TransferRecorded(destinations int)
	OperationRejected(operation string, err error)
}

// ErrRetryable wraps transaction failures that did not commit anything, such
// as a timeout while waiting for row locks.
var ErrRetryable = fmt.Errorf("inventory: transaction aborted: %w", shared.ErrUnavailable)

// Service coordinates inventory operations. Every mutation validates fully
// and then commits inside a single repository transaction.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency shared.IdempotencyPort
	events      EventHandler
	metrics     Metrics
	logger      *slog.Logger
	txTimeout   time.Duration
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	TxTimeout time.Duration
}

// Dependencies groups the optional collaborators of Service.
type Dependencies struct {
	Audit       AuditPort
	Idempotency shared.IdempotencyPort
	Events      EventHandler
	Metrics     Metrics
	Logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps Dependencies, cfg ServiceConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       deps.Audit,
		idempotency: deps.Idempotency,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      logger,
		txTimeout:   cfg.TxTimeout,
		now:         time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// RecordMovement applies a receipt or issue.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput, requestKey string) (Movement, error) {
	if input.Quantity <= 0 {
		return s.rejectMovement("movement", fmt.Errorf("%w: quantity must be a positive integer, got %d", ErrInvalidQuantity, input.Quantity))
	}
	if input.Type != MovementIn && input.Type != MovementOut {
		return s.rejectMovement("movement", fmt.Errorf("%w: %q", ErrInvalidMovementType, input.Type))
	}
	var movement Movement
	err := s.commit(ctx, "movement", requestKey, func(ctx context.Context, tx TxRepository) error {
		product, resolved, err := s.loadTarget(ctx, tx, input.ProductID, input.Location)
		if err != nil {
			return err
		}
		ledger := NewLedger(tx)
		before, err := ledger.Get(ctx, product.ID, resolved.Location)
		if err != nil {
			return err
		}
		delta := input.Quantity
		if input.Type == MovementOut {
			if input.Quantity > before {
				return &InsufficientStockError{ProductID: product.ID, LocationKey: resolved.Key, Available: before, Requested: input.Quantity}
			}
			delta = -input.Quantity
		}
		after, err := addQuantity(before, delta)
		if err != nil {
			return fmt.Errorf("%w at %s", err, resolved.Key)
		}
		if err := ledger.Set(ctx, product.ID, resolved.Location, after); err != nil {
			return err
		}
		movement = s.newMovement(product, resolved, input.Type, input.Quantity, delta, after, input.Note)
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return err
		}
		return tx.IncrementUsage(ctx, resolved.Key, product.ID)
	})
	if err != nil {
		return s.rejectMovement("movement", err)
	}
	s.afterMovement(ctx, movement, input.ActorID)
	return movement, nil
}

// RecordOpname sets the balance at a location to the counted quantity and
// records the adjustment. A zero delta still produces a record.
func (s *Service) RecordOpname(ctx context.Context, input OpnameInput, requestKey string) (Movement, error) {
	if input.ActualStock < 0 {
		return s.rejectMovement("opname", fmt.Errorf("%w: counted stock must be a non-negative integer, got %d", ErrInvalidQuantity, input.ActualStock))
	}
	var movement Movement
	err := s.commit(ctx, "opname", requestKey, func(ctx context.Context, tx TxRepository) error {
		product, resolved, err := s.loadTarget(ctx, tx, input.ProductID, input.Location)
		if err != nil {
			return err
		}
		ledger := NewLedger(tx)
		before, err := ledger.Get(ctx, product.ID, resolved.Location)
		if err != nil {
			return err
		}
		delta := input.ActualStock - before
		if err := ledger.Set(ctx, product.ID, resolved.Location, input.ActualStock); err != nil {
			return err
		}
		movement = s.newMovement(product, resolved, MovementOpname, abs(delta), delta, input.ActualStock, input.Note)
		counted := input.ActualStock
		movement.CountedStock = &counted
		if err := tx.InsertMovement(ctx, movement); err != nil {
			return err
		}
		return tx.IncrementUsage(ctx, resolved.Key, product.ID)
	})
	if err != nil {
		return s.rejectMovement("opname", err)
	}
	s.afterMovement(ctx, movement, input.ActorID)
	return movement, nil
}

// GetStock returns the current quantity of a product at loc.
func (s *Service) GetStock(ctx context.Context, productID string, loc location.Location) (int64, error) {
	if productID == "" {
		return 0, fmt.Errorf("inventory: product id required: %w", shared.ErrValidation)
	}
	if err := loc.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}
	return s.repo.GetStock(ctx, productID, loc)
}

// ListOutletStock lists the sparse rows of one outlet, or all outlets when
// outletID is empty.
func (s *Service) ListOutletStock(ctx context.Context, outletID string) ([]OutletStock, error) {
	return s.repo.ListOutletStock(ctx, outletID)
}

// ListMovements returns movements newest first.
func (s *Service) ListMovements(ctx context.Context, filter HistoryFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, normalizeHistoryFilter(filter))
}

// ListTransfers returns transfers newest first.
func (s *Service) ListTransfers(ctx context.Context, filter HistoryFilter) ([]TransferRecord, error) {
	return s.repo.ListTransfers(ctx, normalizeHistoryFilter(filter))
}

func normalizeHistoryFilter(filter HistoryFilter) HistoryFilter {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if !filter.Filter.All && filter.Filter.Location.Kind == "" {
		filter.Filter = location.AllLocations()
	}
	return filter
}

// loadTarget locks the product and resolves the location label. Unknown
// outlets are rejected so no stock is booked against them.
func (s *Service) loadTarget(ctx context.Context, tx TxRepository, productID string, loc location.Location) (masterdata.Product, location.Resolved, error) {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return masterdata.Product{}, location.Resolved{}, err
	}
	if err := loc.Validate(); err != nil {
		return masterdata.Product{}, location.Resolved{}, fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}
	directory := location.MapDirectory{}
	if !loc.IsCentral() {
		outlet, err := tx.GetOutlet(ctx, loc.OutletID)
		if err != nil {
			return masterdata.Product{}, location.Resolved{}, err
		}
		directory[outlet.ID] = outlet.Name
	}
	resolved, err := location.NewResolver(directory).Resolve(loc.Kind, loc.OutletID)
	if err != nil {
		return masterdata.Product{}, location.Resolved{}, fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}
	return product, resolved, nil
}

func (s *Service) newMovement(product masterdata.Product, resolved location.Resolved, t MovementType, qty, delta, after int64, note string) Movement {
	if note == "" {
		note = t.DefaultNote()
	}
	return Movement{
		ID:            uuid.NewString(),
		ProductID:     product.ID,
		ProductName:   product.Name,
		Qty:           qty,
		Type:          t,
		Note:          note,
		Delta:         delta,
		BalanceAfter:  after,
		LocationKind:  resolved.Location.Kind,
		LocationID:    resolved.Location.OutletID,
		LocationLabel: resolved.Label,
		CreatedAt:     s.now().UTC(),
	}
}

// commit runs fn in one transaction guarded by the optional idempotency key
// and the configured transaction timeout.
func (s *Service) commit(ctx context.Context, op, requestKey string, fn func(context.Context, TxRepository) error) error {
	insertedKey := false
	if requestKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, requestKey, "inventory:"+op); err != nil {
			return err
		}
		insertedKey = true
	}
	txCtx := ctx
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	err := s.repo.WithTx(txCtx, fn)
	if err != nil {
		if insertedKey {
			if delErr := s.idempotency.Delete(ctx, requestKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("op", op), slog.Any("error", delErr))
			}
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrRetryable, err)
		}
		return err
	}
	return nil
}

func (s *Service) rejectMovement(op string, err error) (Movement, error) {
	if s.metrics != nil {
		s.metrics.OperationRejected(op, err)
	}
	s.logger.Info("inventory operation rejected", slog.String("op", op), slog.Any("error", err))
	return Movement{}, err
}

func (s *Service) afterMovement(ctx context.Context, m Movement, actorID string) {
	if s.metrics != nil {
		s.metrics.MovementRecorded(m.Type, m.LocationKind)
	}
	s.logger.Info("movement recorded",
		slog.String("id", m.ID),
		slog.String("type", string(m.Type)),
		slog.String("product_id", m.ProductID),
		slog.String("location", m.Location().Key()),
		slog.Int64("delta", m.Delta),
		slog.Int64("balance_after", m.BalanceAfter))
	meta := map[string]any{
		"location":      m.Location().Key(),
		"qty":           m.Qty,
		"delta":         m.Delta,
		"balance_after": m.BalanceAfter,
		"note":          m.Note,
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "inventory:" + string(m.Type),
		Entity:   "stock_movement",
		EntityID: m.ID,
		Meta:     meta,
		At:       m.CreatedAt,
	})
	s.publish(ctx, CommittedEvent{
		Kind:      EventMovement,
		RecordID:  m.ID,
		ProductID: m.ProductID,
		Locations: []location.Location{m.Location()},
		At:        m.CreatedAt,
	})
}

func (s *Service) recordAudit(ctx context.Context, entry shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", slog.String("entity_id", entry.EntityID), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, evt CommittedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.HandleLedgerCommitted(ctx, evt); err != nil {
		s.logger.Warn("ledger event handler failed", slog.String("kind", evt.Kind), slog.Any("error", err))
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
