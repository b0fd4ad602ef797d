package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Transfer moves stock from one source to one or more outlets as a single
// unit. Every check runs before the first write; nothing is applied when any
// check fails. Transfers do not touch usage counters.
func (s *Service) Transfer(ctx context.Context, input TransferInput, requestKey string) (TransferRecord, error) {
	var record TransferRecord
	err := s.commit(ctx, "transfer", requestKey, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		source, err := s.resolveSource(ctx, tx, input.Source)
		if err != nil {
			return err
		}
		destinations, err := normalizeDestinations(input.Destinations, source.Location)
		if err != nil {
			return err
		}
		total, err := destinationTotal(destinations)
		if err != nil {
			return err
		}
		legs := make([]TransferDestination, 0, len(destinations))
		for _, d := range destinations {
			outlet, err := tx.GetOutlet(ctx, d.OutletID)
			if err != nil {
				return err
			}
			legs = append(legs, TransferDestination{OutletID: outlet.ID, OutletName: outlet.Name, Qty: d.Quantity})
		}

		ledger := NewLedger(tx)
		available, err := ledger.Get(ctx, product.ID, source.Location)
		if err != nil {
			return err
		}
		if total > available {
			return &InsufficientStockError{ProductID: product.ID, LocationKey: source.Key, Available: available, Requested: total}
		}
		credited := make([]int64, len(legs))
		for i, leg := range legs {
			dest := location.Outlet(leg.OutletID)
			before, err := ledger.Get(ctx, product.ID, dest)
			if err != nil {
				return err
			}
			if credited[i], err = addQuantity(before, leg.Qty); err != nil {
				return fmt.Errorf("%w at %s", err, dest.Key())
			}
		}

		if err := ledger.Set(ctx, product.ID, source.Location, available-total); err != nil {
			return err
		}
		for i, leg := range legs {
			if err := ledger.Set(ctx, product.ID, location.Outlet(leg.OutletID), credited[i]); err != nil {
				return err
			}
		}

		note := strings.TrimSpace(input.Note)
		if note == "" {
			note = DefaultTransferNote
		}
		record = TransferRecord{
			ID:             uuid.NewString(),
			ProductID:      product.ID,
			ProductName:    product.Name,
			SourceKind:     source.Location.Kind,
			SourceOutletID: source.Location.OutletID,
			SourceLabel:    source.Label,
			Destinations:   legs,
			TotalQty:       total,
			Note:           note,
			CreatedAt:      s.now().UTC(),
		}
		return tx.InsertTransfer(ctx, record)
	})
	if err != nil {
		return s.rejectTransfer(err)
	}
	s.afterTransfer(ctx, record, input.ActorID)
	return record, nil
}

// normalizeDestinations drops legs without an outlet id and enforces the
// quantity and uniqueness rules. Outlet existence is checked by the caller.
func normalizeDestinations(in []DestinationInput, source location.Location) ([]DestinationInput, error) {
	out := make([]DestinationInput, 0, len(in))
	for _, d := range in {
		d.OutletID = strings.TrimSpace(d.OutletID)
		if d.OutletID == "" {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, ErrNoDestinations
	}
	for _, d := range out {
		if d.Quantity <= 0 {
			return nil, fmt.Errorf("%w: destination %s quantity must be a positive integer, got %d", ErrInvalidQuantity, d.OutletID, d.Quantity)
		}
	}
	seen := make(map[string]struct{}, len(out))
	for _, d := range out {
		if _, ok := seen[d.OutletID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDestination, d.OutletID)
		}
		seen[d.OutletID] = struct{}{}
	}
	if !source.IsCentral() {
		if _, ok := seen[source.OutletID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDestinationIsSource, source.OutletID)
		}
	}
	return out, nil
}

// destinationTotal sums the leg quantities, rejecting totals that do not fit
// in a balance.
func destinationTotal(destinations []DestinationInput) (int64, error) {
	var total int64
	for _, d := range destinations {
		next, err := addQuantity(total, d.Quantity)
		if err != nil {
			return 0, fmt.Errorf("%w: transfer total", ErrQuantityOverflow)
		}
		total = next
	}
	return total, nil
}

func (s *Service) resolveSource(ctx context.Context, tx TxRepository, source location.Location) (location.Resolved, error) {
	source.OutletID = strings.TrimSpace(source.OutletID)
	if err := source.Validate(); err != nil {
		return location.Resolved{}, fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}
	directory := location.MapDirectory{}
	if !source.IsCentral() {
		outlet, err := tx.GetOutlet(ctx, source.OutletID)
		if err != nil {
			return location.Resolved{}, err
		}
		directory[outlet.ID] = outlet.Name
	}
	return location.NewResolver(directory).Resolve(source.Kind, source.OutletID)
}

func (s *Service) rejectTransfer(err error) (TransferRecord, error) {
	if s.metrics != nil {
		s.metrics.OperationRejected("transfer", err)
	}
	s.logger.Info("inventory operation rejected", slog.String("op", "transfer"), slog.Any("error", err))
	return TransferRecord{}, err
}

func (s *Service) afterTransfer(ctx context.Context, t TransferRecord, actorID string) {
	if s.metrics != nil {
		s.metrics.TransferRecorded(len(t.Destinations))
	}
	s.logger.Info("transfer recorded",
		slog.String("id", t.ID),
		slog.String("product_id", t.ProductID),
		slog.String("source", t.Source().Key()),
		slog.Int("destinations", len(t.Destinations)),
		slog.Int64("total_qty", t.TotalQty))

	locations := make([]location.Location, 0, len(t.Destinations)+1)
	locations = append(locations, t.Source())
	legs := make([]map[string]any, 0, len(t.Destinations))
	for _, d := range t.Destinations {
		locations = append(locations, location.Outlet(d.OutletID))
		legs = append(legs, map[string]any{"outlet_id": d.OutletID, "qty": d.Qty})
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "inventory:transfer",
		Entity:   "stock_transfer",
		EntityID: t.ID,
		Meta: map[string]any{
			"source":       t.Source().Key(),
			"destinations": legs,
			"total_qty":    t.TotalQty,
			"note":         t.Note,
		},
		At: t.CreatedAt,
	})
	s.publish(ctx, CommittedEvent{
		Kind:      EventTransfer,
		RecordID:  t.ID,
		ProductID: t.ProductID,
		Locations: locations,
		At:        t.CreatedAt,
	})
}
