package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

// tx stages writes until the callback returns successfully.
type tx struct {
	store *Store

	central   map[string]int64
	outlet    map[stockKey]int64
	movements []inventory.Movement
	transfers []inventory.TransferRecord
	usage     map[string]map[string]int64
}

// WithTx runs fn with exclusive access and applies its writes only when fn
// succeeds and ctx is still live.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{
		store:   s,
		central: make(map[string]int64),
		outlet:  make(map[stockKey]int64),
		usage:   make(map[string]map[string]int64),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.apply()
	return nil
}

func (t *tx) apply() {
	s := t.store
	for id, qty := range t.central {
		p := s.products[id]
		p.CentralStock = qty
		s.products[id] = p
	}
	for key, qty := range t.outlet {
		if qty == 0 {
			delete(s.outletStock, key)
			continue
		}
		s.outletStock[key] = qty
	}
	s.movements = append(s.movements, t.movements...)
	s.transfers = append(s.transfers, t.transfers...)
	for key, counts := range t.usage {
		if s.usage[key] == nil {
			s.usage[key] = make(map[string]int64)
		}
		for id, n := range counts {
			s.usage[key][id] += n
		}
	}
}

func (t *tx) GetProductForUpdate(_ context.Context, productID string) (masterdata.Product, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return masterdata.Product{}, fmt.Errorf("%w: %s", inventory.ErrProductNotFound, productID)
	}
	if qty, staged := t.central[productID]; staged {
		p.CentralStock = qty
	}
	return p, nil
}

func (t *tx) GetOutlet(_ context.Context, outletID string) (masterdata.Outlet, error) {
	o, ok := t.store.outlets[outletID]
	if !ok {
		return masterdata.Outlet{}, fmt.Errorf("%w: %s", inventory.ErrOutletNotFound, outletID)
	}
	return o, nil
}

func (t *tx) GetOutletStockForUpdate(_ context.Context, outletID, productID string) (int64, error) {
	key := stockKey{outletID: outletID, productID: productID}
	if qty, staged := t.outlet[key]; staged {
		return qty, nil
	}
	return t.store.outletStock[key], nil
}

func (t *tx) SetCentralStock(_ context.Context, productID string, qty int64) error {
	if _, ok := t.store.products[productID]; !ok {
		return fmt.Errorf("%w: %s", inventory.ErrProductNotFound, productID)
	}
	t.central[productID] = qty
	return nil
}

func (t *tx) UpsertOutletStock(_ context.Context, outletID, productID string, qty int64) error {
	t.outlet[stockKey{outletID: outletID, productID: productID}] = qty
	return nil
}

func (t *tx) DeleteOutletStock(_ context.Context, outletID, productID string) error {
	t.outlet[stockKey{outletID: outletID, productID: productID}] = 0
	return nil
}

func (t *tx) InsertMovement(_ context.Context, m inventory.Movement) error {
	t.movements = append(t.movements, cloneMovement(m))
	return nil
}

func (t *tx) InsertTransfer(_ context.Context, tr inventory.TransferRecord) error {
	t.transfers = append(t.transfers, cloneTransfer(tr))
	return nil
}

func (t *tx) IncrementUsage(_ context.Context, locationKey, productID string) error {
	if t.usage[locationKey] == nil {
		t.usage[locationKey] = make(map[string]int64)
	}
	t.usage[locationKey][productID]++
	return nil
}

// GetStock reads the committed balance.
func (s *Store) GetStock(_ context.Context, productID string, loc location.Location) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrProductNotFound, productID)
	}
	if loc.IsCentral() {
		return p.CentralStock, nil
	}
	return s.outletStock[stockKey{outletID: loc.OutletID, productID: productID}], nil
}

// ListOutletStock lists sparse rows, optionally for one outlet.
func (s *Store) ListOutletStock(_ context.Context, outletID string) ([]inventory.OutletStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outletStockLocked(outletID), nil
}

func (s *Store) outletStockLocked(outletID string) []inventory.OutletStock {
	rows := make([]inventory.OutletStock, 0, len(s.outletStock))
	for key, qty := range s.outletStock {
		if outletID != "" && key.outletID != outletID {
			continue
		}
		rows = append(rows, inventory.OutletStock{OutletID: key.outletID, ProductID: key.productID, Qty: qty})
	}
	slices.SortFunc(rows, func(a, b inventory.OutletStock) int {
		if a.OutletID != b.OutletID {
			if a.OutletID < b.OutletID {
				return -1
			}
			return 1
		}
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	return rows
}

// ListMovements returns matching movements newest first.
func (s *Store) ListMovements(_ context.Context, filter inventory.HistoryFilter) ([]inventory.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Movement, 0)
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if filter.ProductID != "" && m.ProductID != filter.ProductID {
			continue
		}
		if !filter.Filter.Matches(m.Location()) || !inRange(m.CreatedAt, filter) {
			continue
		}
		out = append(out, cloneMovement(m))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ListTransfers returns matching transfers newest first. An outlet filter
// matches the source or any destination.
func (s *Store) ListTransfers(_ context.Context, filter inventory.HistoryFilter) ([]inventory.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.TransferRecord, 0)
	for i := len(s.transfers) - 1; i >= 0; i-- {
		t := s.transfers[i]
		if filter.ProductID != "" && t.ProductID != filter.ProductID {
			continue
		}
		if !filter.Filter.All && !t.Touches(filter.Filter.Location) {
			continue
		}
		if !inRange(t.CreatedAt, filter) {
			continue
		}
		out = append(out, cloneTransfer(t))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
