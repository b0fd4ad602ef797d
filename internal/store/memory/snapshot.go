package memory

import (
	"context"
	"slices"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

var _ analytics.Source = (*Store)(nil)

// Snapshot implements analytics.Source under one read lock.
func (s *Store) Snapshot(_ context.Context, since time.Time) (analytics.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := analytics.Snapshot{
		Since:       since,
		Products:    sortedValues(s.products, func(p masterdata.Product) string { return p.Name }),
		Outlets:     sortedValues(s.outlets, func(o masterdata.Outlet) string { return o.Name }),
		Categories:  sortedValues(s.categories, func(c masterdata.Category) string { return c.Name }),
		Units:       sortedValues(s.units, func(u masterdata.Unit) string { return u.Name }),
		OutletStock: s.outletStockLocked(""),
	}
	type lastKey struct {
		productID string
		loc       location.Location
	}
	last := make(map[lastKey]time.Time)
	for _, m := range s.movements {
		k := lastKey{productID: m.ProductID, loc: m.Location()}
		if m.CreatedAt.After(last[k]) {
			last[k] = m.CreatedAt
		}
		if !m.CreatedAt.Before(since) {
			snap.Movements = append(snap.Movements, cloneMovement(m))
		}
	}
	for k, at := range last {
		snap.LastMovements = append(snap.LastMovements, analytics.LastMovement{ProductID: k.productID, Location: k.loc, At: at})
	}
	for _, t := range s.transfers {
		if !t.CreatedAt.Before(since) {
			snap.Transfers = append(snap.Transfers, cloneTransfer(t))
		}
	}
	slices.Reverse(snap.Movements)
	slices.Reverse(snap.Transfers)
	return snap, nil
}

