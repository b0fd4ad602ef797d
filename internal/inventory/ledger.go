package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
)

// Ledger owns the quantity per (product, location) inside one transaction.
// Central quantities are a field on the product; outlet quantities are
// sparse rows that exist only while positive.
type Ledger struct {
	tx TxRepository
}

// NewLedger binds a ledger to a transaction.
func NewLedger(tx TxRepository) *Ledger {
	return &Ledger{tx: tx}
}

// Get returns the quantity at loc, 0 when no outlet row exists.
func (l *Ledger) Get(ctx context.Context, productID string, loc location.Location) (int64, error) {
	if err := loc.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}
	if loc.IsCentral() {
		product, err := l.tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return 0, err
		}
		return product.CentralStock, nil
	}
	return l.tx.GetOutletStockForUpdate(ctx, loc.OutletID, productID)
}

// Set writes the quantity at loc. Negative values are rejected; a zero
// outlet balance deletes the sparse row while a zero central balance is
// written as is.
func (l *Ledger) Set(ctx context.Context, productID string, loc location.Location, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("%w: %d at %s", ErrInvalidQuantity, qty, loc.Key())
	}
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrLocationRequired, err)
	}
	if loc.IsCentral() {
		return l.tx.SetCentralStock(ctx, productID, qty)
	}
	if qty == 0 {
		return l.tx.DeleteOutletStock(ctx, loc.OutletID, productID)
	}
	return l.tx.UpsertOutletStock(ctx, loc.OutletID, productID, qty)
}

// Add applies delta at loc and returns the new balance.
func (l *Ledger) Add(ctx context.Context, productID string, loc location.Location, delta int64) (int64, error) {
	before, err := l.Get(ctx, productID, loc)
	if err != nil {
		return 0, err
	}
	after, err := addQuantity(before, delta)
	if err != nil {
		return 0, fmt.Errorf("%w at %s", err, loc.Key())
	}
	if err := l.Set(ctx, productID, loc, after); err != nil {
		return 0, err
	}
	return after, nil
}

// addQuantity returns a+b, failing with ErrQuantityOverflow instead of
// wrapping around.
func addQuantity(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrQuantityOverflow, a, b)
	}
	return a + b, nil
}
