package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

var errRepositoryNotInitialised = errors.New("inventory repository not initialised")

// WithTx executes the callback inside repeatable-read transaction.
// Serialization failures surface as db.ErrTxAborted.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errRepositoryNotInitialised
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetStock reads the committed quantity without locking.
func (r *Repository) GetStock(ctx context.Context, productID string, loc location.Location) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errRepositoryNotInitialised
	}
	var qty int64
	if loc.IsCentral() {
		err := r.pool.QueryRow(ctx, `SELECT central_stock FROM products WHERE id=$1`, productID).Scan(&qty)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return qty, err
	}
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(
  (SELECT qty FROM outlet_stock WHERE outlet_id=$1 AND product_id=$2), 0)
FROM products WHERE id=$2`, loc.OutletID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return qty, err
}

// ListOutletStock lists sparse rows, optionally for a single outlet.
func (r *Repository) ListOutletStock(ctx context.Context, outletID string) ([]OutletStock, error) {
	if r == nil || r.pool == nil {
		return nil, errRepositoryNotInitialised
	}
	rows, err := r.pool.Query(ctx, `SELECT outlet_id, product_id, qty FROM outlet_stock
WHERE ($1 = '' OR outlet_id = $1)
ORDER BY outlet_id, product_id`, outletID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OutletStock, error) {
		var s OutletStock
		err := row.Scan(&s.OutletID, &s.ProductID, &s.Qty)
		return s, err
	})
}

// ListMovements returns movements newest first.
func (r *Repository) ListMovements(ctx context.Context, filter HistoryFilter) ([]Movement, error) {
	if r == nil || r.pool == nil {
		return nil, errRepositoryNotInitialised
	}
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ProductID != "" {
		where = append(where, "product_id = "+arg(filter.ProductID))
	}
	if !filter.Filter.All {
		if filter.Filter.Location.IsCentral() {
			where = append(where, "location_kind = 'central'")
		} else {
			where = append(where, "location_kind = 'outlet' AND location_id = "+arg(filter.Filter.Location.OutletID))
		}
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= "+arg(filter.To))
	}
	query := `SELECT id, product_id, product_name, qty, type, note, delta, balance_after, counted_stock,
  location_kind, COALESCE(location_id, ''), location_label, created_at
FROM stock_movements`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY created_at DESC, id DESC\nLIMIT " + arg(filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMovement)
}

func scanMovement(row pgx.CollectableRow) (Movement, error) {
	var (
		m       Movement
		kind    string
		mType   string
		counted *int64
	)
	err := row.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Qty, &mType, &m.Note, &m.Delta, &m.BalanceAfter, &counted,
		&kind, &m.LocationID, &m.LocationLabel, &m.CreatedAt)
	m.Type = MovementType(mType)
	m.LocationKind = location.Kind(kind)
	m.CountedStock = counted
	return m, err
}

// ListTransfers returns transfers newest first with their destinations.
func (r *Repository) ListTransfers(ctx context.Context, filter HistoryFilter) ([]TransferRecord, error) {
	if r == nil || r.pool == nil {
		return nil, errRepositoryNotInitialised
	}
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ProductID != "" {
		where = append(where, "t.product_id = "+arg(filter.ProductID))
	}
	if !filter.Filter.All {
		if filter.Filter.Location.IsCentral() {
			where = append(where, "t.source_kind = 'central'")
		} else {
			id := arg(filter.Filter.Location.OutletID)
			where = append(where, "(t.source_outlet_id = "+id+
				" OR EXISTS (SELECT 1 FROM stock_transfer_destinations d WHERE d.transfer_id = t.id AND d.outlet_id = "+id+"))")
		}
	}
	if !filter.From.IsZero() {
		where = append(where, "t.created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "t.created_at <= "+arg(filter.To))
	}
	query := `SELECT t.id, t.product_id, t.product_name, t.source_kind, COALESCE(t.source_outlet_id, ''), t.source_label,
  t.total_qty, t.note, t.created_at
FROM stock_transfers t`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY t.created_at DESC, t.id DESC\nLIMIT " + arg(filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	transfers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TransferRecord, error) {
		var (
			t    TransferRecord
			kind string
		)
		err := row.Scan(&t.ID, &t.ProductID, &t.ProductName, &kind, &t.SourceOutletID, &t.SourceLabel,
			&t.TotalQty, &t.Note, &t.CreatedAt)
		t.SourceKind = location.Kind(kind)
		return t, err
	})
	if err != nil || len(transfers) == 0 {
		return transfers, err
	}
	ids := make([]string, len(transfers))
	index := make(map[string]int, len(transfers))
	for i, t := range transfers {
		ids[i] = t.ID
		index[t.ID] = i
	}
	destRows, err := r.pool.Query(ctx, `SELECT transfer_id, outlet_id, outlet_name, qty
FROM stock_transfer_destinations WHERE transfer_id = ANY($1) ORDER BY transfer_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer destRows.Close()
	for destRows.Next() {
		var (
			transferID string
			d          TransferDestination
		)
		if err := destRows.Scan(&transferID, &d.OutletID, &d.OutletName, &d.Qty); err != nil {
			return nil, err
		}
		i := index[transferID]
		transfers[i].Destinations = append(transfers[i].Destinations, d)
	}
	return transfers, destRows.Err()
}

// GetProductForUpdate locks the product row. Every ledger operation takes
// this lock first so operations on one product serialize.
func (r *txRepository) GetProductForUpdate(ctx context.Context, productID string) (masterdata.Product, error) {
	var p masterdata.Product
	err := r.tx.QueryRow(ctx, `SELECT id, name, sku, central_stock, min_stock, COALESCE(category_id, ''), COALESCE(unit_id, ''), created_at, updated_at
FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.SKU, &p.CentralStock, &p.MinStock, &p.CategoryID, &p.UnitID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return masterdata.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return masterdata.Product{}, err
	}
	return p, nil
}

func (r *txRepository) GetOutlet(ctx context.Context, outletID string) (masterdata.Outlet, error) {
	var o masterdata.Outlet
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, address, created_at, updated_at FROM outlets WHERE id=$1 FOR SHARE`, outletID).
		Scan(&o.ID, &o.Code, &o.Name, &o.Address, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return masterdata.Outlet{}, fmt.Errorf("%w: %s", ErrOutletNotFound, outletID)
		}
		return masterdata.Outlet{}, err
	}
	return o, nil
}

func (r *txRepository) GetOutletStockForUpdate(ctx context.Context, outletID, productID string) (int64, error) {
	var qty int64
	err := r.tx.QueryRow(ctx, `SELECT qty FROM outlet_stock WHERE outlet_id=$1 AND product_id=$2 FOR UPDATE`, outletID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (r *txRepository) SetCentralStock(ctx context.Context, productID string, qty int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET central_stock=$2, updated_at=NOW() WHERE id=$1`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return nil
}

func (r *txRepository) UpsertOutletStock(ctx context.Context, outletID, productID string, qty int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO outlet_stock (outlet_id, product_id, qty, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (outlet_id, product_id) DO UPDATE SET qty=EXCLUDED.qty, updated_at=NOW()`, outletID, productID, qty)
	return err
}

func (r *txRepository) DeleteOutletStock(ctx context.Context, outletID, productID string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM outlet_stock WHERE outlet_id=$1 AND product_id=$2`, outletID, productID)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (id, product_id, product_name, qty, type, note, delta, balance_after,
  counted_stock, location_kind, location_id, location_label, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		m.ID, m.ProductID, m.ProductName, m.Qty, string(m.Type), m.Note, m.Delta, m.BalanceAfter,
		m.CountedStock, string(m.LocationKind), nullString(m.LocationID), m.LocationLabel, m.CreatedAt)
	return err
}

func (r *txRepository) InsertTransfer(ctx context.Context, t TransferRecord) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_transfers (id, product_id, product_name, source_kind, source_outlet_id, source_label,
  total_qty, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.ProductID, t.ProductName, string(t.SourceKind), nullString(t.SourceOutletID), t.SourceLabel,
		t.TotalQty, t.Note, t.CreatedAt)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, d := range t.Destinations {
		batch.Queue(`INSERT INTO stock_transfer_destinations (transfer_id, position, outlet_id, outlet_name, qty)
VALUES ($1,$2,$3,$4,$5)`, t.ID, i, d.OutletID, d.OutletName, d.Qty)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) IncrementUsage(ctx context.Context, locationKey, productID string) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO product_usage (location_key, product_id, usage_count)
VALUES ($1,$2,1)
ON CONFLICT (location_key, product_id) DO UPDATE SET usage_count = product_usage.usage_count + 1`, locationKey, productID)
	return err
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
