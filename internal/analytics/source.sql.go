package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

// PGSource reads snapshots from PostgreSQL. Reads are not linearizable with
// ledger writes; each query sees its own committed state.
type PGSource struct {
	pool      *pgxpool.Pool
	inventory *inventory.Repository
	master    masterdata.Repository
}

// NewPGSource constructs PGSource.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{
		pool:      pool,
		inventory: inventory.NewRepository(pool),
		master:    masterdata.NewRepository(pool),
	}
}

// historyLimit bounds the rows loaded per history table.
const historyLimit = 50000

// Snapshot implements Source.
func (s *PGSource) Snapshot(ctx context.Context, since time.Time) (Snapshot, error) {
	snap := Snapshot{Since: since}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Products, err = s.master.ListProducts(ctx, masterdata.ListFilters{Limit: historyLimit})
		return err
	})
	g.Go(func() error {
		var err error
		snap.Outlets, err = s.master.ListOutlets(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Categories, err = s.master.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Units, err = s.master.ListUnits(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.OutletStock, err = s.inventory.ListOutletStock(ctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		snap.Movements, err = s.inventory.ListMovements(ctx, inventory.HistoryFilter{
			Filter: location.AllLocations(), From: since, Limit: historyLimit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		snap.Transfers, err = s.inventory.ListTransfers(ctx, inventory.HistoryFilter{
			Filter: location.AllLocations(), From: since, Limit: historyLimit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		snap.LastMovements, err = s.lastMovements(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *PGSource) lastMovements(ctx context.Context) ([]LastMovement, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_id, location_kind, COALESCE(location_id, ''), MAX(created_at)
FROM stock_movements
GROUP BY product_id, location_kind, location_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LastMovement, error) {
		var (
			lm   LastMovement
			kind string
		)
		err := row.Scan(&lm.ProductID, &kind, &lm.Location.OutletID, &lm.At)
		lm.Location.Kind = location.Kind(kind)
		return lm, err
	})
}
