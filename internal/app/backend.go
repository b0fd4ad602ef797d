package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/analytics"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/audit"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/db"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/ranking"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/store/memory"
)

// IdempotencyStore is the idempotency port plus retention cleanup.
type IdempotencyStore interface {
	shared.IdempotencyPort
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// Backend bundles the persistence adapters selected by STORE_DRIVER.
type Backend struct {
	Ledger      inventory.RepositoryPort
	MasterData  masterdata.Repository
	Ranking     ranking.Store
	Analytics   analytics.Source
	Idempotency IdempotencyStore
	Audit       inventory.AuditPort
	AuditTrail  audit.Repository
	Pool        *pgxpool.Pool
}

// OpenBackend connects the configured store. The returned Backend must be
// closed by the caller.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, PingTimeout: 5 * time.Second})
		if err != nil {
			return nil, err
		}
		if cfg.PGMigrate {
			if err := db.ApplySchema(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Backend{
			Ledger:      inventory.NewRepository(pool),
			MasterData:  masterdata.NewRepository(pool),
			Ranking:     ranking.NewPGStore(pool),
			Analytics:   analytics.NewPGSource(pool),
			Idempotency: shared.NewIdempotencyStore(pool),
			Audit:       shared.NewAuditLogger(pool),
			AuditTrail:  audit.NewPGRepository(pool),
			Pool:        pool,
		}, nil
	case StoreMemory:
		store := memory.New()
		auditLog := audit.NewMemoryLog(logger)
		return &Backend{
			Ledger:      store,
			MasterData:  store,
			Ranking:     store,
			Analytics:   store,
			Idempotency: shared.NewMemoryIdempotencyStore(),
			Audit:       auditLog,
			AuditTrail:  auditLog,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b != nil && b.Pool != nil {
		b.Pool.Close()
	}
}
