package analytics

import (
	"context"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

// LastMovement is the most recent movement ever recorded for a product at
// one location.
type LastMovement struct {
	ProductID string            `json:"product_id"`
	Location  location.Location `json:"location"`
	At        time.Time         `json:"at"`
}

// Snapshot is the read model every aggregation runs over: master data, the
// current ledger, and history since a cut-off.
type Snapshot struct {
	Since         time.Time                  `json:"since"`
	Products      []masterdata.Product       `json:"products"`
	Outlets       []masterdata.Outlet        `json:"outlets"`
	Categories    []masterdata.Category      `json:"categories"`
	Units         []masterdata.Unit          `json:"units"`
	OutletStock   []inventory.OutletStock    `json:"outlet_stock"`
	Movements     []inventory.Movement       `json:"movements"`
	Transfers     []inventory.TransferRecord `json:"transfers"`
	LastMovements []LastMovement             `json:"last_movements"`
}

// Source loads snapshots. Movements and transfers are limited to records
// created at or after since.
type Source interface {
	Snapshot(ctx context.Context, since time.Time) (Snapshot, error)
}
