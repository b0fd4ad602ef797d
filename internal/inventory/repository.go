package inventory

import (
	"context"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, productID string, loc location.Location) (int64, error)
	ListOutletStock(ctx context.Context, outletID string) ([]OutletStock, error)
	ListMovements(ctx context.Context, filter HistoryFilter) ([]Movement, error)
	ListTransfers(ctx context.Context, filter HistoryFilter) ([]TransferRecord, error)
}

// TxRepository exposes transactional operations used by service. Reads
// inside a transaction lock the rows they return until commit; the product
// row is always locked first.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID string) (masterdata.Product, error)
	GetOutlet(ctx context.Context, outletID string) (masterdata.Outlet, error)
	GetOutletStockForUpdate(ctx context.Context, outletID, productID string) (int64, error)
	SetCentralStock(ctx context.Context, productID string, qty int64) error
	UpsertOutletStock(ctx context.Context, outletID, productID string, qty int64) error
	DeleteOutletStock(ctx context.Context, outletID, productID string) error
	InsertMovement(ctx context.Context, movement Movement) error
	InsertTransfer(ctx context.Context, transfer TransferRecord) error
	IncrementUsage(ctx context.Context, locationKey, productID string) error
}
