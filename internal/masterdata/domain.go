package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Product is a catalogue entry. CentralStock is the central warehouse
// quantity; outlet quantities live in the sparse outlet stock ledger.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	CentralStock int64     `json:"central_stock"`
	MinStock     int64     `json:"min_stock"`
	CategoryID   string    `json:"category_id,omitempty"`
	UnitID       string    `json:"unit_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Outlet is a branch location.
type Outlet struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category groups products.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Unit is a unit of measure.
type Unit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search     string
	CategoryID string
	Limit      int
}

// References counts what still points at a master-data record.
type References struct {
	Products   int
	History    int
	StockUnits int64
}

// InUse reports whether anything references the record.
func (r References) InUse() bool {
	return r.Products > 0 || r.History > 0 || r.StockUnits > 0
}

// Repository is the persistence port for master data.
type Repository interface {
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	FindProductBySKU(ctx context.Context, sku string) (Product, bool, error)
	CreateProduct(ctx context.Context, product Product) error
	UpdateProduct(ctx context.Context, product Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListOutlets(ctx context.Context) ([]Outlet, error)
	GetOutlet(ctx context.Context, id string) (Outlet, error)
	FindOutletByCode(ctx context.Context, code string) (Outlet, bool, error)
	CreateOutlet(ctx context.Context, outlet Outlet) error
	UpdateOutlet(ctx context.Context, outlet Outlet) error
	DeleteOutlet(ctx context.Context, id string) error
	OutletReferences(ctx context.Context, id string) (References, error)

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	CreateCategory(ctx context.Context, category Category) error
	DeleteCategory(ctx context.Context, id string) error
	CategoryReferences(ctx context.Context, id string) (References, error)

	ListUnits(ctx context.Context) ([]Unit, error)
	GetUnit(ctx context.Context, id string) (Unit, error)
	CreateUnit(ctx context.Context, unit Unit) error
	DeleteUnit(ctx context.Context, id string) error
	UnitReferences(ctx context.Context, id string) (References, error)
}

var (
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = fmt.Errorf("masterdata: product %w", shared.ErrNotFound)
	// ErrOutletNotFound indicates an unknown outlet id.
	ErrOutletNotFound = fmt.Errorf("masterdata: outlet %w", shared.ErrNotFound)
	// ErrCategoryNotFound indicates an unknown category id.
	ErrCategoryNotFound = fmt.Errorf("masterdata: category %w", shared.ErrNotFound)
	// ErrUnitNotFound indicates an unknown unit id.
	ErrUnitNotFound = fmt.Errorf("masterdata: unit %w", shared.ErrNotFound)

	// ErrDuplicateSKU indicates a case-insensitive SKU collision.
	ErrDuplicateSKU = fmt.Errorf("masterdata: sku already used: %w", shared.ErrConflict)
	// ErrDuplicateOutletCode indicates an outlet code collision.
	ErrDuplicateOutletCode = fmt.Errorf("masterdata: outlet code already used: %w", shared.ErrConflict)
	// ErrInUse indicates a deletion blocked by references.
	ErrInUse = fmt.Errorf("masterdata: record still referenced: %w", shared.ErrConflict)
)
