package inventory

import (
	"fmt"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// MovementType enumerates ledger events recorded by the movement recorder.
type MovementType string

const (
	// MovementIn is a receipt.
	MovementIn MovementType = "in"
	// MovementOut is an issue.
	MovementOut MovementType = "out"
	// MovementOpname is a physical count reconciliation.
	MovementOpname MovementType = "opname"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementOpname:
		return true
	}
	return false
}

// DefaultNote is used when the caller leaves the note empty.
func (t MovementType) DefaultNote() string {
	switch t {
	case MovementIn:
		return "Barang masuk"
	case MovementOut:
		return "Barang keluar"
	case MovementOpname:
		return "Stock opname"
	default:
		return ""
	}
}

// Movement is the immutable audit record of one receipt, issue or opname.
type Movement struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"product_id"`
	ProductName   string        `json:"product_name"`
	Qty           int64         `json:"qty"`
	Type          MovementType  `json:"type"`
	Note          string        `json:"note"`
	Delta         int64         `json:"delta"`
	BalanceAfter  int64         `json:"balance_after"`
	CountedStock  *int64        `json:"counted_stock,omitempty"`
	LocationKind  location.Kind `json:"location_kind"`
	LocationID    string        `json:"location_id,omitempty"`
	LocationLabel string        `json:"location_label"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Location returns the ledger partition the movement touched.
func (m Movement) Location() location.Location {
	return location.Location{Kind: m.LocationKind, OutletID: m.LocationID}
}

// TransferDestination is one leg of a transfer, with the outlet name
// captured at transfer time.
type TransferDestination struct {
	OutletID   string `json:"outlet_id"`
	OutletName string `json:"outlet_name"`
	Qty        int64  `json:"qty"`
}

// TransferRecord is the immutable record of one transfer.
type TransferRecord struct {
	ID             string                `json:"id"`
	ProductID      string                `json:"product_id"`
	ProductName    string                `json:"product_name"`
	SourceKind     location.Kind         `json:"source_kind"`
	SourceOutletID string                `json:"source_outlet_id,omitempty"`
	SourceLabel    string                `json:"source_label"`
	Destinations   []TransferDestination `json:"destinations"`
	TotalQty       int64                 `json:"total_qty"`
	Note           string                `json:"note"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Source returns the transfer's source location.
func (t TransferRecord) Source() location.Location {
	return location.Location{Kind: t.SourceKind, OutletID: t.SourceOutletID}
}

// Touches reports whether the transfer moved stock out of or into loc.
func (t TransferRecord) Touches(loc location.Location) bool {
	if t.Source() == loc {
		return true
	}
	if loc.IsCentral() {
		return false
	}
	for _, d := range t.Destinations {
		if d.OutletID == loc.OutletID {
			return true
		}
	}
	return false
}

// OutletStock is one sparse ledger row. Rows exist only while Qty > 0.
type OutletStock struct {
	OutletID  string `json:"outlet_id"`
	ProductID string `json:"product_id"`
	Qty       int64  `json:"qty"`
}

// MovementInput describes a receipt or issue request.
type MovementInput struct {
	ProductID string
	Quantity  int64
	Type      MovementType
	Note      string
	Location  location.Location
	ActorID   string
}

// OpnameInput describes a physical count.
type OpnameInput struct {
	ProductID   string
	ActualStock int64
	Note        string
	Location    location.Location
	ActorID     string
}

// DestinationInput is one requested transfer leg.
type DestinationInput struct {
	OutletID string
	Quantity int64
}

// TransferInput describes a one-source, many-destination transfer.
type TransferInput struct {
	ProductID    string
	Source       location.Location
	Destinations []DestinationInput
	Note         string
	ActorID      string
}

// HistoryFilter narrows movement and transfer listings.
type HistoryFilter struct {
	ProductID string
	Filter    location.Filter
	From      time.Time
	To        time.Time
	Limit     int
}

// DefaultTransferNote is used when a transfer has no note.
const DefaultTransferNote = "Transfer stok"

var (
	// ErrInvalidQuantity is returned by the ledger for negative balances and
	// by the recorder for non-positive request quantities.
	ErrInvalidQuantity = fmt.Errorf("inventory: invalid quantity: %w", shared.ErrValidation)
	// ErrQuantityOverflow rejects quantities whose sum no balance can hold.
	ErrQuantityOverflow = fmt.Errorf("%w: exceeds the maximum balance", ErrInvalidQuantity)
	// ErrInvalidMovementType rejects types other than in/out for RecordMovement.
	ErrInvalidMovementType = fmt.Errorf("inventory: movement type must be in or out: %w", shared.ErrValidation)
	// ErrLocationRequired rejects incomplete locations.
	ErrLocationRequired = fmt.Errorf("inventory: location required: %w", shared.ErrValidation)
	// ErrNoDestinations rejects transfers without a usable destination.
	ErrNoDestinations = fmt.Errorf("inventory: at least one destination required: %w", shared.ErrValidation)
	// ErrDuplicateDestination rejects repeated destination outlets.
	ErrDuplicateDestination = fmt.Errorf("inventory: destination outlets must be unique: %w", shared.ErrValidation)
	// ErrDestinationIsSource rejects transfers back into the source outlet.
	ErrDestinationIsSource = fmt.Errorf("inventory: destination equals source: %w", shared.ErrValidation)
	// ErrProductNotFound indicates an unknown product.
	ErrProductNotFound = fmt.Errorf("inventory: product %w", shared.ErrNotFound)
	// ErrOutletNotFound indicates an unknown outlet.
	ErrOutletNotFound = fmt.Errorf("inventory: outlet %w", shared.ErrNotFound)
)

// InsufficientStockError reports an issue or transfer exceeding the balance.
type InsufficientStockError struct {
	ProductID   string
	LocationKey string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s at %s: requested %d, available %d",
		e.ProductID, e.LocationKey, e.Requested, e.Available)
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}
