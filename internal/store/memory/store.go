// Package memory is a single-process store implementing every repository
// port. Ledger transactions hold the write lock for their whole duration
// and stage their writes, so readers never observe a half-applied
// operation.
package memory

import (
	"sync"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

type stockKey struct {
	outletID  string
	productID string
}

// Store holds master data, the ledger, history and ranking state.
type Store struct {
	mu sync.RWMutex

	products   map[string]masterdata.Product
	outlets    map[string]masterdata.Outlet
	categories map[string]masterdata.Category
	units      map[string]masterdata.Unit

	outletStock map[stockKey]int64
	movements   []inventory.Movement
	transfers   []inventory.TransferRecord

	favorites map[string]map[string]bool
	usage     map[string]map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products:    make(map[string]masterdata.Product),
		outlets:     make(map[string]masterdata.Outlet),
		categories:  make(map[string]masterdata.Category),
		units:       make(map[string]masterdata.Unit),
		outletStock: make(map[stockKey]int64),
		favorites:   make(map[string]map[string]bool),
		usage:       make(map[string]map[string]int64),
	}
}

func cloneTransfer(t inventory.TransferRecord) inventory.TransferRecord {
	t.Destinations = append([]inventory.TransferDestination(nil), t.Destinations...)
	return t
}

func cloneMovement(m inventory.Movement) inventory.Movement {
	if m.CountedStock != nil {
		counted := *m.CountedStock
		m.CountedStock = &counted
	}
	return m
}
