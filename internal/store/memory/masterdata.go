package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

var _ masterdata.Repository = (*Store)(nil)
var _ inventory.RepositoryPort = (*Store)(nil)

func sortedValues[T any](m map[string]T, name func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	collator := shared.NameCollator()
	slices.SortFunc(out, func(a, b T) int {
		return shared.CompareNames(collator, name(a), name(b))
	})
	return out
}

func (s *Store) ListProducts(_ context.Context, filters masterdata.ListFilters) ([]masterdata.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filters.Search))
	out := make([]masterdata.Product, 0, len(s.products))
	for _, p := range sortedValues(s.products, func(p masterdata.Product) string { return p.Name }) {
		if filters.CategoryID != "" && p.CategoryID != filters.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		out = append(out, p)
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (masterdata.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return masterdata.Product{}, fmt.Errorf("%s: %w", id, masterdata.ErrProductNotFound)
	}
	return p, nil
}

func (s *Store) FindProductBySKU(_ context.Context, sku string) (masterdata.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.productBySKULocked(sku)
	return p, ok, nil
}

func (s *Store) productBySKULocked(sku string) (masterdata.Product, bool) {
	for _, p := range s.products {
		if strings.EqualFold(p.SKU, sku) {
			return p, true
		}
	}
	return masterdata.Product{}, false
}

func (s *Store) CreateProduct(_ context.Context, p masterdata.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.productBySKULocked(p.SKU); taken {
		return masterdata.ErrDuplicateSKU
	}
	s.products[p.ID] = p
	return nil
}

// UpdateProduct keeps the stored central stock; only the ledger changes it.
func (s *Store) UpdateProduct(_ context.Context, p masterdata.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("%s: %w", p.ID, masterdata.ErrProductNotFound)
	}
	if other, taken := s.productBySKULocked(p.SKU); taken && other.ID != p.ID {
		return masterdata.ErrDuplicateSKU
	}
	p.CentralStock = current.CentralStock
	p.CreatedAt = current.CreatedAt
	s.products[p.ID] = p
	return nil
}

// DeleteProduct cascades outlet stock, favorites and usage counters.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("%s: %w", id, masterdata.ErrProductNotFound)
	}
	delete(s.products, id)
	for key := range s.outletStock {
		if key.productID == id {
			delete(s.outletStock, key)
		}
	}
	for _, favs := range s.favorites {
		delete(favs, id)
	}
	for _, counts := range s.usage {
		delete(counts, id)
	}
	return nil
}

func (s *Store) ListOutlets(_ context.Context) ([]masterdata.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.outlets, func(o masterdata.Outlet) string { return o.Name }), nil
}

func (s *Store) GetOutlet(_ context.Context, id string) (masterdata.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outlets[id]
	if !ok {
		return masterdata.Outlet{}, fmt.Errorf("%s: %w", id, masterdata.ErrOutletNotFound)
	}
	return o, nil
}

func (s *Store) FindOutletByCode(_ context.Context, code string) (masterdata.Outlet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outletByCodeLocked(code)
	return o, ok, nil
}

func (s *Store) outletByCodeLocked(code string) (masterdata.Outlet, bool) {
	for _, o := range s.outlets {
		if o.Code == code {
			return o, true
		}
	}
	return masterdata.Outlet{}, false
}

func (s *Store) CreateOutlet(_ context.Context, o masterdata.Outlet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.outletByCodeLocked(o.Code); taken {
		return masterdata.ErrDuplicateOutletCode
	}
	s.outlets[o.ID] = o
	return nil
}

func (s *Store) UpdateOutlet(_ context.Context, o masterdata.Outlet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.outlets[o.ID]
	if !ok {
		return fmt.Errorf("%s: %w", o.ID, masterdata.ErrOutletNotFound)
	}
	if other, taken := s.outletByCodeLocked(o.Code); taken && other.ID != o.ID {
		return masterdata.ErrDuplicateOutletCode
	}
	o.CreatedAt = current.CreatedAt
	s.outlets[o.ID] = o
	return nil
}

func (s *Store) DeleteOutlet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outlets, id)
	key := location.Outlet(id).Key()
	delete(s.favorites, key)
	delete(s.usage, key)
	return nil
}

func (s *Store) OutletReferences(_ context.Context, id string) (masterdata.References, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs masterdata.References
	for key, qty := range s.outletStock {
		if key.outletID == id {
			refs.StockUnits += qty
		}
	}
	loc := location.Outlet(id)
	for _, m := range s.movements {
		if m.Location() == loc {
			refs.History++
		}
	}
	for _, t := range s.transfers {
		if t.Touches(loc) {
			refs.History++
		}
	}
	return refs, nil
}

func (s *Store) ListCategories(_ context.Context) ([]masterdata.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.categories, func(c masterdata.Category) string { return c.Name }), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (masterdata.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return masterdata.Category{}, fmt.Errorf("%s: %w", id, masterdata.ErrCategoryNotFound)
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, c masterdata.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.categories, id)
	return nil
}

func (s *Store) CategoryReferences(_ context.Context, id string) (masterdata.References, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs masterdata.References
	for _, p := range s.products {
		if p.CategoryID == id {
			refs.Products++
		}
	}
	return refs, nil
}

func (s *Store) ListUnits(_ context.Context) ([]masterdata.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.units, func(u masterdata.Unit) string { return u.Name }), nil
}

func (s *Store) GetUnit(_ context.Context, id string) (masterdata.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return masterdata.Unit{}, fmt.Errorf("%s: %w", id, masterdata.ErrUnitNotFound)
	}
	return u, nil
}

func (s *Store) CreateUnit(_ context.Context, u masterdata.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.ID] = u
	return nil
}

func (s *Store) DeleteUnit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, id)
	return nil
}

func (s *Store) UnitReferences(_ context.Context, id string) (masterdata.References, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs masterdata.References
	for _, p := range s.products {
		if p.UnitID == id {
			refs.Products++
		}
	}
	return refs, nil
}

func inRange(at time.Time, filter inventory.HistoryFilter) bool {
	if !filter.From.IsZero() && at.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && at.After(filter.To) {
		return false
	}
	return true
}
