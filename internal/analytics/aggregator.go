package analytics

import (
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

// Aggregator computes dashboard figures from one snapshot for one caller.
// It never mutates the snapshot and holds no state besides lookups built
// from it, so results are a function of (snapshot, scope, now).
type Aggregator struct {
	snap     Snapshot
	scope    location.Scope
	now      time.Time
	resolver *location.Resolver

	products    map[string]masterdata.Product
	outletStock map[string]map[string]int64
	outletNames map[string]string
}

// NewAggregator indexes the snapshot. now carries the reporting time zone.
func NewAggregator(snap Snapshot, scope location.Scope, now time.Time) *Aggregator {
	a := &Aggregator{
		snap:        snap,
		scope:       scope,
		now:         now,
		products:    make(map[string]masterdata.Product, len(snap.Products)),
		outletStock: make(map[string]map[string]int64),
		outletNames: make(map[string]string, len(snap.Outlets)),
	}
	for _, p := range snap.Products {
		a.products[p.ID] = p
	}
	for _, o := range snap.Outlets {
		a.outletNames[o.ID] = o.Name
	}
	for _, row := range snap.OutletStock {
		byProduct := a.outletStock[row.OutletID]
		if byProduct == nil {
			byProduct = make(map[string]int64)
			a.outletStock[row.OutletID] = byProduct
		}
		byProduct[row.ProductID] += row.Qty
	}
	a.resolver = location.NewResolver(location.MapDirectory(a.outletNames))
	return a
}

// stockAt returns the current balance of a product at one location.
func (a *Aggregator) stockAt(p masterdata.Product, loc location.Location) int64 {
	if loc.IsCentral() {
		return p.CentralStock
	}
	return a.outletStock[loc.OutletID][p.ID]
}

// visibleOutlets lists the outlets matched by f and allowed by the scope.
func (a *Aggregator) visibleOutlets(f location.Filter) []masterdata.Outlet {
	out := make([]masterdata.Outlet, 0, len(a.snap.Outlets))
	for _, o := range a.snap.Outlets {
		if a.scope.Visible(f, location.Outlet(o.ID)) {
			out = append(out, o)
		}
	}
	return out
}

// includesCentral reports whether f covers the central warehouse for this
// caller.
func (a *Aggregator) includesCentral(f location.Filter) bool {
	return a.scope.Visible(f, location.Central())
}

// scopedStock sums a product's balance over every visible location.
func (a *Aggregator) scopedStock(p masterdata.Product, f location.Filter) int64 {
	var total int64
	if a.includesCentral(f) {
		total += p.CentralStock
	}
	for _, o := range a.visibleOutlets(f) {
		total += a.outletStock[o.ID][p.ID]
	}
	return total
}

// lowStockBasis is the balance compared with MinStock: central stock when
// central is in view, otherwise the visible outlets' total.
func (a *Aggregator) lowStockBasis(p masterdata.Product, f location.Filter) (int64, string) {
	if a.includesCentral(f) {
		return p.CentralStock, location.CentralLabel
	}
	if !f.All {
		return a.stockAt(p, f.Location), a.resolver.Label(f.Location)
	}
	return a.scopedStock(p, f), "Outlet"
}

func (a *Aggregator) movementVisible(m inventory.Movement, f location.Filter, from, to time.Time) bool {
	return inWindow(m.CreatedAt, from, to) && a.scope.Visible(f, m.Location())
}

// transferVisible matches a transfer by its source or any destination.
func (a *Aggregator) transferVisible(t inventory.TransferRecord, f location.Filter, from, to time.Time) bool {
	if !inWindow(t.CreatedAt, from, to) {
		return false
	}
	if a.scope.Visible(f, t.Source()) {
		return true
	}
	for _, d := range t.Destinations {
		if a.scope.Visible(f, location.Outlet(d.OutletID)) {
			return true
		}
	}
	return false
}

