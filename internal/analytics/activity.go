package analytics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Activity kinds.
const (
	KindMovement = "movement"
	KindTransfer = "transfer"
)

// ActivityItem is the uniform shape of the recent-activity feed.
type ActivityItem struct {
	Kind      string    `json:"kind"`
	RecordID  string    `json:"record_id"`
	TypeLabel string    `json:"type_label"`
	At        time.Time `json:"at"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Quantity  string    `json:"quantity"`
}

func movementLabel(t inventory.MovementType) string {
	switch t {
	case inventory.MovementIn:
		return "Barang Masuk"
	case inventory.MovementOut:
		return "Barang Keluar"
	case inventory.MovementOpname:
		return "Stock Opname"
	default:
		return string(t)
	}
}

func movementQuantity(m inventory.Movement) string {
	if m.Type == inventory.MovementOpname {
		return fmt.Sprintf("%d (%+d)", m.BalanceAfter, m.Delta)
	}
	return fmt.Sprintf("%+d", m.Delta)
}

// RecentActivity merges movements and transfers in the window, newest
// first.
func (a *Aggregator) RecentActivity(period Period, f location.Filter, limit int) []ActivityItem {
	from, to := period.Window(a.now)
	items := make([]ActivityItem, 0)
	for _, m := range a.snap.Movements {
		if !a.movementVisible(m, f, from, to) {
			continue
		}
		subtitle := m.LocationLabel
		if m.Note != "" {
			subtitle += " · " + m.Note
		}
		items = append(items, ActivityItem{
			Kind:      KindMovement,
			RecordID:  m.ID,
			TypeLabel: movementLabel(m.Type),
			At:        m.CreatedAt,
			Title:     m.ProductName,
			Subtitle:  subtitle,
			Quantity:  movementQuantity(m),
		})
	}
	for _, t := range a.snap.Transfers {
		if !a.transferVisible(t, f, from, to) {
			continue
		}
		names := make([]string, 0, len(t.Destinations))
		for _, d := range t.Destinations {
			names = append(names, d.OutletName)
		}
		items = append(items, ActivityItem{
			Kind:      KindTransfer,
			RecordID:  t.ID,
			TypeLabel: "Transfer",
			At:        t.CreatedAt,
			Title:     t.ProductName,
			Subtitle:  t.SourceLabel + " → " + strings.Join(names, ", "),
			Quantity:  fmt.Sprintf("%d", t.TotalQty),
		})
	}
	slices.SortStableFunc(items, func(x, y ActivityItem) int {
		return y.At.Compare(x.At)
	})
	return truncate(items, limit)
}

// ProductActivity aggregates movements of one product.
type ProductActivity struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Events    int    `json:"events"`
	Quantity  int64  `json:"quantity"`
}

// TopActiveProducts ranks products by movement count, then quantity moved,
// then name.
func (a *Aggregator) TopActiveProducts(period Period, f location.Filter, limit int) []ProductActivity {
	from, to := period.Window(a.now)
	byProduct := make(map[string]*ProductActivity)
	order := make([]string, 0)
	for _, m := range a.snap.Movements {
		if !a.movementVisible(m, f, from, to) {
			continue
		}
		entry, ok := byProduct[m.ProductID]
		if !ok {
			entry = &ProductActivity{ProductID: m.ProductID, Name: a.productName(m.ProductID, m.ProductName)}
			byProduct[m.ProductID] = entry
			order = append(order, m.ProductID)
		}
		entry.Events++
		entry.Quantity += m.Qty
	}
	items := make([]ProductActivity, 0, len(order))
	for _, id := range order {
		items = append(items, *byProduct[id])
	}
	collator := shared.NameCollator()
	slices.SortStableFunc(items, func(x, y ProductActivity) int {
		if x.Events != y.Events {
			return y.Events - x.Events
		}
		if x.Quantity != y.Quantity {
			if x.Quantity > y.Quantity {
				return -1
			}
			return 1
		}
		return shared.CompareNames(collator, x.Name, y.Name)
	})
	return truncate(items, limit)
}

// OutletSummary aggregates activity and stock of one outlet.
type OutletSummary struct {
	OutletID       string `json:"outlet_id"`
	Name           string `json:"name"`
	MovementEvents int    `json:"movement_events"`
	TransferEvents int    `json:"transfer_events"`
	TotalEvents    int    `json:"total_events"`
	Stock          int64  `json:"stock"`
}

// OutletSummaries reports every visible outlet, busiest first.
func (a *Aggregator) OutletSummaries(period Period, f location.Filter) []OutletSummary {
	from, to := period.Window(a.now)
	outlets := a.visibleOutlets(f)
	items := make([]OutletSummary, 0, len(outlets))
	for _, o := range outlets {
		loc := location.Outlet(o.ID)
		summary := OutletSummary{OutletID: o.ID, Name: o.Name}
		for _, m := range a.snap.Movements {
			if m.LocationKind == location.KindOutlet && m.LocationID == o.ID && inWindow(m.CreatedAt, from, to) {
				summary.MovementEvents++
			}
		}
		for _, t := range a.snap.Transfers {
			if t.Touches(loc) && inWindow(t.CreatedAt, from, to) {
				summary.TransferEvents++
			}
		}
		for _, qty := range a.outletStock[o.ID] {
			summary.Stock += qty
		}
		summary.TotalEvents = summary.MovementEvents + summary.TransferEvents
		items = append(items, summary)
	}
	collator := shared.NameCollator()
	slices.SortStableFunc(items, func(x, y OutletSummary) int {
		if x.TotalEvents != y.TotalEvents {
			return y.TotalEvents - x.TotalEvents
		}
		if x.Stock != y.Stock {
			if x.Stock > y.Stock {
				return -1
			}
			return 1
		}
		return shared.CompareNames(collator, x.Name, y.Name)
	})
	return items
}

// InactiveProduct is a product without movements in the inactivity window.
type InactiveProduct struct {
	ProductID      string     `json:"product_id"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku"`
	Stock          int64      `json:"stock"`
	DaysInactive   int        `json:"days_inactive"`
	LastMovementAt *time.Time `json:"last_movement_at,omitempty"`
}

// InactiveProducts lists products with no movement in the last 30 days at
// the visible locations, longest idle first. The caller's period does not
// apply. Outside central view only products stocked or moved at a visible
// outlet are candidates.
func (a *Aggregator) InactiveProducts(f location.Filter, limit int) []InactiveProduct {
	cutoff := a.now.Add(-InactivityWindow)
	last := make(map[string]time.Time)
	for _, lm := range a.snap.LastMovements {
		if !a.scope.Visible(f, lm.Location) {
			continue
		}
		if lm.At.After(last[lm.ProductID]) {
			last[lm.ProductID] = lm.At
		}
	}
	withCentral := a.includesCentral(f)
	items := make([]InactiveProduct, 0)
	for _, p := range a.snap.Products {
		stock := a.scopedStock(p, f)
		at, moved := last[p.ID]
		if !withCentral && !moved && stock == 0 {
			continue
		}
		if moved && !at.Before(cutoff) {
			continue
		}
		item := InactiveProduct{ProductID: p.ID, Name: p.Name, SKU: p.SKU, Stock: stock, DaysInactive: NoMovementDays}
		if moved {
			at := at
			item.LastMovementAt = &at
			item.DaysInactive = int(a.now.Sub(at) / (24 * time.Hour))
		}
		items = append(items, item)
	}
	collator := shared.NameCollator()
	slices.SortStableFunc(items, func(x, y InactiveProduct) int {
		if x.DaysInactive != y.DaysInactive {
			return y.DaysInactive - x.DaysInactive
		}
		return shared.CompareNames(collator, x.Name, y.Name)
	})
	return truncate(items, limit)
}

// productName prefers the current name over the snapshot stored on the
// record.
func (a *Aggregator) productName(id, fallback string) string {
	if p, ok := a.products[id]; ok {
		return p.Name
	}
	return fallback
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
