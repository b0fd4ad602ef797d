package analytics

import (
	"slices"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// StockRow is the flat shape handed to the export collaborator.
type StockRow struct {
	LocationKey   string `json:"location_key"`
	LocationLabel string `json:"location_label"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	SKU           string `json:"sku"`
	Category      string `json:"category"`
	Unit          string `json:"unit"`
	Quantity      int64  `json:"quantity"`
}

// StockRows lists the current balance per visible location and product.
// Central rows cover every product; outlet rows exist only for positive
// balances, mirroring the sparse ledger.
func (a *Aggregator) StockRows(f location.Filter) []StockRow {
	categories := make(map[string]string, len(a.snap.Categories))
	for _, c := range a.snap.Categories {
		categories[c.ID] = c.Name
	}
	units := make(map[string]string, len(a.snap.Units))
	for _, u := range a.snap.Units {
		units[u.ID] = u.Name
	}
	collator := shared.NameCollator()
	products := slices.Clone(a.snap.Products)
	slices.SortStableFunc(products, func(x, y masterdata.Product) int {
		return shared.CompareNames(collator, x.Name, y.Name)
	})

	rows := make([]StockRow, 0)
	appendRow := func(loc location.Location, p masterdata.Product, qty int64) {
		rows = append(rows, StockRow{
			LocationKey:   loc.Key(),
			LocationLabel: a.resolver.Label(loc),
			ProductID:     p.ID,
			ProductName:   p.Name,
			SKU:           p.SKU,
			Category:      categories[p.CategoryID],
			Unit:          units[p.UnitID],
			Quantity:      qty,
		})
	}
	if a.includesCentral(f) {
		for _, p := range products {
			appendRow(location.Central(), p, p.CentralStock)
		}
	}
	outlets := a.visibleOutlets(f)
	slices.SortStableFunc(outlets, func(x, y masterdata.Outlet) int {
		return shared.CompareNames(collator, x.Name, y.Name)
	})
	for _, o := range outlets {
		for _, p := range products {
			if qty := a.outletStock[o.ID][p.ID]; qty > 0 {
				appendRow(location.Outlet(o.ID), p, qty)
			}
		}
	}
	return rows
}
