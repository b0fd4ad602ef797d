package analytics

import (
	"slices"
	"time"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/inventory"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// KPISummary contains the stock indicators surfaced on the dashboard.
type KPISummary struct {
	Period        Period    `json:"period"`
	Filter        string    `json:"filter"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	StockTotal    int64     `json:"stock_total"`
	InQty         int64     `json:"in_qty"`
	OutQty        int64     `json:"out_qty"`
	NetQty        int64     `json:"net_qty"`
	OpnameCount   int       `json:"opname_count"`
	LowStockCount int       `json:"low_stock_count"`
}

// KPIs computes the summary cards for period and filter.
func (a *Aggregator) KPIs(period Period, f location.Filter) KPISummary {
	from, to := period.Window(a.now)
	summary := KPISummary{Period: period, Filter: f.String(), From: from, To: to}
	for _, p := range a.snap.Products {
		summary.StockTotal += a.scopedStock(p, f)
		if basis, _ := a.lowStockBasis(p, f); basis <= p.MinStock {
			summary.LowStockCount++
		}
	}
	for _, m := range a.snap.Movements {
		if !a.movementVisible(m, f, from, to) {
			continue
		}
		switch m.Type {
		case inventory.MovementIn:
			summary.InQty += m.Qty
		case inventory.MovementOut:
			summary.OutQty += m.Qty
		case inventory.MovementOpname:
			summary.OpnameCount++
		}
	}
	summary.NetQty = summary.InQty - summary.OutQty
	return summary
}

// LowStockItem is one entry of the low-stock priority list.
type LowStockItem struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	Stock         int64  `json:"stock"`
	MinStock      int64  `json:"min_stock"`
	Gap           int64  `json:"gap"`
	LocationLabel string `json:"location_label"`
}

// LowStock lists products whose stock is at or below their minimum, the
// largest shortfall first. limit <= 0 returns every match.
func (a *Aggregator) LowStock(f location.Filter, limit int) []LowStockItem {
	items := make([]LowStockItem, 0)
	for _, p := range a.snap.Products {
		stock, label := a.lowStockBasis(p, f)
		if stock > p.MinStock {
			continue
		}
		items = append(items, LowStockItem{
			ProductID:     p.ID,
			Name:          p.Name,
			SKU:           p.SKU,
			Stock:         stock,
			MinStock:      p.MinStock,
			Gap:           max(0, p.MinStock-stock),
			LocationLabel: label,
		})
	}
	collator := shared.NameCollator()
	slices.SortStableFunc(items, func(x, y LowStockItem) int {
		if x.Gap != y.Gap {
			if x.Gap > y.Gap {
				return -1
			}
			return 1
		}
		return shared.CompareNames(collator, x.Name, y.Name)
	})
	return truncate(items, limit)
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
