// Package ranking orders products for order-entry screens per location.
package ranking

import (
	"slices"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// FavoriteState maps a location key to the set of favorited product ids.
type FavoriteState map[string]map[string]bool

// UsageState maps a location key to usage counts per product id.
type UsageState map[string]map[string]int64

// Entry is one ranked product.
type Entry struct {
	Product  masterdata.Product `json:"product"`
	Favorite bool               `json:"favorite"`
	Usage    int64              `json:"usage"`
}

// Prioritize orders products for locationKey: favorites first, then usage
// descending, then name ascending. It is a pure function of its inputs and
// keeps the input order for products that compare equal.
func Prioritize(products []masterdata.Product, locationKey string, favorites FavoriteState, usage UsageState) []Entry {
	favs := favorites[locationKey]
	counts := usage[locationKey]
	entries := make([]Entry, len(products))
	for i, p := range products {
		entries[i] = Entry{Product: p, Favorite: favs[p.ID], Usage: counts[p.ID]}
	}
	collator := shared.NameCollator()
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.Favorite != b.Favorite {
			if a.Favorite {
				return -1
			}
			return 1
		}
		if a.Usage != b.Usage {
			if a.Usage > b.Usage {
				return -1
			}
			return 1
		}
		return collator.CompareString(a.Product.Name, b.Product.Name)
	})
	return entries
}
