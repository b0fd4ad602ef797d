package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
)

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Product.Name
	}
	return out
}

func TestPrioritizeFavoriteBeatsUsage(t *testing.T) {
	products := []masterdata.Product{
		{ID: "busy", Name: "Busy"},
		{ID: "fav", Name: "Zeta"},
	}
	key := location.Central().Key()
	got := Prioritize(products, key,
		FavoriteState{key: {"fav": true}},
		UsageState{key: {"busy": 1_000_000}})
	require.Equal(t, []string{"Zeta", "Busy"}, names(got))
	require.True(t, got[0].Favorite)
	require.Equal(t, int64(0), got[0].Usage)
}

func TestPrioritizeUsageThenName(t *testing.T) {
	products := []masterdata.Product{
		{ID: "c", Name: "cokelat"},
		{ID: "a", Name: "Apel"},
		{ID: "b", Name: "bawang"},
		{ID: "d", Name: "Durian"},
	}
	key := location.Outlet("o1").Key()
	got := Prioritize(products, key, nil, UsageState{key: {"d": 3}})
	require.Equal(t, []string{"Durian", "Apel", "bawang", "cokelat"}, names(got))
}

func TestPrioritizeIsScopedToLocation(t *testing.T) {
	products := []masterdata.Product{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	favs := FavoriteState{"outlet:o2": {"b": true}}
	got := Prioritize(products, "outlet:o1", favs, nil)
	require.Equal(t, []string{"A", "B"}, names(got))
	got = Prioritize(products, "outlet:o2", favs, nil)
	require.Equal(t, []string{"B", "A"}, names(got))
}

func TestPrioritizeStableForEqualKeys(t *testing.T) {
	products := []masterdata.Product{{ID: "1", Name: "Same"}, {ID: "2", Name: "Same"}, {ID: "3", Name: "Same"}}
	got := Prioritize(products, "central", nil, nil)
	require.Equal(t, "1", got[0].Product.ID)
	require.Equal(t, "2", got[1].Product.ID)
	require.Equal(t, "3", got[2].Product.ID)
}

type memoryStore struct {
	favs  map[string]map[string]bool
	usage map[string]map[string]int64
}

func (m *memoryStore) LoadRanking(_ context.Context, key string) (map[string]bool, map[string]int64, error) {
	favs := map[string]bool{}
	for id, v := range m.favs[key] {
		favs[id] = v
	}
	usage := map[string]int64{}
	for id, v := range m.usage[key] {
		usage[id] = v
	}
	return favs, usage, nil
}

func (m *memoryStore) SetFavorite(_ context.Context, key, productID string, favorite bool) error {
	if m.favs == nil {
		m.favs = map[string]map[string]bool{}
	}
	if m.favs[key] == nil {
		m.favs[key] = map[string]bool{}
	}
	if favorite {
		m.favs[key][productID] = true
	} else {
		delete(m.favs[key], productID)
	}
	return nil
}

type stubCatalog struct {
	products []masterdata.Product
}

func (c stubCatalog) ListProducts(context.Context, masterdata.ListFilters) ([]masterdata.Product, error) {
	return c.products, nil
}

func (c stubCatalog) GetProduct(_ context.Context, id string) (masterdata.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return masterdata.Product{}, masterdata.ErrProductNotFound
}

func TestServiceToggleFavorite(t *testing.T) {
	store := &memoryStore{usage: map[string]map[string]int64{"outlet:o1": {"a": 5}}}
	catalog := stubCatalog{products: []masterdata.Product{{ID: "a", Name: "Apel"}, {ID: "b", Name: "Beras"}}}
	svc := NewService(store, catalog, nil)
	ctx := context.Background()
	loc := location.Outlet("o1")

	on, err := svc.ToggleFavorite(ctx, loc, "b")
	require.NoError(t, err)
	require.True(t, on)

	ranked, err := svc.Ranked(ctx, loc, masterdata.ListFilters{})
	require.NoError(t, err)
	require.Equal(t, []string{"Beras", "Apel"}, names(ranked))

	off, err := svc.ToggleFavorite(ctx, loc, "b")
	require.NoError(t, err)
	require.False(t, off)

	ranked, err = svc.Ranked(ctx, loc, masterdata.ListFilters{})
	require.NoError(t, err)
	require.Equal(t, []string{"Apel", "Beras"}, names(ranked))

	_, err = svc.ToggleFavorite(ctx, loc, "missing")
	require.ErrorIs(t, err, masterdata.ErrProductNotFound)

	_, err = svc.Ranked(ctx, location.Location{Kind: location.KindOutlet}, masterdata.ListFilters{})
	require.Error(t, err)
}
