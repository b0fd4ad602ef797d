package memory

import (
	"context"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/ranking"
)

var _ ranking.Store = (*Store)(nil)

// LoadRanking returns copies of the favorites and usage of one location.
func (s *Store) LoadRanking(_ context.Context, locationKey string) (map[string]bool, map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	favs := make(map[string]bool, len(s.favorites[locationKey]))
	for id, on := range s.favorites[locationKey] {
		favs[id] = on
	}
	usage := make(map[string]int64, len(s.usage[locationKey]))
	for id, n := range s.usage[locationKey] {
		usage[id] = n
	}
	return favs, usage, nil
}

func (s *Store) SetFavorite(_ context.Context, locationKey, productID string, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !favorite {
		delete(s.favorites[locationKey], productID)
		return nil
	}
	if s.favorites[locationKey] == nil {
		s.favorites[locationKey] = make(map[string]bool)
	}
	s.favorites[locationKey][productID] = true
	return nil
}
