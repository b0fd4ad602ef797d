package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Store persists favorites and usage counters. Usage counters are
// incremented by the ledger when movements commit.
type Store interface {
	LoadRanking(ctx context.Context, locationKey string) (map[string]bool, map[string]int64, error)
	SetFavorite(ctx context.Context, locationKey, productID string, favorite bool) error
}

// Catalog supplies the products to rank.
type Catalog interface {
	ListProducts(ctx context.Context, filters masterdata.ListFilters) ([]masterdata.Product, error)
	GetProduct(ctx context.Context, id string) (masterdata.Product, error)
}

// Service exposes ranking operations.
type Service struct {
	store   Store
	catalog Catalog
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(store Store, catalog Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, catalog: catalog, logger: logger}
}

// Ranked returns the catalogue ordered for loc.
func (s *Service) Ranked(ctx context.Context, loc location.Location, filters masterdata.ListFilters) ([]Entry, error) {
	if err := loc.Validate(); err != nil {
		return nil, fmt.Errorf("ranking: %v: %w", err, shared.ErrValidation)
	}
	products, err := s.catalog.ListProducts(ctx, filters)
	if err != nil {
		return nil, err
	}
	key := loc.Key()
	favs, usage, err := s.store.LoadRanking(ctx, key)
	if err != nil {
		return nil, err
	}
	return Prioritize(products, key, FavoriteState{key: favs}, UsageState{key: usage}), nil
}

// ToggleFavorite flips the favorite flag of a product at loc and returns the
// new state.
func (s *Service) ToggleFavorite(ctx context.Context, loc location.Location, productID string) (bool, error) {
	if err := loc.Validate(); err != nil {
		return false, fmt.Errorf("ranking: %v: %w", err, shared.ErrValidation)
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return false, err
	}
	key := loc.Key()
	favs, _, err := s.store.LoadRanking(ctx, key)
	if err != nil {
		return false, err
	}
	next := !favs[productID]
	if err := s.store.SetFavorite(ctx, key, productID, next); err != nil {
		return false, err
	}
	s.logger.Info("favorite toggled",
		slog.String("location", key),
		slog.String("product_id", productID),
		slog.Bool("favorite", next))
	return next, nil
}
