package ranking

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps favorites and usage counters in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// LoadRanking returns the favorites and usage counters of one location.
func (s *PGStore) LoadRanking(ctx context.Context, locationKey string) (map[string]bool, map[string]int64, error) {
	favs := map[string]bool{}
	rows, err := s.pool.Query(ctx, `SELECT product_id FROM product_favorites WHERE location_key=$1`, locationKey)
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, err
		}
		favs[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	usage := map[string]int64{}
	rows, err = s.pool.Query(ctx, `SELECT product_id, usage_count FROM product_usage WHERE location_key=$1`, locationKey)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    string
			count int64
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, nil, err
		}
		usage[id] = count
	}
	return favs, usage, rows.Err()
}

// SetFavorite adds or removes a favorite.
func (s *PGStore) SetFavorite(ctx context.Context, locationKey, productID string, favorite bool) error {
	if favorite {
		_, err := s.pool.Exec(ctx, `INSERT INTO product_favorites (location_key, product_id) VALUES ($1,$2)
ON CONFLICT DO NOTHING`, locationKey, productID)
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM product_favorites WHERE location_key=$1 AND product_id=$2`, locationKey, productID)
	return err
}
