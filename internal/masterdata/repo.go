package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const productColumns = `id, name, sku, central_stock, min_stock, COALESCE(category_id, ''), COALESCE(unit_id, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CentralStock, &p.MinStock, &p.CategoryID, &p.UnitID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgRepository) ListProducts(ctx context.Context, filters ListFilters) ([]Product, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%')
  AND ($2 = '' OR category_id = $2)
ORDER BY name ASC
LIMIT $3`, filters.Search, filters.CategoryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *pgRepository) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%s: %w", id, ErrProductNotFound)
	}
	return p, err
}

func (r *pgRepository) FindProductBySKU(ctx context.Context, sku string) (Product, bool, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE UPPER(sku) = UPPER($1)`, sku))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (r *pgRepository) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, sku, central_stock, min_stock, category_id, unit_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,$9)`, p.ID, p.Name, p.SKU, p.CentralStock, p.MinStock, p.CategoryID, p.UnitID, p.CreatedAt, p.UpdatedAt)
	return mapUniqueViolation(err, ErrDuplicateSKU)
}

func (r *pgRepository) UpdateProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `UPDATE products SET name=$2, sku=$3, min_stock=$4, category_id=NULLIF($5,''), unit_id=NULLIF($6,''), updated_at=$7 WHERE id=$1`,
		p.ID, p.Name, p.SKU, p.MinStock, p.CategoryID, p.UnitID, p.UpdatedAt)
	return mapUniqueViolation(err, ErrDuplicateSKU)
}

// DeleteProduct relies on ON DELETE CASCADE for outlet stock, favorites and
// usage counters.
func (r *pgRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrProductNotFound)
	}
	return nil
}

const outletColumns = `id, code, name, address, created_at, updated_at`

func scanOutlet(row pgx.Row) (Outlet, error) {
	var o Outlet
	err := row.Scan(&o.ID, &o.Code, &o.Name, &o.Address, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *pgRepository) ListOutlets(ctx context.Context) ([]Outlet, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+outletColumns+` FROM outlets ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	outlets := []Outlet{}
	for rows.Next() {
		o, err := scanOutlet(rows)
		if err != nil {
			return nil, err
		}
		outlets = append(outlets, o)
	}
	return outlets, rows.Err()
}

func (r *pgRepository) GetOutlet(ctx context.Context, id string) (Outlet, error) {
	o, err := scanOutlet(r.pool.QueryRow(ctx, `SELECT `+outletColumns+` FROM outlets WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Outlet{}, fmt.Errorf("%s: %w", id, ErrOutletNotFound)
	}
	return o, err
}

func (r *pgRepository) FindOutletByCode(ctx context.Context, code string) (Outlet, bool, error) {
	o, err := scanOutlet(r.pool.QueryRow(ctx, `SELECT `+outletColumns+` FROM outlets WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Outlet{}, false, nil
	}
	if err != nil {
		return Outlet{}, false, err
	}
	return o, true, nil
}

func (r *pgRepository) CreateOutlet(ctx context.Context, o Outlet) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO outlets (id, code, name, address, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.Code, o.Name, o.Address, o.CreatedAt, o.UpdatedAt)
	return mapUniqueViolation(err, ErrDuplicateOutletCode)
}

func (r *pgRepository) UpdateOutlet(ctx context.Context, o Outlet) error {
	_, err := r.pool.Exec(ctx, `UPDATE outlets SET code=$2, name=$3, address=$4, updated_at=$5 WHERE id=$1`,
		o.ID, o.Code, o.Name, o.Address, o.UpdatedAt)
	return mapUniqueViolation(err, ErrDuplicateOutletCode)
}

func (r *pgRepository) DeleteOutlet(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM outlets WHERE id=$1`, id)
	return err
}

func (r *pgRepository) OutletReferences(ctx context.Context, id string) (References, error) {
	var refs References
	err := r.pool.QueryRow(ctx, `SELECT
  COALESCE((SELECT SUM(qty) FROM outlet_stock WHERE outlet_id=$1), 0),
  (SELECT COUNT(*) FROM stock_movements WHERE location_kind='outlet' AND location_id=$1)
  + (SELECT COUNT(*) FROM stock_transfers WHERE source_outlet_id=$1)
  + (SELECT COUNT(*) FROM stock_transfer_destinations WHERE outlet_id=$1)`, id).Scan(&refs.StockUnits, &refs.History)
	return refs, err
}

func (r *pgRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (r *pgRepository) GetCategory(ctx context.Context, id string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("%s: %w", id, ErrCategoryNotFound)
	}
	return c, err
}

func (r *pgRepository) CreateCategory(ctx context.Context, c Category) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1,$2)`, c.ID, c.Name)
	return err
}

func (r *pgRepository) DeleteCategory(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	return err
}

func (r *pgRepository) CategoryReferences(ctx context.Context, id string) (References, error) {
	var refs References
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id=$1`, id).Scan(&refs.Products)
	return refs, err
}

func (r *pgRepository) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM units ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Unit, error) {
		var u Unit
		err := row.Scan(&u.ID, &u.Name)
		return u, err
	})
}

func (r *pgRepository) GetUnit(ctx context.Context, id string) (Unit, error) {
	var u Unit
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM units WHERE id=$1`, id).Scan(&u.ID, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Unit{}, fmt.Errorf("%s: %w", id, ErrUnitNotFound)
	}
	return u, err
}

func (r *pgRepository) CreateUnit(ctx context.Context, u Unit) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO units (id, name) VALUES ($1,$2)`, u.ID, u.Name)
	return err
}

func (r *pgRepository) DeleteUnit(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM units WHERE id=$1`, id)
	return err
}

func (r *pgRepository) UnitReferences(ctx context.Context, id string) (References, error) {
	var refs References
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE unit_id=$1`, id).Scan(&refs.Products)
	return refs, err
}

func mapUniqueViolation(err error, conflict error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return conflict
	}
	return err
}
