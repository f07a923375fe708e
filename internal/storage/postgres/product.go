package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillhq/till/internal/domain/catalog"
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
// Modifiers are stored in a JSONB column alongside the product row.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by display name.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, price, category_id, active, modifiers
		FROM products
		ORDER BY display_name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByID returns a single product, or catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, display_name, price, category_id, active, modifiers
		FROM products
		WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Put upserts a product row.
func (r *ProductRepository) Put(ctx context.Context, p catalog.Product) error {
	modifiers, err := json.Marshal(p.Modifiers)
	if err != nil {
		return fmt.Errorf("marshaling modifiers: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO products (id, display_name, price, category_id, active, modifiers)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			active = EXCLUDED.active,
			modifiers = EXCLUDED.modifiers`,
		p.ID, p.DisplayName, p.Price, p.CategoryID, p.Active, modifiers)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product row. Deleting an absent product is not an error.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	return nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p            catalog.Product
		modifiersRaw []byte
	)
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Price, &p.CategoryID, &p.Active, &modifiersRaw); err != nil {
		return catalog.Product{}, err
	}
	if len(modifiersRaw) > 0 {
		if err := json.Unmarshal(modifiersRaw, &p.Modifiers); err != nil {
			return catalog.Product{}, fmt.Errorf("unmarshaling modifiers for %q: %w", p.ID, err)
		}
	}
	return p, nil
}
