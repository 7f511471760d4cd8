package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetService(ctx context.Context, id int64) (*Service, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, sku, title, description, variant_title, price, tax_rate, is_active, created_at, updated_at
		FROM products
		WHERE id = $1 AND is_active
	`, id).Scan(
		&p.ID, &p.SKU, &p.Title, &p.Description, &p.VariantTitle,
		&p.Price, &p.TaxRate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetService(ctx context.Context, id int64) (*Service, error) {
	var s Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, description, price, tax_rate, is_active, created_at, updated_at
		FROM services
		WHERE id = $1 AND is_active
	`, id).Scan(
		&s.ID, &s.Title, &s.Description, &s.Price, &s.TaxRate,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
