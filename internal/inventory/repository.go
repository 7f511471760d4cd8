package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partshub/partshub/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	GetBalance(ctx context.Context, productID int64) (*Balance, error)
	// GetBalanceForUpdate locks the balance row for the duration of the
	// transaction. Missing rows materialize as zero balances.
	GetBalanceForUpdate(ctx context.Context, productID int64) (*Balance, error)
	UpsertBalance(ctx context.Context, b *Balance) error
	InsertMovement(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, db: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{pool: r.pool, db: tx})
	})
}

func (r *repository) GetBalance(ctx context.Context, productID int64) (*Balance, error) {
	var b Balance
	err := r.db.QueryRow(ctx, `
		SELECT product_id, on_hand, reserved, updated_at
		FROM stock_balances
		WHERE product_id = $1
	`, productID).Scan(&b.ProductID, &b.OnHand, &b.Reserved, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inventory: get balance: %w", err)
	}
	return &b, nil
}

func (r *repository) GetBalanceForUpdate(ctx context.Context, productID int64) (*Balance, error) {
	var b Balance
	err := r.db.QueryRow(ctx, `
		SELECT product_id, on_hand, reserved, updated_at
		FROM stock_balances
		WHERE product_id = $1
		FOR UPDATE
	`, productID).Scan(&b.ProductID, &b.OnHand, &b.Reserved, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Balance{ProductID: productID}, nil
		}
		return nil, fmt.Errorf("inventory: lock balance: %w", err)
	}
	return &b, nil
}

func (r *repository) UpsertBalance(ctx context.Context, b *Balance) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO stock_balances (product_id, on_hand, reserved, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id)
		DO UPDATE SET on_hand = EXCLUDED.on_hand, reserved = EXCLUDED.reserved, updated_at = now()
	`, b.ProductID, b.OnHand, b.Reserved)
	if err != nil {
		return fmt.Errorf("inventory: upsert balance: %w", err)
	}
	return nil
}

func (r *repository) InsertMovement(ctx context.Context, m *Movement) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, kind, quantity, reference, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at
	`, m.ProductID, m.Kind, m.Quantity, m.Reference).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inventory: insert movement: %w", err)
	}
	return nil
}

func (r *repository) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, kind, quantity, reference, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("inventory: list movements: %w", err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.Reference, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
