package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillhq/till/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items and
// payments are serialized to JSONB; orders are immutable once written.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.PersistedOrder) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	payments, err := json.Marshal(o.Payments)
	if err != nil {
		return fmt.Errorf("marshaling order payments: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (id, order_date, items, total, payments, order_type, receipt_number, cash_change)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.OrderDate, items, o.Total, payments, o.OrderType, o.ReceiptNumber, o.CashChange)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.PersistedOrder, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, order_date, items, total, payments, order_type, receipt_number, cash_change
		FROM orders
		WHERE id = $1`, id)

	var (
		o           order.PersistedOrder
		itemsRaw    []byte
		paymentsRaw []byte
	)
	if err := row.Scan(&o.ID, &o.OrderDate, &itemsRaw, &o.Total, &paymentsRaw, &o.OrderType, &o.ReceiptNumber, &o.CashChange); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling items for %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(paymentsRaw, &o.Payments); err != nil {
		return nil, fmt.Errorf("unmarshaling payments for %q: %w", o.ID, err)
	}
	return &o, nil
}

// List returns orders whose order date falls in [from, to], newest first.
func (r *OrderRepository) List(ctx context.Context, from, to time.Time) ([]order.PersistedOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_date, items, total, payments, order_type, receipt_number, cash_change
		FROM orders
		WHERE order_date >= $1 AND order_date <= $2
		ORDER BY order_date DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []order.PersistedOrder
	for rows.Next() {
		var (
			o           order.PersistedOrder
			itemsRaw    []byte
			paymentsRaw []byte
		)
		if err := rows.Scan(&o.ID, &o.OrderDate, &itemsRaw, &o.Total, &paymentsRaw, &o.OrderType, &o.ReceiptNumber, &o.CashChange); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshaling items for %q: %w", o.ID, err)
		}
		if err := json.Unmarshal(paymentsRaw, &o.Payments); err != nil {
			return nil, fmt.Errorf("unmarshaling payments for %q: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountSince returns the number of orders created at or after the given
// instant. Used for per-day receipt numbering.
func (r *OrderRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE order_date >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}
