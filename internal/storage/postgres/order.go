package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopworks/discount-engine/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its line items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, customer_id, status) VALUES ($1, $2, $3) RETURNING created_at`,
		o.ID, o.CustomerID, o.Status).Scan(&o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(
			`INSERT INTO order_items (id, order_id, product_id, category, quantity, price_at_purchase)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, o.ID, item.ProductID, item.Category, item.Quantity, item.PriceAtPurchase)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "insert line items for order %s", o.ID)
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// GetByID loads an order with its line items fully materialized.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, status, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerID, &o.Status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, category, quantity, price_at_purchase
		 FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get line items for order %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var item order.LineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.Category, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, errors.Wrap(err, "scan line item")
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

// UpdateStatus transitions the order's status. Validation of the transition
// itself happens in the order service.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return errors.Wrapf(err, "update status of order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// CountByStatus counts the customer's orders with a status in statuses,
// excluding excludeOrderID. Used by the loyalty evaluator.
func (r *OrderRepository) CountByStatus(ctx context.Context, customerID string, statuses []order.Status, excludeOrderID string) (int, error) {
	set := make([]string, len(statuses))
	for i, s := range statuses {
		set[i] = string(s)
	}

	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM orders
		 WHERE customer_id = $1 AND status = ANY($2) AND id <> $3`,
		customerID, set, excludeOrderID).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "count orders for customer %s", customerID)
	}
	return n, nil
}

// Delete removes the order and, in the same transaction, everything it owns:
// line items and discounts. Ownership is enforced here rather than by
// ON DELETE CASCADE so the contract stays visible in code.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM discounts WHERE order_id = $1`, id); err != nil {
		return errors.Wrapf(err, "delete discounts of order %s", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return errors.Wrapf(err, "delete line items of order %s", id)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}
