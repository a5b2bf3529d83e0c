package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopworks/discount-engine/internal/domain/discount"
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Replace swaps the order's discount set inside one transaction: delete all
// existing rows, bulk-insert the new ones. A failure at any point rolls back,
// leaving the prior set intact, and readers never observe a partial mix.
func (r *DiscountRepository) Replace(ctx context.Context, orderID string, discounts []discount.Discount) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM discounts WHERE order_id = $1`, orderID); err != nil {
		return errors.Wrapf(err, "delete discounts of order %s", orderID)
	}

	batch := &pgx.Batch{}
	for i, d := range discounts {
		batch.Queue(
			`INSERT INTO discounts (id, order_id, position, discount_type, description, amount)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, orderID, i, d.Type, d.Description, d.Amount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "insert discounts for order %s", orderID)
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// ListByOrder returns the order's discounts in resolved stacking order.
func (r *DiscountRepository) ListByOrder(ctx context.Context, orderID string) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, discount_type, description, amount
		 FROM discounts WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "list discounts of order %s", orderID)
	}
	defer rows.Close()

	var out []discount.Discount
	for rows.Next() {
		var d discount.Discount
		if err := rows.Scan(&d.ID, &d.OrderID, &d.Type, &d.Description, &d.Amount); err != nil {
			return nil, errors.Wrap(err, "scan discount")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
