package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopworks/discount-engine/internal/cache"
)

var _ cache.TotalsSource = (*TotalsSource)(nil)

// TotalsSource computes derived order totals with aggregate queries. It backs
// the read-through cache on misses.
type TotalsSource struct {
	pool *pgxpool.Pool
}

// NewTotalsSource returns a TotalsSource that uses the given pool.
func NewTotalsSource(pool *pgxpool.Pool) *TotalsSource {
	return &TotalsSource{pool: pool}
}

// TotalPrice returns the sum of the order's line totals.
func (s *TotalsSource) TotalPrice(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(price_at_purchase * quantity), 0)
		 FROM order_items WHERE order_id = $1`, orderID).Scan(&total)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "total price of order %s", orderID)
	}
	return total, nil
}

// FinalPrice returns the total price minus the sum of discount amounts.
func (s *TotalsSource) FinalPrice(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var final decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT SUM(price_at_purchase * quantity) FROM order_items WHERE order_id = $1), 0)
		      - COALESCE((SELECT SUM(amount) FROM discounts WHERE order_id = $1), 0)`,
		orderID).Scan(&final)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "final price of order %s", orderID)
	}
	return final, nil
}

// TotalQuantity returns the sum of the order's line item quantities.
func (s *TotalsSource) TotalQuantity(ctx context.Context, orderID string) (int64, error) {
	var qty int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)::bigint
		 FROM order_items WHERE order_id = $1`, orderID).Scan(&qty)
	if err != nil {
		return 0, errors.Wrapf(err, "total quantity of order %s", orderID)
	}
	return qty, nil
}
