package discount

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/shopworks/discount-engine/internal/domain/order"
)

// loyaltyThreshold is the number of prior qualifying orders that makes a
// customer loyal.
const loyaltyThreshold = 5

// QualifyingStatuses are the order statuses that count toward loyalty.
var QualifyingStatuses = []order.Status{order.StatusCompleted, order.StatusShipped}

// OrderCounter is the slice of order.Repository the loyalty check needs.
type OrderCounter interface {
	CountByStatus(ctx context.Context, customerID string, statuses []order.Status, excludeOrderID string) (int, error)
}

// LoyaltyEvaluator decides whether a customer qualifies as loyal. It has no
// side effects; the engine computes loyalty once per discount pass and reuses
// the result so a single evaluation never sees two loyalty snapshots.
type LoyaltyEvaluator struct {
	orders OrderCounter
}

// NewLoyaltyEvaluator creates a LoyaltyEvaluator backed by the given counter.
func NewLoyaltyEvaluator(orders OrderCounter) *LoyaltyEvaluator {
	return &LoyaltyEvaluator{orders: orders}
}

// IsLoyal reports whether the customer has at least five prior completed or
// shipped orders, not counting the order under evaluation.
func (e *LoyaltyEvaluator) IsLoyal(ctx context.Context, customerID, excludeOrderID string) (bool, error) {
	n, err := e.orders.CountByStatus(ctx, customerID, QualifyingStatuses, excludeOrderID)
	if err != nil {
		return false, errors.Wrap(err, "count qualifying orders")
	}
	return n >= loyaltyThreshold, nil
}
