// Package discount implements the discount rule evaluation and stacking
// engine: loyalty lookup, candidate evaluation over the rule catalog,
// conflict resolution between percentage and flat candidates, additive
// category stacking, and atomic replacement of an order's discount set.
package discount

import (
	"context"

	"github.com/shopspring/decimal"
)

// Type tags a persisted discount row. It mirrors the rule kinds today but is
// a free-form tag on purpose: the stored value records what was granted, not
// which rule produced it.
type Type string

const (
	TypePercentage    Type = "percentage"
	TypeFlat          Type = "flat"
	TypeCategoryBased Type = "category_based"
)

// Discount is a single granted discount owned by exactly one order. Rows are
// created only by the engine and replaced wholesale on every recomputation;
// they are never patched in place.
type Discount struct {
	ID          string
	OrderID     string
	Type        Type
	Description string
	Amount      decimal.Decimal
}

// Repository defines persistence for an order's discount set.
type Repository interface {
	// Replace atomically deletes the order's existing discounts and inserts
	// discounts in their given order. Concurrent readers observe either the
	// full old set or the full new set, never a partial mix. On failure the
	// prior set is left intact.
	Replace(ctx context.Context, orderID string, discounts []Discount) error
	// ListByOrder returns the order's discounts in stored order.
	ListByOrder(ctx context.Context, orderID string) ([]Discount, error)
}
