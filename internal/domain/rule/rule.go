// Package rule holds promotional rule definitions. Rules are pure data:
// the catalog is queried by active flag and interpreted by the discount
// engine, never by the rules themselves.
package rule

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shopworks/discount-engine/internal/domain/product"
)

// Kind tags a rule with its discount strategy.
type Kind string

const (
	// KindPercentage discounts the whole order by a percentage once the
	// order total reaches Threshold.
	KindPercentage Kind = "percentage"
	// KindFlat takes a fixed amount off; only granted to loyal customers.
	KindFlat Kind = "flat"
	// KindCategoryBased discounts the items of one category by a percentage
	// once the order holds at least MinQuantity items of that category.
	KindCategoryBased Kind = "category_based"
)

// Rule is a promotional rule definition. Fields irrelevant to a rule's Kind
// are ignored even if set. A zero value stands for "absent": a rule missing
// a field its kind requires is skipped during evaluation, never an error.
type Rule struct {
	ID          string
	Kind        Kind
	Active      bool
	Threshold   decimal.Decimal  // percentage: minimum qualifying order total
	Percentage  decimal.Decimal  // percentage, category_based: 0-100 scale
	FlatAmount  decimal.Decimal  // flat: currency amount
	Category    product.Category // category_based: target category
	MinQuantity int              // category_based: minimum item count
}

// Repository provides access to the rule catalog.
type Repository interface {
	// ListActive returns every rule with the active flag set, ordered by
	// rule ID. Evaluation order is part of the engine contract, so
	// implementations must keep the ordering stable.
	ListActive(ctx context.Context) ([]Rule, error)
}
