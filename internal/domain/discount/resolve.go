package discount

import (
	"github.com/google/uuid"

	"github.com/shopworks/discount-engine/internal/domain/rule"
)

// Resolve turns candidates into the final discount list for the order,
// applying the stacking policy in fixed order:
//
//  1. every category candidate is kept, unconditionally additive;
//  2. with both a percent and a flat candidate, a loyal customer gets both,
//     anyone else gets only the strictly larger one — an exact tie goes to
//     the percentage candidate;
//  3. a lone percent or flat candidate is kept as is.
//
// Amounts are rounded to 2 decimal places at this boundary; comparison in
// step 2 happens on the unrounded amounts.
func Resolve(orderID string, c Candidates, isLoyal bool) []Discount {
	out := make([]Discount, 0, len(c.Category)+2)

	for _, cat := range c.Category {
		out = append(out, materialize(orderID, cat))
	}

	switch {
	case c.Percent != nil && c.Flat != nil:
		if isLoyal {
			out = append(out, materialize(orderID, *c.Percent), materialize(orderID, *c.Flat))
			break
		}
		if c.Flat.Amount.GreaterThan(c.Percent.Amount) {
			out = append(out, materialize(orderID, *c.Flat))
		} else {
			out = append(out, materialize(orderID, *c.Percent))
		}
	case c.Percent != nil:
		out = append(out, materialize(orderID, *c.Percent))
	case c.Flat != nil:
		out = append(out, materialize(orderID, *c.Flat))
	}

	return out
}

func materialize(orderID string, c Candidate) Discount {
	return Discount{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Type:        typeForKind(c.Kind),
		Description: c.Description,
		Amount:      c.Amount.Round(2),
	}
}

func typeForKind(k rule.Kind) Type {
	switch k {
	case rule.KindPercentage:
		return TypePercentage
	case rule.KindFlat:
		return TypeFlat
	default:
		return TypeCategoryBased
	}
}
