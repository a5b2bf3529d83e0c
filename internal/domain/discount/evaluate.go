package discount

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopworks/discount-engine/internal/domain/order"
	"github.com/shopworks/discount-engine/internal/domain/product"
	"github.com/shopworks/discount-engine/internal/domain/rule"
)

var hundred = decimal.NewFromInt(100)

// Candidate is a computed discount amount pending the stacking decision.
type Candidate struct {
	Kind        rule.Kind
	Amount      decimal.Decimal
	Description string
}

// Candidates is the outcome of evaluating the rule catalog against one order.
// Percent and Flat are single slots: when several rules of the same kind
// qualify, the one with the highest rule ID wins (last-wins over the pinned
// iteration order). Category candidates have no slot limit.
type Candidates struct {
	Percent  *Candidate
	Flat     *Candidate
	Category []Candidate
}

// Evaluate computes discount candidates for the given line items. It is a
// pure fold over the rules sorted by rule ID, so results are reproducible
// regardless of catalog iteration order. Inactive rules must already be
// filtered out; rules missing fields their kind requires are skipped.
func Evaluate(items []order.LineItem, rules []rule.Rule, isLoyal bool) Candidates {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b rule.Rule) int {
		return strings.Compare(a.ID, b.ID)
	})

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}

	var c Candidates
	for _, r := range sorted {
		switch r.Kind {
		case rule.KindPercentage:
			if cand, ok := evalPercentage(r, total); ok {
				c.Percent = &cand
			}
		case rule.KindFlat:
			if cand, ok := evalFlat(r, isLoyal); ok {
				c.Flat = &cand
			}
		case rule.KindCategoryBased:
			if cand, ok := evalCategory(r, items); ok {
				c.Category = append(c.Category, cand)
			}
		}
	}
	return c
}

// evalPercentage qualifies when the order total reaches the threshold (a zero
// threshold imposes no floor) and the rule carries a nonzero percentage. A
// zero order total never qualifies: an empty order gets no percent discount
// rather than a zero-amount row.
func evalPercentage(r rule.Rule, total decimal.Decimal) (Candidate, bool) {
	if r.Percentage.IsZero() || !total.IsPositive() || total.LessThan(r.Threshold) {
		return Candidate{}, false
	}
	return Candidate{
		Kind:        rule.KindPercentage,
		Amount:      total.Mul(r.Percentage).Div(hundred),
		Description: fmt.Sprintf("%s%% off orders above %s", r.Percentage, r.Threshold),
	}, true
}

// evalFlat qualifies only for loyal customers and needs a nonzero amount.
func evalFlat(r rule.Rule, isLoyal bool) (Candidate, bool) {
	if !isLoyal || r.FlatAmount.IsZero() {
		return Candidate{}, false
	}
	return Candidate{
		Kind:        rule.KindFlat,
		Amount:      r.FlatAmount,
		Description: fmt.Sprintf("Flat %s off for loyalty program", r.FlatAmount),
	}, true
}

// evalCategory needs category, percentage and minimum quantity all present,
// and enough items of the category in the order.
func evalCategory(r rule.Rule, items []order.LineItem) (Candidate, bool) {
	if r.Category == "" || r.Percentage.IsZero() || r.MinQuantity <= 0 {
		return Candidate{}, false
	}

	qty, catTotal := categoryTotals(items, r.Category)
	if qty < r.MinQuantity {
		return Candidate{}, false
	}
	return Candidate{
		Kind:        rule.KindCategoryBased,
		Amount:      catTotal.Mul(r.Percentage).Div(hundred),
		Description: fmt.Sprintf("%s%% off on %s (min %d items)", r.Percentage, r.Category, r.MinQuantity),
	}, true
}

// categoryTotals returns the item count and the summed line totals for items
// of the given category.
func categoryTotals(items []order.LineItem, cat product.Category) (int, decimal.Decimal) {
	qty := 0
	total := decimal.Zero
	for _, item := range items {
		if item.Category != cat {
			continue
		}
		qty += item.Quantity
		total = total.Add(item.Total())
	}
	return qty, total
}
