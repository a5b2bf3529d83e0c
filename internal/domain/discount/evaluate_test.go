package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/discount-engine/internal/domain/order"
	"github.com/shopworks/discount-engine/internal/domain/product"
	"github.com/shopworks/discount-engine/internal/domain/rule"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(cat product.Category, price string, qty int) order.LineItem {
	return order.LineItem{
		ProductID:       "p-" + string(cat),
		Category:        cat,
		Quantity:        qty,
		PriceAtPurchase: dec(price),
	}
}

func percentageRule(id, threshold, percentage string) rule.Rule {
	return rule.Rule{
		ID:         id,
		Kind:       rule.KindPercentage,
		Active:     true,
		Threshold:  dec(threshold),
		Percentage: dec(percentage),
	}
}

func flatRule(id, amount string) rule.Rule {
	return rule.Rule{
		ID:         id,
		Kind:       rule.KindFlat,
		Active:     true,
		FlatAmount: dec(amount),
	}
}

func categoryRule(id string, cat product.Category, percentage string, minQty int) rule.Rule {
	return rule.Rule{
		ID:          id,
		Kind:        rule.KindCategoryBased,
		Active:      true,
		Percentage:  dec(percentage),
		Category:    cat,
		MinQuantity: minQty,
	}
}

func TestEvaluate_Percentage(t *testing.T) {
	items := []order.LineItem{
		item(product.CategoryElectronics, "1000", 4),
		item(product.CategoryFashion, "2000", 1),
	}

	tests := []struct {
		name       string
		rules      []rule.Rule
		wantAmount string
		wantNone   bool
	}{
		{
			name:       "total meets threshold exactly",
			rules:      []rule.Rule{percentageRule("r1", "6000", "10")},
			wantAmount: "600",
		},
		{
			name:     "total below threshold",
			rules:    []rule.Rule{percentageRule("r1", "6001", "10")},
			wantNone: true,
		},
		{
			name:       "zero threshold imposes no floor",
			rules:      []rule.Rule{percentageRule("r1", "0", "10")},
			wantAmount: "600",
		},
		{
			name:     "missing percentage is skipped",
			rules:    []rule.Rule{percentageRule("r1", "5000", "0")},
			wantNone: true,
		},
		{
			name: "last rule by ID wins the slot",
			rules: []rule.Rule{
				percentageRule("r2", "0", "20"),
				percentageRule("r1", "0", "10"),
			},
			wantAmount: "1200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Evaluate(items, tt.rules, false)
			if tt.wantNone {
				assert.Nil(t, c.Percent)
				return
			}
			require.NotNil(t, c.Percent)
			assert.True(t, dec(tt.wantAmount).Equal(c.Percent.Amount),
				"want %s, got %s", tt.wantAmount, c.Percent.Amount)
			assert.Equal(t, rule.KindPercentage, c.Percent.Kind)
		})
	}
}

func TestEvaluate_Flat(t *testing.T) {
	items := []order.LineItem{item(product.CategoryHome, "100", 1)}

	t.Run("loyal customer gets the flat candidate", func(t *testing.T) {
		c := Evaluate(items, []rule.Rule{flatRule("r1", "500")}, true)
		require.NotNil(t, c.Flat)
		assert.True(t, dec("500").Equal(c.Flat.Amount))
	})

	t.Run("non-loyal customer gets none", func(t *testing.T) {
		c := Evaluate(items, []rule.Rule{flatRule("r1", "500")}, false)
		assert.Nil(t, c.Flat)
	})

	t.Run("missing amount is skipped even for loyal customers", func(t *testing.T) {
		c := Evaluate(items, []rule.Rule{flatRule("r1", "0")}, true)
		assert.Nil(t, c.Flat)
	})

	t.Run("last rule by ID wins the slot", func(t *testing.T) {
		c := Evaluate(items, []rule.Rule{flatRule("r9", "300"), flatRule("r2", "500")}, true)
		require.NotNil(t, c.Flat)
		assert.True(t, dec("300").Equal(c.Flat.Amount))
	})
}

func TestEvaluate_CategoryBased(t *testing.T) {
	items := []order.LineItem{
		item(product.CategoryElectronics, "1000", 4),
		item(product.CategoryFashion, "500", 2),
	}

	t.Run("quantity threshold met", func(t *testing.T) {
		c := Evaluate(items, []rule.Rule{categoryRule("r1", product.CategoryElectronics, "5", 3)}, false)
		require.Len(t, c.Category, 1)
		// 5% of the electronics line total only (4000), not the order total.
		assert.True(t, dec("200").Equal(c.Category[0].Amount))
	})

	t.Run("quantity threshold not met", func(t *testing.T) {
		c := Evaluate(items, []rule.Rule{categoryRule("r1", product.CategoryElectronics, "5", 5)}, false)
		assert.Empty(t, c.Category)
	})

	t.Run("misconfigured rules are skipped", func(t *testing.T) {
		rules := []rule.Rule{
			categoryRule("r1", "", "5", 3),
			categoryRule("r2", product.CategoryElectronics, "0", 3),
			categoryRule("r3", product.CategoryElectronics, "5", 0),
		}
		c := Evaluate(items, rules, false)
		assert.Empty(t, c.Category)
	})

	t.Run("independently satisfied rules stack without a slot limit", func(t *testing.T) {
		rules := []rule.Rule{
			categoryRule("r1", product.CategoryElectronics, "5", 3),
			categoryRule("r2", product.CategoryFashion, "10", 2),
		}
		c := Evaluate(items, rules, false)
		require.Len(t, c.Category, 2)
		assert.True(t, dec("200").Equal(c.Category[0].Amount))
		assert.True(t, dec("100").Equal(c.Category[1].Amount))
	})
}

func TestEvaluate_EmptyOrder(t *testing.T) {
	rules := []rule.Rule{
		percentageRule("r1", "0", "10"),
		flatRule("r2", "500"),
		categoryRule("r3", product.CategoryElectronics, "5", 1),
	}

	c := Evaluate(nil, rules, false)

	assert.Nil(t, c.Percent)
	assert.Nil(t, c.Flat)
	assert.Empty(t, c.Category)
}

func TestEvaluate_IgnoresIrrelevantFields(t *testing.T) {
	// A percentage rule with category fields set must never read them.
	r := percentageRule("r1", "0", "10")
	r.Category = product.CategoryFashion
	r.MinQuantity = 99
	r.FlatAmount = dec("12345")

	items := []order.LineItem{item(product.CategoryElectronics, "100", 1)}
	c := Evaluate(items, []rule.Rule{r}, false)

	require.NotNil(t, c.Percent)
	assert.True(t, dec("10").Equal(c.Percent.Amount))
	assert.Nil(t, c.Flat)
	assert.Empty(t, c.Category)
}
