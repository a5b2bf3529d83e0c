//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shopworks/discount-engine/internal/domain/discount"
	"github.com/shopworks/discount-engine/internal/domain/order"
	"github.com/shopworks/discount-engine/internal/storage/postgres"
)

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(_ context.Context, _ string) error { return nil }

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("discounts"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool))
	return pool
}

func seedBase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO customers (id, name) VALUES ('cust-1', 'Alice'), ('cust-2', 'Bob')`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO products (id, name, price, category) VALUES
		('prod-a', 'Product A', 1000, 'electronics'),
		('prod-b', 'Product B', 2000, 'fashion')`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO discount_rules (id, kind, active, threshold, percentage, flat_amount, category, min_quantity) VALUES
		('rule-1', 'percentage', TRUE, 5000, 10, 0, '', 0),
		('rule-2', 'category_based', TRUE, 0, 5, 0, 'electronics', 3),
		('rule-3', 'flat', TRUE, 0, 0, 500, '', 0)`)
	require.NoError(t, err)
}

func newStack(pool *pgxpool.Pool) (*order.Service, *discount.Engine, *postgres.DiscountRepository, *postgres.TotalsSource) {
	orders := postgres.NewOrderRepository(pool)
	discounts := postgres.NewDiscountRepository(pool)
	engine := discount.NewEngine(
		postgres.NewRuleRepository(pool),
		discount.NewLoyaltyEvaluator(orders),
		discounts,
		noopInvalidator{})
	svc := order.NewService(postgres.NewProductRepository(pool), orders, engine, noopInvalidator{})
	return svc, engine, discounts, postgres.NewTotalsSource(pool)
}

func placeScenarioOrder(t *testing.T, svc *order.Service, customerID string) *order.Order {
	t.Helper()
	o, err := svc.Place(context.Background(), order.PlaceOrderRequest{
		CustomerID: customerID,
		Items: []order.ItemRequest{
			{ProductID: "prod-a", Quantity: 4},
			{ProductID: "prod-b", Quantity: 1},
		},
	})
	require.NoError(t, err)
	return o
}

func TestDiscountPass_EndToEnd(t *testing.T) {
	pool := setupPool(t)
	seedBase(t, pool)
	ctx := context.Background()

	// Deactivate the flat rule: this scenario is a non-loyal customer with
	// a 6000 order, a 10%-over-5000 rule and a 5% electronics (min 3) rule.
	_, err := pool.Exec(ctx, `UPDATE discount_rules SET active = FALSE WHERE id = 'rule-3'`)
	require.NoError(t, err)

	svc, _, discounts, totals := newStack(pool)
	o := placeScenarioOrder(t, svc, "cust-1")

	stored, err := discounts.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, discount.TypeCategoryBased, stored[0].Type)
	assert.Equal(t, "200.00", stored[0].Amount.StringFixed(2))
	assert.Equal(t, discount.TypePercentage, stored[1].Type)
	assert.Equal(t, "600.00", stored[1].Amount.StringFixed(2))

	total, err := totals.TotalPrice(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "6000.00", total.StringFixed(2))

	final, err := totals.FinalPrice(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "5200.00", final.StringFixed(2))

	qty, err := totals.TotalQuantity(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), qty)
}

func TestDiscountPass_LoyalCustomerStacksFlat(t *testing.T) {
	pool := setupPool(t)
	seedBase(t, pool)
	ctx := context.Background()

	svc, _, discounts, _ := newStack(pool)

	// Five completed prior orders make cust-2 loyal.
	for range 5 {
		prior := placeScenarioOrder(t, svc, "cust-2")
		require.NoError(t, svc.UpdateStatus(ctx, prior.ID, order.StatusCompleted))
	}

	o := placeScenarioOrder(t, svc, "cust-2")

	stored, err := discounts.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, discount.TypeCategoryBased, stored[0].Type)
	assert.Equal(t, discount.TypePercentage, stored[1].Type)
	assert.Equal(t, discount.TypeFlat, stored[2].Type)
	assert.Equal(t, "500.00", stored[2].Amount.StringFixed(2))
}

func TestDiscountPass_ReplaceIsIdempotentByValue(t *testing.T) {
	pool := setupPool(t)
	seedBase(t, pool)
	ctx := context.Background()

	svc, engine, discounts, _ := newStack(pool)
	o := placeScenarioOrder(t, svc, "cust-1")

	first, err := discounts.ListByOrder(ctx, o.ID)
	require.NoError(t, err)

	loaded, err := postgres.NewOrderRepository(pool).GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, engine.Recompute(ctx, loaded))

	second, err := discounts.ListByOrder(ctx, o.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Amount.Equal(second[i].Amount))
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestOrderDelete_RemovesOwnedRows(t *testing.T) {
	pool := setupPool(t)
	seedBase(t, pool)
	ctx := context.Background()

	svc, _, _, _ := newStack(pool)
	o := placeScenarioOrder(t, svc, "cust-1")

	require.NoError(t, svc.Remove(ctx, o.ID))

	for _, table := range []string{"order_items", "discounts"} {
		var n int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM `+table+` WHERE order_id = $1`, o.ID).Scan(&n))
		assert.Zero(t, n, table)
	}

	var n int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE id = $1`, o.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestLoyaltyCount_ExcludesOrderUnderEvaluation(t *testing.T) {
	pool := setupPool(t)
	seedBase(t, pool)
	ctx := context.Background()

	svc, _, _, _ := newStack(pool)
	orders := postgres.NewOrderRepository(pool)

	var last *order.Order
	for range 5 {
		last = placeScenarioOrder(t, svc, "cust-1")
		require.NoError(t, svc.UpdateStatus(ctx, last.ID, order.StatusShipped))
	}

	statuses := []order.Status{order.StatusCompleted, order.StatusShipped}

	n, err := orders.CountByStatus(ctx, "cust-1", statuses, last.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = orders.CountByStatus(ctx, "cust-1", statuses, "other-order")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
