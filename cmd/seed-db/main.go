// Command seed-db loads demo products, customers and the canonical discount
// rules into the database. Everything is upserted, so reruns are safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopworks/discount-engine/internal/domain/product"
	"github.com/shopworks/discount-engine/internal/domain/rule"
	"github.com/shopworks/discount-engine/internal/storage/postgres"
)

type seedProduct struct {
	id       string
	name     string
	price    decimal.Decimal
	category product.Category
}

type seedCustomer struct {
	id   string
	name string
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCustomers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customers")
	}
	if err := seedRules(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discount rules")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []seedProduct{
		{id: "prod-laptop", name: "Laptop", price: decimal.NewFromInt(1000), category: product.CategoryElectronics},
		{id: "prod-phone", name: "Phone", price: decimal.NewFromInt(2000), category: product.CategoryElectronics},
		{id: "prod-jacket", name: "Jacket", price: decimal.RequireFromString("149.99"), category: product.CategoryFashion},
		{id: "prod-lamp", name: "Desk Lamp", price: decimal.RequireFromString("39.50"), category: product.CategoryHome},
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, category = $4`,
			p.id, p.name, p.price, p.category)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) error {
	customers := []seedCustomer{
		{id: "cust-alice", name: "Alice"},
		{id: "cust-bob", name: "Bob"},
	}

	slog.Info("upserting customers", slog.Int("count", len(customers)))

	for _, c := range customers {
		_, err := pool.Exec(ctx,
			`INSERT INTO customers (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = $2`,
			c.id, c.name)
		if err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.id)
		}
	}
	return nil
}

func seedRules(ctx context.Context, pool *pgxpool.Pool) error {
	rules := []rule.Rule{
		{
			ID:         "rule-percent-10",
			Kind:       rule.KindPercentage,
			Active:     true,
			Threshold:  decimal.NewFromInt(5000),
			Percentage: decimal.NewFromInt(10),
		},
		{
			ID:         "rule-flat-loyalty",
			Kind:       rule.KindFlat,
			Active:     true,
			FlatAmount: decimal.NewFromInt(500),
		},
		{
			ID:          "rule-electronics-5",
			Kind:        rule.KindCategoryBased,
			Active:      true,
			Percentage:  decimal.NewFromInt(5),
			Category:    product.CategoryElectronics,
			MinQuantity: 3,
		},
	}

	slog.Info("upserting discount rules", slog.Int("count", len(rules)))

	for _, ru := range rules {
		_, err := pool.Exec(ctx,
			`INSERT INTO discount_rules (id, kind, active, threshold, percentage, flat_amount, category, min_quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET
			   kind = $2, active = $3, threshold = $4, percentage = $5,
			   flat_amount = $6, category = $7, min_quantity = $8`,
			ru.ID, ru.Kind, ru.Active, ru.Threshold, ru.Percentage, ru.FlatAmount, ru.Category, ru.MinQuantity)
		if err != nil {
			return errors.Wrapf(err, "upsert rule %s", ru.ID)
		}
		slog.Info("upserted rule", slog.String("id", ru.ID), slog.String("kind", string(ru.Kind)))
	}
	return nil
}
