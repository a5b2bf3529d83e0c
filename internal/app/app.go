// Package app wires configuration and concrete components together. It is
// the single composition point used by the commands.
package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopworks/discount-engine/internal/cache"
	"github.com/shopworks/discount-engine/internal/domain/discount"
	"github.com/shopworks/discount-engine/internal/domain/order"
	"github.com/shopworks/discount-engine/internal/storage/postgres"
)

// Components is the fully wired object graph.
type Components struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Products  *postgres.ProductRepository
	Orders    *postgres.OrderRepository
	Rules     *postgres.RuleRepository
	Discounts *postgres.DiscountRepository

	Totals       *cache.Totals
	Engine       *discount.Engine
	OrderService *order.Service
}

// Setup connects to PostgreSQL and redis, runs migrations, and builds the
// repositories, the totals cache, the discount engine and the order service.
// Redis being down is logged but not fatal: the cache falls through to the
// source and must never block order flow.
func Setup(ctx context.Context, lg *zap.Logger, cfg *Config) (*Components, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		lg.Warn("redis unavailable, totals cache degraded to source reads",
			zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	c := &Components{
		Pool:      pool,
		Redis:     rdb,
		Products:  postgres.NewProductRepository(pool),
		Orders:    postgres.NewOrderRepository(pool),
		Rules:     postgres.NewRuleRepository(pool),
		Discounts: postgres.NewDiscountRepository(pool),
	}
	c.Totals = cache.NewTotals(rdb, postgres.NewTotalsSource(pool))

	loyalty := discount.NewLoyaltyEvaluator(c.Orders)
	c.Engine = discount.NewEngine(c.Rules, loyalty, c.Discounts, c.Totals)
	c.OrderService = order.NewService(c.Products, c.Orders, c.Engine, c.Totals)

	return c, nil
}

// Close releases the database pool and the redis client.
func (c *Components) Close() error {
	c.Pool.Close()
	return c.Redis.Close()
}
