// Package cache provides the read-through cache for an order's derived
// totals: total price, final price after discounts, and total quantity.
// Entries are keyed per order per metric with a bounded TTL and must be
// invalidated by every collaborator that mutates the order's line items or
// discounts.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TTL bounds the lifetime of every cache entry.
const TTL = 5 * time.Minute

// TotalsSource computes derived totals from current line item and discount
// state. Implemented by the storage layer with aggregate queries.
type TotalsSource interface {
	TotalPrice(ctx context.Context, orderID string) (decimal.Decimal, error)
	FinalPrice(ctx context.Context, orderID string) (decimal.Decimal, error)
	TotalQuantity(ctx context.Context, orderID string) (int64, error)
}

// Totals is a redis-backed read-through cache over a TotalsSource. Redis is
// best-effort on the read path: a cache failure falls through to the source
// so an unavailable cache never blocks order reads. Invalidation, by
// contrast, is correctness-critical and returns its error to the caller.
type Totals struct {
	rdb   *redis.Client
	src   TotalsSource
	group singleflight.Group
}

// NewTotals creates a Totals cache over the given redis client and source.
func NewTotals(rdb *redis.Client, src TotalsSource) *Totals {
	return &Totals{rdb: rdb, src: src}
}

// GetOrComputeTotalPrice returns the order's summed line totals.
func (c *Totals) GetOrComputeTotalPrice(ctx context.Context, orderID string) (decimal.Decimal, error) {
	raw, err := c.getOrCompute(ctx, totalPriceKey(orderID), func(ctx context.Context) (string, error) {
		v, err := c.src.TotalPrice(ctx, orderID)
		if err != nil {
			return "", err
		}
		return v.StringFixed(2), nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// GetOrComputeFinalPrice returns the order's total minus its discount amounts.
func (c *Totals) GetOrComputeFinalPrice(ctx context.Context, orderID string) (decimal.Decimal, error) {
	raw, err := c.getOrCompute(ctx, finalPriceKey(orderID), func(ctx context.Context) (string, error) {
		v, err := c.src.FinalPrice(ctx, orderID)
		if err != nil {
			return "", err
		}
		return v.StringFixed(2), nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// GetOrComputeTotalQuantity returns the order's summed line item quantities.
func (c *Totals) GetOrComputeTotalQuantity(ctx context.Context, orderID string) (int64, error) {
	raw, err := c.getOrCompute(ctx, totalQuantityKey(orderID), func(ctx context.Context) (string, error) {
		v, err := c.src.TotalQuantity(ctx, orderID)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Invalidate drops all three metric entries for the order. Callers must not
// swallow the returned error: a missed invalidation silently serves stale
// totals for up to the TTL.
func (c *Totals) Invalidate(ctx context.Context, orderID string) error {
	err := c.rdb.Del(ctx, totalPriceKey(orderID), finalPriceKey(orderID), totalQuantityKey(orderID)).Err()
	if err != nil {
		return errors.Wrapf(err, "invalidate totals for order %s", orderID)
	}
	return nil
}

// getOrCompute looks the key up in redis and falls back to compute on miss or
// cache error. Concurrent misses for the same key are collapsed so the source
// is queried once.
func (c *Totals) getOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (string, error)) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		zctx.From(ctx).Warn("totals cache read failed, computing from source",
			zap.String("key", key), zap.Error(err))
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		computed, err := compute(ctx)
		if err != nil {
			return "", err
		}
		if err := c.rdb.Set(ctx, key, computed, TTL).Err(); err != nil {
			zctx.From(ctx).Warn("totals cache write failed",
				zap.String("key", key), zap.Error(err))
		}
		return computed, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func totalPriceKey(orderID string) string    { return fmt.Sprintf("order:%s:total_price", orderID) }
func finalPriceKey(orderID string) string    { return fmt.Sprintf("order:%s:final_price", orderID) }
func totalQuantityKey(orderID string) string { return fmt.Sprintf("order:%s:total_quantity", orderID) }
