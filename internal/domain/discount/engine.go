package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shopworks/discount-engine/internal/domain/order"
	"github.com/shopworks/discount-engine/internal/domain/rule"
)

// Invalidator drops cached derived totals for an order. Every mutator of an
// order's line items or discounts is contractually required to call it; the
// cache has no mutation-observing mechanism of its own.
type Invalidator interface {
	Invalidate(ctx context.Context, orderID string) error
}

// Engine runs a full discount pass for one order: a single loyalty snapshot,
// candidate evaluation over the active rule catalog, conflict resolution,
// atomic replacement of the stored discount set, and cache invalidation.
//
// The engine holds no internal locks. Callers must serialize passes per
// order; in practice the pass runs synchronously inside order creation, which
// already guarantees that.
type Engine struct {
	rules     rule.Repository
	loyalty   *LoyaltyEvaluator
	discounts Repository
	totals    Invalidator
	tracer    trace.Tracer
}

// NewEngine wires the engine's collaborators.
func NewEngine(rules rule.Repository, loyalty *LoyaltyEvaluator, discounts Repository, totals Invalidator) *Engine {
	return &Engine{
		rules:     rules,
		loyalty:   loyalty,
		discounts: discounts,
		totals:    totals,
		tracer:    otel.Tracer("discount-engine"),
	}
}

// Recompute replaces the order's discount set with a freshly computed one.
// Replaying it against unchanged order and rule state stores an identical
// amount set (row IDs differ). A persistence failure aborts the pass with the
// prior discounts intact. Cache invalidation failure is logged and surfaced
// as an error attribute but does not undo the computation: the cache is an
// acceleration of reads, never a source of truth.
func (e *Engine) Recompute(ctx context.Context, o *order.Order) error {
	ctx, span := e.tracer.Start(ctx, "discount.Recompute",
		trace.WithAttributes(attribute.String("order.id", o.ID)))
	defer span.End()

	isLoyal, err := e.loyalty.IsLoyal(ctx, o.CustomerID, o.ID)
	if err != nil {
		return errors.Wrap(err, "loyalty check")
	}

	active, err := e.rules.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "list active rules")
	}

	candidates := Evaluate(o.Items, active, isLoyal)
	resolved := Resolve(o.ID, candidates, isLoyal)

	if err := e.discounts.Replace(ctx, o.ID, resolved); err != nil {
		return errors.Wrap(err, "replace discounts")
	}

	if err := e.totals.Invalidate(ctx, o.ID); err != nil {
		span.RecordError(err)
		zctx.From(ctx).Error("invalidate derived totals",
			zap.String("order_id", o.ID), zap.Error(err))
	}

	zctx.From(ctx).Info("discounts recomputed",
		zap.String("order_id", o.ID),
		zap.Bool("loyal", isLoyal),
		zap.Int("discounts", len(resolved)))

	return nil
}
