// Command recompute re-runs the discount pass for the given order IDs.
//
// Discounts are normally computed exactly once, synchronously at order
// creation. Line items are immutable afterward, so the only reason stored
// discounts can drift is a correction to the rule catalog — this command is
// the operational owner of that case.
//
//	recompute <order-id> [<order-id>...]
package main

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/shopworks/discount-engine/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		return run(ctx, lg, cfg, os.Args[1:])
	})
}

func run(ctx context.Context, lg *zap.Logger, cfg *appkg.Config, orderIDs []string) error {
	if len(orderIDs) == 0 {
		return errors.New("usage: recompute <order-id> [<order-id>...]")
	}

	components, err := appkg.Setup(ctx, lg, cfg)
	if err != nil {
		return errors.Wrap(err, "setup")
	}
	defer components.Close() //nolint:errcheck

	for _, id := range orderIDs {
		o, err := components.Orders.GetByID(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "load order %s", id)
		}
		if err := components.Engine.Recompute(ctx, o); err != nil {
			return errors.Wrapf(err, "recompute order %s", id)
		}
		lg.Info("order recomputed", zap.String("order_id", id))
	}

	return nil
}
