package billing

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/tradeacademy/commissioner/pkg/config"
)

// runScheduler drives the recurring billing run. ProcessDueSubscriptions is
// idempotent, so overlapping or re-triggered runs are harmless.
func runScheduler(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, mgr Manager) error {
	spec := cfg.Billing.CronSpec
	if spec == "" {
		log.Infow("billing scheduler disabled: empty cron spec")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		res, err := mgr.ProcessDueSubscriptions(ctx, time.Now())
		if err != nil {
			log.Errorf("scheduled billing run failed: %v", err)
			return
		}
		log.Infow("scheduled billing run finished",
			"processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed)
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			log.Infow("billing scheduler started", "spec", spec)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			log.Infow("billing scheduler stopped")
			return nil
		},
	})
	return nil
}
