package revenuemetrics

import (
	"context"
	"time"

	"github.com/smallbiznis/mywill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("revenue.metrics",
	fx.Provide(New),
	fx.Provide(NewPusher),
	fx.Invoke(startPushWorker),
)

// startPushWorker pushes on a fixed interval and once more on shutdown so the
// last increments are not lost.
func startPushWorker(lc fx.Lifecycle, cfg config.Config, rec *Recorder, pusher Pusher, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	log := logger.Named("revenue.metrics")
	interval := cfg.RevenueMetrics.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := pusher.Push(ctx, rec.Gatherer()); err != nil {
							log.Warn("revenue metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			if err := pusher.Push(stopCtx, rec.Gatherer()); err != nil {
				log.Warn("final revenue metrics push failed", zap.Error(err))
			}
			return nil
		},
	})
}
