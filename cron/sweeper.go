package cron

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HoldSweeper is the booking service entry point the sweep drivers call.
type HoldSweeper interface {
	SweepExpiredHolds(ctx context.Context) ([]string, error)
}

// RunHoldSweeper expires abandoned holds every interval until ctx is done. Used when
// SWEEP_MODE is "ticker"; a single replica is assumed.
func RunHoldSweeper(ctx context.Context, sweeper HoldSweeper, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("HoldSweeper: started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("HoldSweeper: stopped")
			return
		case <-ticker.C:
			if _, err := sweeper.SweepExpiredHolds(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("HoldSweeper: sweep failed, retrying next tick", zap.Error(err))
			}
		}
	}
}
