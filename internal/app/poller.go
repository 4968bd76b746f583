package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultSyncInterval = 15 * time.Minute

// Syncer registers the device and refreshes its entitlement.
type Syncer interface {
	Sync(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// SyncOptions tune StartEntitlementSync. Zero values use the defaults.
type SyncOptions struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// StartEntitlementSync launches a background goroutine that runs the launch
// Sync once, then refreshes the entitlement every interval. Failures are
// logged and the cadence never changes; a failed registration waits for the
// next launch. The returned channel is closed when the loop exits after ctx
// ends.
func StartEntitlementSync(ctx context.Context, syncer Syncer, opts SyncOptions) <-chan struct{} {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := syncer.Sync(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("device sync failed", "error", err)
		}

		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
			}
			if err := syncer.Refresh(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("entitlement refresh failed", "error", err)
			}
		}
	}()
	return done
}
