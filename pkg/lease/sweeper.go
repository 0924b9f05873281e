package lease

import (
	"context"
	"log/slog"
	"time"

	"github.com/openintent-ai/openintent/internal/telemetry"
)

// Sweeper periodically expires ACTIVE leases past their TTL (spec §4.3).
// It runs as a background task with an explicit shutdown join point (spec
// §9 "coroutine/async control flow").
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper constructs a Sweeper. interval is clamped to [100ms, 5s].
func NewSweeper(store *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	if interval > 5*time.Second {
		interval = 5 * time.Second
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := sw.store.SweepExpired(ctx)
			if err != nil {
				sw.logger.Error("lease sweep failed", "error", err)
				telemetry.LeasesExpiredTotal.Add(0)
				continue
			}
			if n > 0 {
				sw.logger.Info("leases expired", "count", n)
				telemetry.LeasesExpiredTotal.Add(float64(n))
			}
		}
	}
}
