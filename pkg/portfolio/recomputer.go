package portfolio

import (
	"context"
	"log/slog"
	"time"
)

// Recomputer periodically refreshes every portfolio's aggregate status, as
// a backstop to the event-triggered recompute in Store.AddMember/
// RemoveMember (spec §2 background workers, §4.4).
type Recomputer struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

// NewRecomputer constructs a Recomputer.
func NewRecomputer(store *Store, interval time.Duration, logger *slog.Logger) *Recomputer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Recomputer{store: store, interval: interval, logger: logger}
}

// Run blocks, recomputing every portfolio on every tick until ctx is
// cancelled.
func (rc *Recomputer) Run(ctx context.Context) error {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rc.tick(ctx)
		}
	}
}

func (rc *Recomputer) tick(ctx context.Context) {
	portfolios, err := rc.store.List(ctx)
	if err != nil {
		rc.logger.Error("listing portfolios for recompute", "error", err)
		return
	}
	for _, p := range portfolios {
		if p.Status != StatusActive {
			continue
		}
		if err := rc.store.RecomputeAggregate(ctx, p.ID, "system:portfolio-recomputer"); err != nil {
			rc.logger.Error("recomputing portfolio aggregate", "portfolio_id", p.ID, "error", err)
		}
	}
}
