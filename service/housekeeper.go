package service

import (
	"context"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/veridian-labs/walletgate/ports"
)

// Sweep reclaims login sessions past their retention window and deletes
// expired issued sessions. The polling path already enforces expiry lazily;
// the sweep only frees storage, so skipping a run is harmless and the two
// are externally indistinguishable.
func (s *LoginService) Sweep(ctx context.Context) error {
	now := time.Now()

	if sweeper, ok := s.store.(ports.SessionSweeper); ok {
		removed, err := sweeper.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		if removed > 0 {
			slogctx.Info(ctx, "reclaimed expired login sessions", "count", removed)
		}
	}

	removed, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	if removed > 0 {
		slogctx.Info(ctx, "deleted expired bearer sessions", "count", removed)
	}

	return nil
}

// RunSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *LoginService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				slogctx.Warn(ctx, "housekeeping sweep failed", "error", err)
			}
		}
	}
}
