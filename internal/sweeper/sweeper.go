// Package sweeper settles auctions whose bidding deadline has passed, so that
// closing does not depend on any client being online when the deadline hits.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Settler closes every open auction whose deadline is at or before now and
// returns how many it closed.
type Settler interface {
	SettleDueAuctions(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically invokes a Settler.
type Sweeper struct {
	settler  Settler
	interval time.Duration
	clock    func() time.Time
}

// New creates a sweeper running every interval.
func New(settler Settler, interval time.Duration) *Sweeper {
	return &Sweeper{settler: settler, interval: interval, clock: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A non-positive interval disables the loop.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.settler == nil || s.interval <= 0 {
		slog.Info("Auction sweeper disabled")
		return
	}
	slog.Info("Auction sweeper started", "interval", s.interval)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Auction sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged; the next tick retries.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	n, err := s.settler.SettleDueAuctions(ctx, s.clock().UTC())
	if err != nil {
		slog.Error("Auction sweep failed", "error", err, "settled", n)
		return n
	}
	if n > 0 {
		slog.Info("Auction sweep settled auctions", "settled", n)
	}
	return n
}
