package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Pruner drops presence entries that fell out of the staleness window
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// Cleaner handles periodic sweeping of stale presence heartbeats.
// Liveness is already computed at read time; sweeping only bounds storage.
type Cleaner struct {
	pruner   Pruner
	interval time.Duration
}

// NewCleaner creates a new sweeper
func NewCleaner(pruner Pruner, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Cleaner{
		pruner:   pruner,
		interval: interval,
	}
}

// Start begins the sweeper in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Cleaner) run(ctx context.Context) {
	slog.Info("presence sweeper started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("presence sweeper stopped")
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one prune cycle and returns the number of entries removed
func (c *Cleaner) Sweep(ctx context.Context) int {
	pruned, err := c.pruner.Prune(ctx)
	if err != nil {
		slog.Error("failed to prune presence", "error", err)
		return 0
	}

	if pruned > 0 {
		slog.Info("stale presence pruned", "count", pruned)
	} else {
		slog.Debug("no stale presence found")
	}
	return pruned
}
