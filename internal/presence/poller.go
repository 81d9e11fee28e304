package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

// Poller fetches a snapshot on start and then once per interval.
// Fetch failures are logged and skipped; the next tick tries again.
type Poller[T any] struct {
	name       string
	interval   time.Duration
	fetch      func(ctx context.Context) (T, error)
	onSnapshot func(T)
}

// NewPoller creates a poller
func NewPoller[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error), onSnapshot func(T)) *Poller[T] {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Poller[T]{
		name:       name,
		interval:   interval,
		fetch:      fetch,
		onSnapshot: onSnapshot,
	}
}

// Start runs the poller in the background until ctx is cancelled
func (p *Poller[T]) Start(ctx context.Context) {
	go p.Run(ctx)
}

// Run polls until ctx is cancelled
func (p *Poller[T]) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("poller stopped", "poller", p.name)
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller[T]) poll(ctx context.Context) {
	snapshot, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Debug("poll failed", "poller", p.name, "error", err)
		}
		return
	}
	p.onSnapshot(snapshot)
}

// NewCountsWatcher polls live counts for a course
func NewCountsWatcher(reader Reader, courseID string, interval time.Duration, onCounts func(models.LiveCounts)) *Poller[models.LiveCounts] {
	return NewPoller("counts:"+courseID, interval, func(ctx context.Context) (models.LiveCounts, error) {
		return reader.GetLiveCounts(ctx, courseID)
	}, onCounts)
}

// NewMonitor polls the admin roster for a course and groups it by level.
// Rows at or beyond the staleness window are dropped.
func NewMonitor(reader Reader, courseID string, interval, window time.Duration, onRoster func([]models.LevelRoster)) *Poller[[]models.LevelRoster] {
	return NewPoller("monitor:"+courseID, interval, func(ctx context.Context) ([]models.LevelRoster, error) {
		students, err := reader.GetActiveStudents(ctx, courseID)
		if err != nil {
			return nil, err
		}
		return GroupByLevel(FreshStudents(students, window)), nil
	}, onRoster)
}

// FreshStudents drops rows last seen at or beyond window. A zero window
// keeps everything.
func FreshStudents(students []models.ActiveStudent, window time.Duration) []models.ActiveStudent {
	if window <= 0 {
		return students
	}
	fresh := make([]models.ActiveStudent, 0, len(students))
	for _, st := range students {
		if time.Duration(st.SecondsSinceLastSeen)*time.Second < window {
			fresh = append(fresh, st)
		}
	}
	return fresh
}
