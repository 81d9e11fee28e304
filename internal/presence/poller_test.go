package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/learning-engine/internal/models"
)

type stubReader struct {
	students []models.ActiveStudent
	fail     bool
}

func (r *stubReader) GetLiveCounts(ctx context.Context, courseID string) (models.LiveCounts, error) {
	if r.fail {
		return nil, errors.New("unavailable")
	}
	return models.LiveCounts{"l1": len(r.students)}, nil
}

func (r *stubReader) GetActiveStudents(ctx context.Context, courseID string) ([]models.ActiveStudent, error) {
	if r.fail {
		return nil, errors.New("unavailable")
	}
	return append([]models.ActiveStudent(nil), r.students...), nil
}

func TestMonitor_GroupsAndDropsStaleRows(t *testing.T) {
	reader := &stubReader{students: []models.ActiveStudent{
		{LevelID: "l1", StudentID: "s1", Name: "Ana", SecondsSinceLastSeen: 10},
		{LevelID: "l1", StudentID: "s2", Name: "Bo", SecondsSinceLastSeen: 300},
		{LevelID: "l2", StudentID: "s3", Name: "Cy", SecondsSinceLastSeen: 299},
	}}

	var mu sync.Mutex
	var got []models.LevelRoster
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewMonitor(reader, "c1", time.Hour, DefaultStalenessWindow, func(r []models.LevelRoster) {
		mu.Lock()
		got = r
		mu.Unlock()
	}).Start(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "l1", got[0].LevelID)
	require.Len(t, got[0].Students, 1)
	assert.Equal(t, "Ana", got[0].Students[0].Name)
	assert.Equal(t, "l2", got[1].LevelID)
}

func TestPoller_FailuresAreSilent(t *testing.T) {
	reader := &stubReader{fail: true}
	calls := 0

	p := NewCountsWatcher(reader, "c1", time.Hour, func(models.LiveCounts) { calls++ })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	assert.Equal(t, 0, calls)
}
