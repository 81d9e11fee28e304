package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/learning-engine/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService() (*Service, *MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	return NewService(store, DefaultStalenessWindow, WithClock(clock.Now)), store, clock
}

func student(id, name string) *models.Principal {
	return &models.Principal{ID: id, Name: name, Role: models.RoleStudent}
}

func TestService_HeartbeatCountsDistinctStudents(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Heartbeat(ctx, student("s1", "Ana"), "c1", "l1", 0)
	require.NoError(t, err)
	_, err = svc.Heartbeat(ctx, student("s1", "Ana"), "c1", "l1", 0)
	require.NoError(t, err)
	counts, err := svc.Heartbeat(ctx, student("s2", "Bo"), "c1", "l1", 0)
	require.NoError(t, err)

	assert.Equal(t, models.LiveCounts{"l1": 2}, counts)
}

func TestService_StalenessBoundary(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		live bool
	}{
		{"fresh", 0, true},
		{"just inside", 299 * time.Second, true},
		{"exactly window", 300 * time.Second, false},
		{"past window", 301 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, clock := newTestService()
			ctx := context.Background()

			_, err := svc.Heartbeat(ctx, student("s1", "Ana"), "c1", "l1", 0)
			require.NoError(t, err)
			clock.Advance(tt.age)

			counts, err := svc.GetLiveCounts(ctx, "c1")
			require.NoError(t, err)
			students, err := svc.GetActiveStudents(ctx, "c1")
			require.NoError(t, err)

			if tt.live {
				assert.Equal(t, 1, counts["l1"])
				require.Len(t, students, 1)
				assert.Equal(t, int(tt.age/time.Second), students[0].SecondsSinceLastSeen)
			} else {
				assert.Empty(t, counts)
				assert.Empty(t, students)
			}
		})
	}
}

func TestService_GoOfflineRemovesAllLevelsOfCourse(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	ana := student("s1", "Ana")

	_, err := svc.Heartbeat(ctx, ana, "c1", "l1", 0)
	require.NoError(t, err)
	_, err = svc.Heartbeat(ctx, ana, "c1", "l2", 1)
	require.NoError(t, err)
	_, err = svc.Heartbeat(ctx, ana, "c2", "l1", 0)
	require.NoError(t, err)

	require.NoError(t, svc.GoOffline(ctx, ana, "c1"))

	counts, err := svc.GetLiveCounts(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, counts)

	counts, err = svc.GetLiveCounts(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, counts["l1"])
}

func TestService_ActiveStudentsOrderedByLevelThenName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.Heartbeat(ctx, student("s3", "Cy"), "c1", "l2", 1)
	_, _ = svc.Heartbeat(ctx, student("s2", "Bo"), "c1", "l1", 0)
	_, _ = svc.Heartbeat(ctx, student("s1", "Ana"), "c1", "l1", 0)

	students, err := svc.GetActiveStudents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, []string{"Ana", "Bo", "Cy"}, []string{students[0].Name, students[1].Name, students[2].Name})

	rosters := GroupByLevel(students)
	require.Len(t, rosters, 2)
	assert.Equal(t, "l1", rosters[0].LevelID)
	assert.Len(t, rosters[0].Students, 2)
	assert.Equal(t, "l2", rosters[1].LevelID)
}

func TestService_RejectsInvalidHeartbeats(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Heartbeat(ctx, nil, "c1", "l1", 0)
	assert.ErrorIs(t, err, ErrNoPrincipal)

	_, err = svc.Heartbeat(ctx, student("s1", "Ana"), "", "l1", 0)
	assert.ErrorIs(t, err, ErrMissingCourse)

	_, err = svc.Heartbeat(ctx, student("s1", "Ana"), "c1", "", 0)
	assert.ErrorIs(t, err, ErrMissingLevel)
}

func TestService_PruneDropsStaleEntries(t *testing.T) {
	svc, store, clock := newTestService()
	ctx := context.Background()

	_, _ = svc.Heartbeat(ctx, student("s1", "Ana"), "c1", "l1", 0)
	clock.Advance(4 * time.Minute)
	_, _ = svc.Heartbeat(ctx, student("s2", "Bo"), "c1", "l1", 0)
	clock.Advance(2 * time.Minute)

	pruned, err := svc.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	entries, err := store.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s2", entries[0].StudentID)
}
