package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/learning-engine/internal/models"
)

func newMiniRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, time.Hour)
	t.Cleanup(func() { store.Close() })
	return store
}

func storesUnderTest(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newMiniRedisStore(t),
	}
}

func entry(courseID, levelID, studentID string, seen time.Time) models.PresenceEntry {
	return models.PresenceEntry{
		CourseID:   courseID,
		LevelID:    levelID,
		StudentID:  studentID,
		Name:       studentID,
		LastSeenAt: seen,
	}
}

func studentIDs(entries []models.PresenceEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.StudentID)
	}
	return ids
}

func TestStore_RemoveOnlyTouchesOwnEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Touch(ctx, entry("c", "l0", "auth0|123", now)))
			require.NoError(t, store.Touch(ctx, entry("c", "l0", "123", now)))
			require.NoError(t, store.Touch(ctx, entry("c", "l1", "123", now)))
			require.NoError(t, store.Touch(ctx, entry("other", "l0", "123", now)))

			removed, err := store.Remove(ctx, "c", "123")
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			left, err := store.List(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, []string{"auth0|123"}, studentIDs(left))

			other, err := store.List(ctx, "other")
			require.NoError(t, err)
			assert.Len(t, other, 1)
		})
	}
}

func TestStore_RemovePipeSeparatedID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Touch(ctx, entry("c", "l0", "auth0|123", now)))
			require.NoError(t, store.Touch(ctx, entry("c", "l0", "123", now)))

			removed, err := store.Remove(ctx, "c", "auth0|123")
			require.NoError(t, err)
			assert.Equal(t, 1, removed)

			left, err := store.List(ctx, "c")
			require.NoError(t, err)
			assert.Equal(t, []string{"123"}, studentIDs(left))
		})
	}
}

func TestStore_TouchUpsertsPerLevel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Touch(ctx, entry("c", "l0", "s1", now)))
			require.NoError(t, store.Touch(ctx, entry("c", "l0", "s1", now.Add(time.Minute))))

			entries, err := store.List(ctx, "c")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, entries[0].LastSeenAt.Equal(now.Add(time.Minute)))
		})
	}
}

func TestStore_Prune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Touch(ctx, entry("c1", "l0", "old", now.Add(-10*time.Minute))))
			require.NoError(t, store.Touch(ctx, entry("c2", "l0", "also-old", now.Add(-6*time.Minute))))
			require.NoError(t, store.Touch(ctx, entry("c1", "l0", "fresh", now)))

			pruned, err := store.Prune(ctx, now.Add(-DefaultStalenessWindow))
			require.NoError(t, err)
			assert.Equal(t, 2, pruned)

			left, err := store.List(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, []string{"fresh"}, studentIDs(left))
		})
	}
}

func TestRedisStore_SetsKeyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 10*time.Minute)
	defer store.Close()

	require.NoError(t, store.Touch(context.Background(), entry("c", "l0", "s1", time.Now())))
	assert.Equal(t, 10*time.Minute, mr.TTL(courseKey("c")))
}
