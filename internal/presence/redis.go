package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/learning-engine/internal/models"
)

const redisKeyPrefix = "presence:course:"

// RedisStore implements Store on top of Redis hashes.
// Each course is one hash; fields are "levelID|studentID" and values are
// JSON-encoded entries. The hash TTL is refreshed on every touch so idle
// courses expire on their own.
type RedisStore struct {
	client *redis.Client
	keyTTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(address, password string, db int, keyTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, keyTTL), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, keyTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, keyTTL: keyTTL}
}

func courseKey(courseID string) string {
	return redisKeyPrefix + courseID
}

func entryField(levelID, studentID string) string {
	return levelID + "|" + studentID
}

func (s *RedisStore) Touch(ctx context.Context, entry models.PresenceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode presence entry: %w", err)
	}

	key := courseKey(entry.CourseID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, entryField(entry.LevelID, entry.StudentID), data)
	if s.keyTTL > 0 {
		pipe.Expire(ctx, key, s.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to touch presence: %w", err)
	}
	return nil
}

// Remove deletes every entry owned by studentID. Ownership is read from the
// stored entry, not the field name: student IDs may themselves contain "|".
func (s *RedisStore) Remove(ctx context.Context, courseID, studentID string) (int, error) {
	key := courseKey(courseID)
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list presence fields: %w", err)
	}

	var matched []string
	for field, raw := range values {
		var e models.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		if e.StudentID == studentID && field == entryField(e.LevelID, e.StudentID) {
			matched = append(matched, field)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	n, err := s.client.HDel(ctx, key, matched...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to remove presence: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) List(ctx context.Context, courseID string) ([]models.PresenceEntry, error) {
	values, err := s.client.HGetAll(ctx, courseKey(courseID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}

	entries := make([]models.PresenceEntry, 0, len(values))
	for field, raw := range values {
		var e models.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			slog.Warn("skipping malformed presence entry",
				"course_id", courseID,
				"field", field,
				"error", err,
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Prune scans every course hash and drops fields last seen before the cutoff
func (s *RedisStore) Prune(ctx context.Context, before time.Time) (int, error) {
	var cursor uint64
	pruned := 0

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to scan presence keys: %w", err)
		}

		for _, key := range keys {
			n, err := s.pruneKey(ctx, key, before)
			if err != nil {
				slog.Warn("failed to prune presence key", "key", key, "error", err)
				continue
			}
			pruned += n
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return pruned, nil
}

func (s *RedisStore) pruneKey(ctx context.Context, key string, before time.Time) (int, error) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	var stale []string
	for field, raw := range values {
		var e models.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.LastSeenAt.Before(before) {
			stale = append(stale, field)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := s.client.HDel(ctx, key, stale...).Result()
	return int(n), err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
