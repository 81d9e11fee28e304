package presence

import (
	"context"
	"sync"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

type entryKey struct {
	courseID  string
	levelID   string
	studentID string
}

// MemoryStore keeps heartbeats in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]models.PresenceEntry
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[entryKey]models.PresenceEntry),
	}
}

func (s *MemoryStore) Touch(ctx context.Context, entry models.PresenceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey{entry.CourseID, entry.LevelID, entry.StudentID}] = entry
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, courseID, studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k := range s.entries {
		if k.courseID == courseID && k.studentID == studentID {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) List(ctx context.Context, courseID string) ([]models.PresenceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.PresenceEntry
	for k, e := range s.entries {
		if k.courseID == courseID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for k, e := range s.entries {
		if e.LastSeenAt.Before(before) {
			delete(s.entries, k)
			pruned++
		}
	}
	return pruned, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
