package progress

import (
	"context"
	"sync"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

// Store holds the current enrollment snapshot for one student/course pair.
// It is owned by a single learning session. The server stays the source of
// truth: Refresh replaces the snapshot wholesale and a failed refresh keeps
// the last good one.
type Store struct {
	mu        sync.RWMutex
	source    Fetcher
	courseID  string
	snapshot  *models.Enrollment
	fetchedAt time.Time
}

// NewStore creates an empty store for a course
func NewStore(source Fetcher, courseID string) *Store {
	return &Store{
		source:   source,
		courseID: courseID,
	}
}

// CourseID returns the course this store tracks
func (s *Store) CourseID() string {
	return s.courseID
}

// Refresh fetches the authoritative record. Failures come back as
// *FetchError and leave the current snapshot untouched.
func (s *Store) Refresh(ctx context.Context) (*models.Enrollment, error) {
	e, err := s.source.GetProgress(ctx, s.courseID)
	if err != nil {
		return nil, &FetchError{CourseID: s.courseID, Err: err}
	}
	if e == nil {
		return nil, &FetchError{CourseID: s.courseID, Err: ErrNotEnrolled}
	}

	s.Apply(e)
	return e.Clone(), nil
}

// Apply replaces the snapshot with a record returned by the server, such as
// the response of a sub-signal submission. Nil is ignored.
func (s *Store) Apply(e *models.Enrollment) {
	if e == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = e.Clone()
	s.fetchedAt = time.Now()
}

// Snapshot returns a copy of the current record (nil before the first refresh)
func (s *Store) Snapshot() *models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// FetchedAt returns when the snapshot was last replaced
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Accessors below tolerate an empty snapshot and return the zero
// (not satisfied) signal, since a new enrollment has no sub-signals.

// VideoSignal returns the watched percentage for a topic
func (s *Store) VideoSignal(topicID string) models.VideoSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.snapshot.Video(topicID)
	return models.VideoSignal{WatchedPercentage: v.WatchedPercentage}
}

// QuizSignal returns the quiz attempt state for a topic
func (s *Store) QuizSignal(topicID string) models.QuizSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, _ := s.snapshot.Quiz(topicID)
	return models.QuizSignal{Attempted: q.Attempted, Score: q.Score}
}

// TaskSignal returns the completion state of a task submission
func (s *Store) TaskSignal(unitID string, taskType models.TaskType) models.TaskSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, _ := s.snapshot.Task(unitID, taskType)
	return models.TaskSignal{Completed: t.Completed}
}

// ReadingSignal returns the reading completion state for a topic
func (s *Store) ReadingSignal(topicID string) models.ReadingSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, _ := s.snapshot.Reading(topicID)
	return models.ReadingSignal{Completed: r.Completed}
}

// Signals returns all four sub-signals for a topic
func (s *Store) Signals(topicID string) models.TopicSignals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Signals(topicID)
}

// IsTopicComplete reports whether the topic is in the snapshot's completed set
func (s *Store) IsTopicComplete(topicID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.HasCompletedTopic(topicID)
}

// IsLevelComplete reports whether the level is in the snapshot's completed set
func (s *Store) IsLevelComplete(levelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.HasCompletedLevel(levelID)
}

// CompletedLevels returns a copy of the completed level IDs
func (s *Store) CompletedLevels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil
	}
	return append([]string(nil), s.snapshot.CompletedLevels...)
}

// Progress returns the server-derived course percentage
func (s *Store) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return 0
	}
	return s.snapshot.Progress
}
