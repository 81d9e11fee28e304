package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

// MemoryRepository implements Repository in process memory. Used by tests
// and by PROGRESS_BACKEND=memory for local development.
type MemoryRepository struct {
	mu          sync.RWMutex
	enrollments map[string]*models.Enrollment
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		enrollments: make(map[string]*models.Enrollment),
	}
}

func enrollmentKey(courseID, studentID string) string {
	return courseID + "\x00" + studentID
}

// GetEnrollment returns a copy of the stored record
func (r *MemoryRepository) GetEnrollment(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enrollments[enrollmentKey(courseID, studentID)].Clone(), nil
}

// CreateEnrollment stores a new record
func (r *MemoryRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := enrollmentKey(e.CourseID, e.StudentID)
	if _, exists := r.enrollments[key]; exists {
		return fmt.Errorf("enrollment already exists: %s/%s", e.CourseID, e.StudentID)
	}
	r.enrollments[key] = e.Clone()
	return nil
}

// UpdateEnrollment applies fn to a copy and stores it only if fn succeeds
func (r *MemoryRepository) UpdateEnrollment(ctx context.Context, courseID, studentID string, fn func(e *models.Enrollment) error) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := enrollmentKey(courseID, studentID)
	current, ok := r.enrollments[key]
	if !ok {
		return nil, ErrNotEnrolled
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()

	r.enrollments[key] = working
	return working.Clone(), nil
}

// ListEnrollments returns all records for a course, newest first
func (r *MemoryRepository) ListEnrollments(ctx context.Context, courseID string) ([]*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Enrollment
	for _, e := range r.enrollments {
		if e.CourseID == courseID {
			result = append(result, e.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].EnrolledAt.Equal(result[j].EnrolledAt) {
			return result[i].EnrolledAt.After(result[j].EnrolledAt)
		}
		return result[i].StudentID < result[j].StudentID
	})
	return result, nil
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}
