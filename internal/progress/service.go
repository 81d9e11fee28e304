package progress

import (
	"context"

	"github.com/terra-clan/learning-engine/internal/models"
)

// Service is the content/progress service as seen by one authenticated
// learner. The HTTP SDK implements it against a remote server and
// Tracker.ForStudent implements it in-process.
type Service interface {
	GetProgress(ctx context.Context, courseID string) (*models.Enrollment, error)
	SubmitVideoProgress(ctx context.Context, courseID string, req models.VideoProgressRequest) (*models.Enrollment, error)
	SubmitQuizResult(ctx context.Context, courseID string, req models.QuizSubmissionRequest) (*models.Enrollment, error)
	SubmitTask(ctx context.Context, courseID string, req models.TaskSubmissionRequest) (*models.Enrollment, error)
	MarkReadingComplete(ctx context.Context, courseID, topicID string) (*models.Enrollment, error)
	CompleteTopic(ctx context.Context, courseID, topicID string) (*models.Enrollment, error)
}

// Fetcher reads the authoritative enrollment record
type Fetcher interface {
	GetProgress(ctx context.Context, courseID string) (*models.Enrollment, error)
}

// CourseSource resolves course content trees by ID
type CourseSource interface {
	Get(id string) *models.Course
}

// Repository defines the interface for enrollment persistence
type Repository interface {
	// GetEnrollment returns nil, nil when no record exists
	GetEnrollment(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	// UpdateEnrollment loads the record, applies fn and persists the result
	// atomically. An error from fn aborts the write and is returned as-is.
	UpdateEnrollment(ctx context.Context, courseID, studentID string, fn func(e *models.Enrollment) error) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, courseID string) ([]*models.Enrollment, error)

	Ping(ctx context.Context) error
	Close() error
}
