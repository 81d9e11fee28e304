package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/rules"
)

// Tracker is the authoritative progress service. Every sub-signal write is
// a last-write-wins upsert keyed as the enrollment record defines, and
// CompleteTopic re-checks the completion predicate against stored signals.
type Tracker struct {
	repo    Repository
	courses CourseSource
	now     func() time.Time
}

// NewTracker creates a new Tracker
func NewTracker(repo Repository, courses CourseSource) *Tracker {
	return &Tracker{
		repo:    repo,
		courses: courses,
		now:     time.Now,
	}
}

// Ping checks the repository
func (t *Tracker) Ping(ctx context.Context) error {
	return t.repo.Ping(ctx)
}

func (t *Tracker) course(courseID string) (*models.Course, error) {
	course := t.courses.Get(courseID)
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// Enroll creates the enrollment record if it does not exist yet
func (t *Tracker) Enroll(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	if _, err := t.course(courseID); err != nil {
		return nil, err
	}

	existing, err := t.repo.GetEnrollment(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up enrollment: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := t.now().UTC()
	e := &models.Enrollment{
		ID:              uuid.New().String(),
		CourseID:        courseID,
		StudentID:       studentID,
		VideoProgress:   []models.VideoProgress{},
		QuizResults:     []models.QuizResult{},
		TaskSubmissions: []models.TaskSubmission{},
		ReadingProgress: []models.ReadingProgress{},
		CompletedTopics: []string{},
		CompletedLevels: []string{},
		EnrolledAt:      now,
		UpdatedAt:       now,
	}

	if err := t.repo.CreateEnrollment(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	slog.Info("student enrolled", "course_id", courseID, "student_id", studentID, "enrollment_id", e.ID)
	return e, nil
}

// GetProgress returns the enrollment record
func (t *Tracker) GetProgress(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	if _, err := t.course(courseID); err != nil {
		return nil, err
	}

	e, err := t.repo.GetEnrollment(ctx, courseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if e == nil {
		return nil, ErrNotEnrolled
	}
	return e, nil
}

// ListEnrollments returns every enrollment of a course, newest first
func (t *Tracker) ListEnrollments(ctx context.Context, courseID string) ([]*models.Enrollment, error) {
	if _, err := t.course(courseID); err != nil {
		return nil, err
	}

	enrollments, err := t.repo.ListEnrollments(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}
	return enrollments, nil
}

// SubmitVideoProgress records the latest watch state of a topic's video
func (t *Tracker) SubmitVideoProgress(ctx context.Context, courseID, studentID string, req models.VideoProgressRequest) (*models.Enrollment, error) {
	course, err := t.course(courseID)
	if err != nil {
		return nil, err
	}
	if topic, _ := course.Topic(req.TopicID); topic == nil {
		return nil, ErrTopicNotFound
	}

	pct := clampPercent(req.WatchedPercentage)
	now := t.now().UTC()

	return t.repo.UpdateEnrollment(ctx, courseID, studentID, func(e *models.Enrollment) error {
		entry := models.VideoProgress{
			TopicID:              req.TopicID,
			WatchedPercentage:    pct,
			LastWatchedTimestamp: req.LastWatchedTimestamp,
			UpdatedAt:            now,
		}
		for i := range e.VideoProgress {
			if e.VideoProgress[i].TopicID == req.TopicID {
				e.VideoProgress[i] = entry
				return nil
			}
		}
		e.VideoProgress = append(e.VideoProgress, entry)
		return nil
	})
}

// SubmitQuizResult records a quiz attempt. Any submission counts as attempted.
func (t *Tracker) SubmitQuizResult(ctx context.Context, courseID, studentID string, req models.QuizSubmissionRequest) (*models.Enrollment, error) {
	course, err := t.course(courseID)
	if err != nil {
		return nil, err
	}
	topic, _ := course.Topic(req.TopicID)
	if topic == nil {
		return nil, ErrTopicNotFound
	}
	if !topic.RequiresQuiz() {
		return nil, fmt.Errorf("%w: topic %s has no quiz", ErrInvalidSubmission, req.TopicID)
	}

	now := t.now().UTC()

	return t.repo.UpdateEnrollment(ctx, courseID, studentID, func(e *models.Enrollment) error {
		entry := models.QuizResult{
			TopicID:     req.TopicID,
			Attempted:   true,
			Score:       req.Score,
			Answers:     append([]int(nil), req.Answers...),
			SubmittedAt: now,
		}
		for i := range e.QuizResults {
			if e.QuizResults[i].TopicID == req.TopicID {
				e.QuizResults[i] = entry
				return nil
			}
		}
		e.QuizResults = append(e.QuizResults, entry)
		return nil
	})
}

// SubmitTask records a task submission. Mini tasks are keyed by topic ID,
// major tasks by level ID and capstones by course ID.
func (t *Tracker) SubmitTask(ctx context.Context, courseID, studentID string, req models.TaskSubmissionRequest) (*models.Enrollment, error) {
	course, err := t.course(courseID)
	if err != nil {
		return nil, err
	}

	switch req.TaskType {
	case models.TaskMini:
		topic, _ := course.Topic(req.TaskID)
		if topic == nil {
			return nil, ErrTopicNotFound
		}
		if !topic.RequiresMiniTask() {
			return nil, fmt.Errorf("%w: topic %s has no mini task", ErrInvalidSubmission, req.TaskID)
		}
	case models.TaskMajor:
		lvl := course.Level(req.TaskID)
		if lvl == nil || lvl.MajorTask == nil {
			return nil, fmt.Errorf("%w: level %s has no major task", ErrInvalidSubmission, req.TaskID)
		}
	case models.TaskCapstone:
		if req.TaskID != courseID {
			return nil, fmt.Errorf("%w: capstone task id must be the course id", ErrInvalidSubmission)
		}
	default:
		return nil, fmt.Errorf("%w: unknown task type %q", ErrInvalidSubmission, req.TaskType)
	}

	now := t.now().UTC()

	return t.repo.UpdateEnrollment(ctx, courseID, studentID, func(e *models.Enrollment) error {
		entry := models.TaskSubmission{
			TaskID:         req.TaskID,
			TaskType:       req.TaskType,
			SubmissionType: req.SubmissionType,
			Content:        req.Content,
			Completed:      true,
			SubmittedAt:    now,
		}
		for i := range e.TaskSubmissions {
			if e.TaskSubmissions[i].TaskID == req.TaskID && e.TaskSubmissions[i].TaskType == req.TaskType {
				e.TaskSubmissions[i] = entry
				return nil
			}
		}
		e.TaskSubmissions = append(e.TaskSubmissions, entry)
		return nil
	})
}

// MarkReadingComplete records that the reading threshold was crossed
func (t *Tracker) MarkReadingComplete(ctx context.Context, courseID, studentID, topicID string) (*models.Enrollment, error) {
	course, err := t.course(courseID)
	if err != nil {
		return nil, err
	}
	if topic, _ := course.Topic(topicID); topic == nil {
		return nil, ErrTopicNotFound
	}

	now := t.now().UTC()

	return t.repo.UpdateEnrollment(ctx, courseID, studentID, func(e *models.Enrollment) error {
		entry := models.ReadingProgress{TopicID: topicID, Completed: true, CompletedAt: &now}
		for i := range e.ReadingProgress {
			if e.ReadingProgress[i].TopicID == topicID {
				if !e.ReadingProgress[i].Completed {
					e.ReadingProgress[i] = entry
				}
				return nil
			}
		}
		e.ReadingProgress = append(e.ReadingProgress, entry)
		return nil
	})
}

// CompleteTopic commits a topic as complete, cascades level completion in
// order and recomputes the progress percentage. Returns ErrAlreadyCompleted
// or ErrNotEligible without writing anything.
func (t *Tracker) CompleteTopic(ctx context.Context, courseID, studentID, topicID string) (*models.Enrollment, error) {
	course, err := t.course(courseID)
	if err != nil {
		return nil, err
	}
	topic, _ := course.Topic(topicID)
	if topic == nil {
		return nil, ErrTopicNotFound
	}

	var newLevels []string
	e, err := t.repo.UpdateEnrollment(ctx, courseID, studentID, func(e *models.Enrollment) error {
		if e.HasCompletedTopic(topicID) {
			return ErrAlreadyCompleted
		}

		signals := e.Signals(topicID)
		if !rules.IsTopicComplete(topic, signals) {
			return fmt.Errorf("%w: missing %s", ErrNotEligible,
				strings.Join(rules.MissingRequirements(topic, signals), ", "))
		}

		e.CompletedTopics = append(e.CompletedTopics, topicID)

		before := len(e.CompletedLevels)
		e.CompletedLevels = rules.CascadeLevels(course.Levels, e.CompletedTopics, e.CompletedLevels)
		newLevels = e.CompletedLevels[before:]

		e.Progress = rules.ProgressPercent(course, e.CompletedTopics)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("topic completed",
		"course_id", courseID,
		"student_id", studentID,
		"topic_id", topicID,
		"progress", e.Progress,
	)
	for _, lvl := range newLevels {
		slog.Info("level completed", "course_id", courseID, "student_id", studentID, "level_id", lvl)
	}

	return e, nil
}

// ForStudent binds the tracker to one student so it satisfies Service
func (t *Tracker) ForStudent(studentID string) Service {
	return &studentService{tracker: t, studentID: studentID}
}

type studentService struct {
	tracker   *Tracker
	studentID string
}

func (s *studentService) GetProgress(ctx context.Context, courseID string) (*models.Enrollment, error) {
	return s.tracker.GetProgress(ctx, courseID, s.studentID)
}

func (s *studentService) SubmitVideoProgress(ctx context.Context, courseID string, req models.VideoProgressRequest) (*models.Enrollment, error) {
	return s.tracker.SubmitVideoProgress(ctx, courseID, s.studentID, req)
}

func (s *studentService) SubmitQuizResult(ctx context.Context, courseID string, req models.QuizSubmissionRequest) (*models.Enrollment, error) {
	return s.tracker.SubmitQuizResult(ctx, courseID, s.studentID, req)
}

func (s *studentService) SubmitTask(ctx context.Context, courseID string, req models.TaskSubmissionRequest) (*models.Enrollment, error) {
	return s.tracker.SubmitTask(ctx, courseID, s.studentID, req)
}

func (s *studentService) MarkReadingComplete(ctx context.Context, courseID, topicID string) (*models.Enrollment, error) {
	return s.tracker.MarkReadingComplete(ctx, courseID, s.studentID, topicID)
}

func (s *studentService) CompleteTopic(ctx context.Context, courseID, topicID string) (*models.Enrollment, error) {
	return s.tracker.CompleteTopic(ctx, courseID, s.studentID, topicID)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
