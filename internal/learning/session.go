// Package learning ties one learner's view of a course together: the
// progress store, the completion engine and the presence emitter.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/learning-engine/internal/completion"
	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/presence"
	"github.com/terra-clan/learning-engine/internal/progress"
)

var (
	ErrLevelLocked   = errors.New("level is locked")
	ErrLevelNotFound = errors.New("level not found")
)

// Session is a learner's working copy of one course
type Session struct {
	course  *models.Course
	svc     progress.Service
	store   *progress.Store
	engine  *completion.Engine
	emitter *presence.Emitter

	unlockHooks []func(*models.Level)
}

// Option configures a Session
type Option func(*Session)

// WithPresence reports the open level through the emitter
func WithPresence(e *presence.Emitter) Option {
	return func(s *Session) {
		s.emitter = e
	}
}

// WithLevelUnlocked registers a callback for newly unlocked levels
func WithLevelUnlocked(fn func(*models.Level)) Option {
	return func(s *Session) {
		s.unlockHooks = append(s.unlockHooks, fn)
	}
}

// NewSession wires a store and completion engine for the course
func NewSession(course *models.Course, svc progress.Service, opts ...Option) *Session {
	s := &Session{
		course: course,
		svc:    svc,
		store:  progress.NewStore(svc, course.ID),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = completion.NewEngine(course, s.store, svc,
		completion.WithLevelUnlockedHook(func(l *models.Level) {
			for _, fn := range s.unlockHooks {
				fn(l)
			}
		}),
	)
	return s
}

// Start loads the authoritative enrollment record
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.store.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

// Store exposes the read-only progress view
func (s *Session) Store() *progress.Store {
	return s.store
}

// Course returns the content tree
func (s *Session) Course() *models.Course {
	return s.course
}

// OpenLevel navigates to a level when it is unlocked and starts presence
func (s *Session) OpenLevel(levelIndex int) (*models.Level, error) {
	if levelIndex < 0 || levelIndex >= len(s.course.Levels) {
		return nil, ErrLevelNotFound
	}
	if !s.engine.IsLevelUnlocked(levelIndex) {
		return nil, fmt.Errorf("level %d: %w", levelIndex, ErrLevelLocked)
	}

	level := s.course.Levels[levelIndex]
	if s.emitter != nil {
		s.emitter.Enter(s.course.ID, level.ID, level.Index)
	}
	return level, nil
}

// LeaveLevel stops presence reporting for the open level
func (s *Session) LeaveLevel() {
	if s.emitter != nil {
		s.emitter.Leave()
	}
}

// OpenTopic evaluates a topic on visit; topics without requirements
// complete here
func (s *Session) OpenTopic(ctx context.Context, topicID string) (completion.Outcome, error) {
	return s.engine.OnSignalChanged(ctx, topicID)
}

// WatchVideo reports playback progress
func (s *Session) WatchVideo(ctx context.Context, topicID string, watchedPercentage, lastTimestamp float64) (completion.Outcome, error) {
	return s.submit(ctx, "submit video progress", topicID, func() (*models.Enrollment, error) {
		return s.svc.SubmitVideoProgress(ctx, s.course.ID, models.VideoProgressRequest{
			TopicID:              topicID,
			WatchedPercentage:    watchedPercentage,
			LastWatchedTimestamp: lastTimestamp,
		})
	})
}

// SubmitQuiz records a quiz attempt; any attempt satisfies the requirement
func (s *Session) SubmitQuiz(ctx context.Context, topicID string, answers []int, score float64) (completion.Outcome, error) {
	return s.submit(ctx, "submit quiz", topicID, func() (*models.Enrollment, error) {
		return s.svc.SubmitQuizResult(ctx, s.course.ID, models.QuizSubmissionRequest{
			TopicID: topicID,
			Answers: answers,
			Score:   score,
		})
	})
}

// SubmitMiniTask submits the mini task of a topic
func (s *Session) SubmitMiniTask(ctx context.Context, topicID, submissionType, content string) (completion.Outcome, error) {
	return s.submit(ctx, "submit mini task", topicID, func() (*models.Enrollment, error) {
		return s.svc.SubmitTask(ctx, s.course.ID, models.TaskSubmissionRequest{
			TaskID:         topicID,
			TaskType:       models.TaskMini,
			SubmissionType: submissionType,
			Content:        content,
		})
	})
}

// MarkReadingComplete records that the reading threshold was crossed
func (s *Session) MarkReadingComplete(ctx context.Context, topicID string) (completion.Outcome, error) {
	return s.submit(ctx, "mark reading complete", topicID, func() (*models.Enrollment, error) {
		return s.svc.MarkReadingComplete(ctx, s.course.ID, topicID)
	})
}

// SubmitMajorTask submits a level's major task. It never gates completion.
func (s *Session) SubmitMajorTask(ctx context.Context, levelID, submissionType, content string) error {
	e, err := s.svc.SubmitTask(ctx, s.course.ID, models.TaskSubmissionRequest{
		TaskID:         levelID,
		TaskType:       models.TaskMajor,
		SubmissionType: submissionType,
		Content:        content,
	})
	if err != nil {
		return &progress.SubmissionError{Op: "submit major task", CourseID: s.course.ID, UnitID: levelID, Err: err}
	}
	s.store.Apply(e)
	return nil
}

// LevelStatuses annotates each level with unlock and completion state
func (s *Session) LevelStatuses() []models.LevelStatus {
	return s.engine.LevelStatuses()
}

// Progress returns the server-derived completion percentage
func (s *Session) Progress() int {
	return s.store.Progress()
}

// Close leaves the open level, if any
func (s *Session) Close() {
	s.LeaveLevel()
}

// submit sends a sub-signal, folds the returned record into the store and
// lets the engine decide whether the topic is now complete. A rejected
// submission leaves local state untouched.
func (s *Session) submit(ctx context.Context, op, topicID string, send func() (*models.Enrollment, error)) (completion.Outcome, error) {
	e, err := send()
	if err != nil {
		slog.Warn("submission rejected",
			"op", op,
			"course_id", s.course.ID,
			"topic_id", topicID,
			"error", err,
		)
		return completion.OutcomeUnsatisfied, &progress.SubmissionError{Op: op, CourseID: s.course.ID, UnitID: topicID, Err: err}
	}

	s.store.Apply(e)
	return s.engine.OnSignalChanged(ctx, topicID)
}
