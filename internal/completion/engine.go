// Package completion drives topic completion for one learning session.
//
// The engine never trusts a locally merged view of progress. Every
// evaluation refetches the enrollment record, checks the completion
// predicate against it, and only then issues a CompleteTopic command. A
// single-flight guard keeps overlapping signal events (a video ending while
// a quiz auto-saves) from issuing duplicate commits.
package completion

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/progress"
	"github.com/terra-clan/learning-engine/internal/rules"
)

// Outcome describes what an evaluation did
type Outcome string

const (
	OutcomeInFlight        Outcome = "in_flight"        // another evaluation holds the guard
	OutcomeAlreadyComplete Outcome = "already_complete" // topic already in completedTopics
	OutcomeUnsatisfied     Outcome = "unsatisfied"      // predicate false on fresh signals
	OutcomeFetchFailed     Outcome = "fetch_failed"     // refresh failed, retried on next trigger
	OutcomeNotEligible     Outcome = "not_eligible"     // server disagreed with the predicate
	OutcomeCommitFailed    Outcome = "commit_failed"    // CompleteTopic rejected
	OutcomeCompleted       Outcome = "completed"
)

// Committer issues the "complete topic" command
type Committer interface {
	CompleteTopic(ctx context.Context, courseID, topicID string) (*models.Enrollment, error)
}

// Engine evaluates completion for the topics of one course
type Engine struct {
	course    *models.Course
	store     *progress.Store
	committer Committer
	inFlight  atomic.Bool

	onLevelUnlocked func(level *models.Level)
}

// Option configures the engine
type Option func(*Engine)

// WithLevelUnlockedHook is called once for every level that becomes
// navigable as a result of a completion commit
func WithLevelUnlockedHook(fn func(level *models.Level)) Option {
	return func(e *Engine) {
		e.onLevelUnlocked = fn
	}
}

// NewEngine creates an engine over a session's progress store
func NewEngine(course *models.Course, store *progress.Store, committer Committer, opts ...Option) *Engine {
	e := &Engine{
		course:    course,
		store:     store,
		committer: committer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnSignalChanged is the single entry point after any sub-signal submission
// or reading threshold crossing. Only a rejected CompleteTopic command is
// returned as an error (*progress.SubmissionError); fetch failures and
// NotEligible are logged and reported through the outcome.
func (e *Engine) OnSignalChanged(ctx context.Context, topicID string) (Outcome, error) {
	if e.store.IsTopicComplete(topicID) {
		return OutcomeAlreadyComplete, nil
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		slog.Debug("completion evaluation already in flight", "topic_id", topicID)
		return OutcomeInFlight, nil
	}
	defer e.inFlight.Store(false)

	courseID := e.store.CourseID()

	snapshot, err := e.store.Refresh(ctx)
	if err != nil {
		slog.Warn("progress refresh failed, completion deferred",
			"course_id", courseID,
			"topic_id", topicID,
			"error", err,
		)
		return OutcomeFetchFailed, nil
	}

	// checked against the fresh set so another tab or device wins cleanly
	if snapshot.HasCompletedTopic(topicID) {
		return OutcomeAlreadyComplete, nil
	}

	topic, _ := e.course.Topic(topicID)
	if topic == nil {
		slog.Warn("completion requested for unknown topic", "course_id", courseID, "topic_id", topicID)
		return OutcomeUnsatisfied, nil
	}

	if !rules.IsTopicComplete(topic, snapshot.Signals(topicID)) {
		return OutcomeUnsatisfied, nil
	}

	unlockedBefore := e.unlockedSet(snapshot.CompletedLevels)

	committed, err := e.committer.CompleteTopic(ctx, courseID, topicID)
	switch {
	case err == nil:
		e.store.Apply(committed)
	case errors.Is(err, progress.ErrAlreadyCompleted):
		slog.Debug("topic already completed on server", "course_id", courseID, "topic_id", topicID)
	case errors.Is(err, progress.ErrNotEligible):
		slog.Info("server rejected completion as not eligible",
			"course_id", courseID,
			"topic_id", topicID,
			"error", err,
		)
		return OutcomeNotEligible, nil
	default:
		slog.Error("complete topic failed", "course_id", courseID, "topic_id", topicID, "error", err)
		return OutcomeCommitFailed, &progress.SubmissionError{
			Op:       "complete topic",
			CourseID: courseID,
			UnitID:   topicID,
			Err:      err,
		}
	}

	if _, err := e.store.Refresh(ctx); err != nil {
		slog.Warn("progress refresh after completion failed", "course_id", courseID, "error", err)
	}

	slog.Info("topic completion committed", "course_id", courseID, "topic_id", topicID)
	e.notifyUnlocked(unlockedBefore)

	return OutcomeCompleted, nil
}

// InFlight reports whether an evaluation currently holds the guard
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// IsLevelUnlocked applies the unlock rule to the store's last snapshot
func (e *Engine) IsLevelUnlocked(levelIndex int) bool {
	return rules.IsLevelUnlocked(levelIndex, e.store.CompletedLevels(), e.course.Levels)
}

// LevelStatuses returns every level annotated with unlocked/completed
func (e *Engine) LevelStatuses() []models.LevelStatus {
	return rules.LevelStatuses(e.course, e.store.Snapshot())
}

func (e *Engine) unlockedSet(completedLevels []string) map[int]bool {
	set := make(map[int]bool, len(e.course.Levels))
	for i := range e.course.Levels {
		if rules.IsLevelUnlocked(i, completedLevels, e.course.Levels) {
			set[i] = true
		}
	}
	return set
}

func (e *Engine) notifyUnlocked(before map[int]bool) {
	if e.onLevelUnlocked == nil {
		return
	}
	completed := e.store.CompletedLevels()
	for i, lvl := range e.course.Levels {
		if !before[i] && rules.IsLevelUnlocked(i, completed, e.course.Levels) {
			e.onLevelUnlocked(lvl)
		}
	}
}
