package completion

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/progress"
	"github.com/terra-clan/learning-engine/internal/testutil"
)

const student = "student-1"

// recordingService wraps the in-process tracker, counts commits and can
// block or fail reads on demand.
type recordingService struct {
	progress.Service

	mu            sync.Mutex
	completeCalls int
	fetchErr      error
	completeErr   error

	entered chan struct{}
	release chan struct{}
}

func (s *recordingService) GetProgress(ctx context.Context, courseID string) (*models.Enrollment, error) {
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	err := s.fetchErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Service.GetProgress(ctx, courseID)
}

func (s *recordingService) CompleteTopic(ctx context.Context, courseID, topicID string) (*models.Enrollment, error) {
	s.mu.Lock()
	s.completeCalls++
	err := s.completeErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Service.CompleteTopic(ctx, courseID, topicID)
}

func (s *recordingService) commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeCalls
}

type fixture struct {
	course  *models.Course
	svc     *recordingService
	store   *progress.Store
	engine  *Engine
	unlocks []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	course := testutil.Course()
	tracker := progress.NewTracker(progress.NewMemoryRepository(), testutil.NewCourses(course))
	_, err := tracker.Enroll(context.Background(), course.ID, student)
	require.NoError(t, err)

	f := &fixture{
		course: course,
		svc:    &recordingService{Service: tracker.ForStudent(student)},
	}
	f.store = progress.NewStore(f.svc, course.ID)
	f.engine = NewEngine(course, f.store, f.svc, WithLevelUnlockedHook(func(lvl *models.Level) {
		f.unlocks = append(f.unlocks, lvl.ID)
	}))
	return f
}

func (f *fixture) video(t *testing.T, topicID string, pct float64) {
	t.Helper()
	_, err := f.svc.SubmitVideoProgress(context.Background(), f.course.ID, models.VideoProgressRequest{TopicID: topicID, WatchedPercentage: pct})
	require.NoError(t, err)
}

func TestEngine_VideoOnlyTopicCompletesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.video(t, "intro-video", 95)

	outcome, err := f.engine.OnSignalChanged(ctx, "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, 1, f.svc.commits())
	assert.True(t, f.store.IsTopicComplete("intro-video"))

	outcome, err = f.engine.OnSignalChanged(ctx, "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyComplete, outcome)
	assert.Equal(t, 1, f.svc.commits())
}

func TestEngine_VideoBelowThresholdDoesNotCommit(t *testing.T) {
	f := newFixture(t)

	f.video(t, "intro-video", 89.9)

	outcome, err := f.engine.OnSignalChanged(context.Background(), "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsatisfied, outcome)
	assert.Equal(t, 0, f.svc.commits())
}

func TestEngine_VideoAndQuizScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.video(t, "variables", 95)

	outcome, err := f.engine.OnSignalChanged(ctx, "variables")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsatisfied, outcome)
	assert.Equal(t, 0, f.svc.commits())

	_, err = f.svc.SubmitQuizResult(ctx, f.course.ID, models.QuizSubmissionRequest{TopicID: "variables", Score: 0})
	require.NoError(t, err)

	outcome, err = f.engine.OnSignalChanged(ctx, "variables")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, 1, f.svc.commits())
}

func TestEngine_LevelCompletionUnlocksNextLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.video(t, "intro-video", 100)
	f.video(t, "variables", 100)
	_, err := f.svc.SubmitQuizResult(ctx, f.course.ID, models.QuizSubmissionRequest{TopicID: "variables"})
	require.NoError(t, err)

	for _, topic := range []string{"intro-video", "variables"} {
		outcome, err := f.engine.OnSignalChanged(ctx, topic)
		require.NoError(t, err)
		require.Equal(t, OutcomeCompleted, outcome)
	}

	assert.False(t, f.store.IsLevelComplete("level-1"))
	assert.False(t, f.engine.IsLevelUnlocked(1))
	assert.Empty(t, f.unlocks)

	_, err = f.svc.MarkReadingComplete(ctx, f.course.ID, "syntax-reading")
	require.NoError(t, err)

	outcome, err := f.engine.OnSignalChanged(ctx, "syntax-reading")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)

	assert.True(t, f.store.IsLevelComplete("level-1"))
	assert.True(t, f.engine.IsLevelUnlocked(1))
	assert.False(t, f.engine.IsLevelUnlocked(2))
	assert.Equal(t, []string{"level-2"}, f.unlocks)

	statuses := f.engine.LevelStatuses()
	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].Completed)
	assert.True(t, statuses[1].Unlocked)
}

func TestEngine_SingleFlight(t *testing.T) {
	f := newFixture(t)
	f.video(t, "intro-video", 95)

	f.svc.entered = make(chan struct{}, 4)
	f.svc.release = make(chan struct{})

	ctx := context.Background()
	var wg sync.WaitGroup
	var first Outcome

	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = f.engine.OnSignalChanged(ctx, "intro-video")
	}()

	<-f.svc.entered
	assert.True(t, f.engine.InFlight())

	second, err := f.engine.OnSignalChanged(ctx, "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInFlight, second)

	close(f.svc.release)
	wg.Wait()

	assert.Equal(t, OutcomeCompleted, first)
	assert.Equal(t, 1, f.svc.commits())
	assert.False(t, f.engine.InFlight())
}

func TestEngine_ConcurrentSignalsCommitOnce(t *testing.T) {
	f := newFixture(t)
	f.video(t, "intro-video", 95)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.OnSignalChanged(ctx, "intro-video")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.svc.commits())
	assert.True(t, f.store.IsTopicComplete("intro-video"))
}

func TestEngine_FetchErrorIsSwallowedAndGuardReleased(t *testing.T) {
	f := newFixture(t)
	f.video(t, "intro-video", 95)
	f.svc.fetchErr = errors.New("503 service unavailable")

	outcome, err := f.engine.OnSignalChanged(context.Background(), "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFetchFailed, outcome)
	assert.False(t, f.engine.InFlight())
	assert.Equal(t, 0, f.svc.commits())

	f.svc.fetchErr = nil
	outcome, err = f.engine.OnSignalChanged(context.Background(), "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestEngine_CommitFailureSurfacesSubmissionError(t *testing.T) {
	f := newFixture(t)
	f.video(t, "intro-video", 95)
	f.svc.completeErr = errors.New("gateway timeout")

	outcome, err := f.engine.OnSignalChanged(context.Background(), "intro-video")
	require.Error(t, err)
	assert.Equal(t, OutcomeCommitFailed, outcome)

	var se *progress.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "intro-video", se.UnitID)
	assert.False(t, f.engine.InFlight())
	assert.False(t, f.store.IsTopicComplete("intro-video"))
}

func TestEngine_NotEligibleIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.video(t, "intro-video", 95)
	f.svc.completeErr = progress.ErrNotEligible

	outcome, err := f.engine.OnSignalChanged(context.Background(), "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotEligible, outcome)
}

func TestEngine_AlreadyCompletedOnServerCountsAsSuccess(t *testing.T) {
	f := newFixture(t)
	f.video(t, "intro-video", 95)
	f.svc.completeErr = progress.ErrAlreadyCompleted

	outcome, err := f.engine.OnSignalChanged(context.Background(), "intro-video")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestEngine_EmptyTopicCompletesOnVisit(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.engine.OnSignalChanged(context.Background(), "recap")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestEngine_UnknownTopic(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.engine.OnSignalChanged(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsatisfied, outcome)
	assert.Equal(t, 0, f.svc.commits())
}
