package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

const (
	DefaultStalenessWindow   = 5 * time.Minute
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultMonitorInterval   = 30 * time.Second
)

var (
	ErrNoPrincipal   = errors.New("presence requires an authenticated principal")
	ErrMissingCourse = errors.New("course id is required")
	ErrMissingLevel  = errors.New("level id is required")
)

// Reporter is the learner-side view of presence
type Reporter interface {
	Heartbeat(ctx context.Context, courseID, levelID string, levelIndex int) (models.LiveCounts, error)
	GoOffline(ctx context.Context, courseID string) error
}

// Reader is the observer-side view of presence
type Reader interface {
	GetLiveCounts(ctx context.Context, courseID string) (models.LiveCounts, error)
	GetActiveStudents(ctx context.Context, courseID string) ([]models.ActiveStudent, error)
}

// Service aggregates heartbeats into live counts and rosters.
// Liveness is computed at read time: an entry counts iff it is younger
// than the staleness window.
type Service struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a presence service over the given store
func NewService(store Store, window time.Duration, opts ...ServiceOption) *Service {
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	s := &Service{
		store:  store,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the staleness window
func (s *Service) Window() time.Duration {
	return s.window
}

// Ping checks the backing store
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Heartbeat records that the principal is viewing a level and returns the
// course's live counts
func (s *Service) Heartbeat(ctx context.Context, p *models.Principal, courseID, levelID string, levelIndex int) (models.LiveCounts, error) {
	if p == nil {
		return nil, ErrNoPrincipal
	}
	if courseID == "" {
		return nil, ErrMissingCourse
	}
	if levelID == "" {
		return nil, ErrMissingLevel
	}

	entry := models.PresenceEntry{
		CourseID:   courseID,
		LevelID:    levelID,
		LevelIndex: levelIndex,
		StudentID:  p.ID,
		Name:       p.Name,
		Avatar:     p.Avatar,
		LastSeenAt: s.now().UTC(),
	}
	if err := s.store.Touch(ctx, entry); err != nil {
		return nil, fmt.Errorf("heartbeat: %w", err)
	}

	return s.GetLiveCounts(ctx, courseID)
}

// GoOffline drops every entry of the student in the course
func (s *Service) GoOffline(ctx context.Context, p *models.Principal, courseID string) error {
	if p == nil {
		return ErrNoPrincipal
	}
	if courseID == "" {
		return ErrMissingCourse
	}

	removed, err := s.store.Remove(ctx, courseID, p.ID)
	if err != nil {
		return fmt.Errorf("go offline: %w", err)
	}

	slog.Debug("student went offline",
		"course_id", courseID,
		"student_id", p.ID,
		"entries_removed", removed,
	)
	return nil
}

// GetLiveCounts counts distinct live students per level
func (s *Service) GetLiveCounts(ctx context.Context, courseID string) (models.LiveCounts, error) {
	live, err := s.liveEntries(ctx, courseID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]map[string]struct{})
	for _, e := range live {
		students, ok := seen[e.LevelID]
		if !ok {
			students = make(map[string]struct{})
			seen[e.LevelID] = students
		}
		students[e.StudentID] = struct{}{}
	}

	counts := make(models.LiveCounts, len(seen))
	for levelID, students := range seen {
		counts[levelID] = len(students)
	}
	return counts, nil
}

// GetActiveStudents lists live entries ordered by level then name
func (s *Service) GetActiveStudents(ctx context.Context, courseID string) ([]models.ActiveStudent, error) {
	live, err := s.liveEntries(ctx, courseID)
	if err != nil {
		return nil, err
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].LevelIndex != live[j].LevelIndex {
			return live[i].LevelIndex < live[j].LevelIndex
		}
		if live[i].Name != live[j].Name {
			return live[i].Name < live[j].Name
		}
		return live[i].StudentID < live[j].StudentID
	})

	now := s.now()
	students := make([]models.ActiveStudent, 0, len(live))
	for _, e := range live {
		students = append(students, models.ActiveStudent{
			LevelID:              e.LevelID,
			StudentID:            e.StudentID,
			Name:                 e.Name,
			Avatar:               e.Avatar,
			LastSeenAt:           e.LastSeenAt,
			SecondsSinceLastSeen: int(now.Sub(e.LastSeenAt) / time.Second),
		})
	}
	return students, nil
}

// Prune removes entries that have fallen out of the staleness window
func (s *Service) Prune(ctx context.Context) (int, error) {
	return s.store.Prune(ctx, s.now().Add(-s.window))
}

// ForPrincipal binds the service to one caller
func (s *Service) ForPrincipal(p *models.Principal) *Binding {
	return &Binding{svc: s, principal: p}
}

func (s *Service) liveEntries(ctx context.Context, courseID string) ([]models.PresenceEntry, error) {
	if courseID == "" {
		return nil, ErrMissingCourse
	}

	entries, err := s.store.List(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}

	now := s.now()
	live := entries[:0]
	for i := range entries {
		if entries[i].IsLive(now, s.window) {
			live = append(live, entries[i])
		}
	}
	return live, nil
}

// Binding adapts Service to Reporter and Reader for a fixed principal
type Binding struct {
	svc       *Service
	principal *models.Principal
}

func (b *Binding) Heartbeat(ctx context.Context, courseID, levelID string, levelIndex int) (models.LiveCounts, error) {
	return b.svc.Heartbeat(ctx, b.principal, courseID, levelID, levelIndex)
}

func (b *Binding) GoOffline(ctx context.Context, courseID string) error {
	return b.svc.GoOffline(ctx, b.principal, courseID)
}

func (b *Binding) GetLiveCounts(ctx context.Context, courseID string) (models.LiveCounts, error) {
	return b.svc.GetLiveCounts(ctx, courseID)
}

func (b *Binding) GetActiveStudents(ctx context.Context, courseID string) ([]models.ActiveStudent, error) {
	return b.svc.GetActiveStudents(ctx, courseID)
}

// GroupByLevel folds a roster into per-level buckets, keeping input order
func GroupByLevel(students []models.ActiveStudent) []models.LevelRoster {
	var rosters []models.LevelRoster
	index := make(map[string]int)

	for _, st := range students {
		i, ok := index[st.LevelID]
		if !ok {
			i = len(rosters)
			index[st.LevelID] = i
			rosters = append(rosters, models.LevelRoster{LevelID: st.LevelID})
		}
		rosters[i].Students = append(rosters[i].Students, st)
	}
	return rosters
}
