package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/learning-engine/internal/models"
)

// State is the emitter lifecycle state
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

const defaultOfflineTimeout = 5 * time.Second

// Emitter sends periodic heartbeats while a learner views a level.
//
// Enter starts a heartbeat immediately and then one per interval. Each new
// heartbeat aborts the one still in flight. Leave stops the timer, aborts
// any in-flight heartbeat and sends exactly one GoOffline for the course
// that was left. When the auth guard reports false nothing is sent.
type Emitter struct {
	reporter       Reporter
	interval       time.Duration
	offlineTimeout time.Duration
	authenticated  func() bool
	onCounts       func(courseID string, counts models.LiveCounts)

	// transition serializes Enter and Leave
	transition sync.Mutex

	mu     sync.Mutex
	active *activeView
}

type activeView struct {
	courseID   string
	levelID    string
	levelIndex int
	cancel     context.CancelFunc
	done       chan struct{}
}

// EmitterOption configures an Emitter
type EmitterOption func(*Emitter)

// WithAuthGuard sets the predicate checked before every send
func WithAuthGuard(fn func() bool) EmitterOption {
	return func(e *Emitter) {
		e.authenticated = fn
	}
}

// WithCountsHandler receives the live counts returned by each heartbeat
func WithCountsHandler(fn func(courseID string, counts models.LiveCounts)) EmitterOption {
	return func(e *Emitter) {
		e.onCounts = fn
	}
}

// WithOfflineTimeout bounds the GoOffline call made on Leave
func WithOfflineTimeout(d time.Duration) EmitterOption {
	return func(e *Emitter) {
		e.offlineTimeout = d
	}
}

// NewEmitter creates an idle emitter
func NewEmitter(reporter Reporter, interval time.Duration, opts ...EmitterOption) *Emitter {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	e := &Emitter{
		reporter:       reporter,
		interval:       interval,
		offlineTimeout: defaultOfflineTimeout,
		authenticated:  func() bool { return true },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns Idle or Active
func (e *Emitter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return StateActive
	}
	return StateIdle
}

// Current returns the (course, level) being reported, if any
func (e *Emitter) Current() (courseID, levelID string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return "", "", false
	}
	return e.active.courseID, e.active.levelID, true
}

// Enter starts reporting presence on a level. Entering a different level
// first leaves the current one.
func (e *Emitter) Enter(courseID, levelID string, levelIndex int) {
	e.transition.Lock()
	defer e.transition.Unlock()

	e.mu.Lock()
	cur := e.active
	e.mu.Unlock()

	if cur != nil {
		if cur.courseID == courseID && cur.levelID == levelID {
			return
		}
		e.leave()
	}

	ctx, cancel := context.WithCancel(context.Background())
	view := &activeView{
		courseID:   courseID,
		levelID:    levelID,
		levelIndex: levelIndex,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	e.mu.Lock()
	e.active = view
	e.mu.Unlock()

	slog.Debug("presence emitter active",
		"course_id", courseID,
		"level_id", levelID,
	)

	go e.run(ctx, view)
}

// Leave stops reporting and announces the learner offline
func (e *Emitter) Leave() {
	e.transition.Lock()
	defer e.transition.Unlock()
	e.leave()
}

// Close is Leave; the emitter may be reused afterwards
func (e *Emitter) Close() {
	e.Leave()
}

func (e *Emitter) leave() {
	e.mu.Lock()
	view := e.active
	e.active = nil
	e.mu.Unlock()

	if view == nil {
		return
	}

	view.cancel()
	<-view.done

	if !e.authenticated() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.offlineTimeout)
	defer cancel()

	if err := e.reporter.GoOffline(ctx, view.courseID); err != nil {
		slog.Warn("failed to send go offline",
			"course_id", view.courseID,
			"error", err,
		)
		return
	}

	slog.Debug("presence emitter idle", "course_id", view.courseID)
}

func (e *Emitter) run(ctx context.Context, view *activeView) {
	defer close(view.done)

	var (
		sends    sync.WaitGroup
		inFlight context.CancelFunc
	)
	defer func() {
		if inFlight != nil {
			inFlight()
		}
		sends.Wait()
	}()

	send := func() {
		if inFlight != nil {
			inFlight()
			inFlight = nil
		}
		if !e.authenticated() {
			return
		}

		reqCtx, cancel := context.WithCancel(ctx)
		inFlight = cancel

		sends.Add(1)
		go func() {
			defer sends.Done()
			defer cancel()

			counts, err := e.reporter.Heartbeat(reqCtx, view.courseID, view.levelID, view.levelIndex)
			if err != nil {
				if reqCtx.Err() != nil {
					slog.Debug("heartbeat superseded", "course_id", view.courseID)
					return
				}
				slog.Warn("heartbeat failed",
					"course_id", view.courseID,
					"level_id", view.levelID,
					"error", err,
				)
				return
			}

			if e.onCounts != nil && reqCtx.Err() == nil {
				e.onCounts(view.courseID, counts)
			}
		}()
	}

	send()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
