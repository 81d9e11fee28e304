package presence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/learning-engine/internal/models"
)

type recordingReporter struct {
	mu         sync.Mutex
	heartbeats []string
	offline    []string
	cancelled  int
	block      bool
}

func (r *recordingReporter) Heartbeat(ctx context.Context, courseID, levelID string, levelIndex int) (models.LiveCounts, error) {
	r.mu.Lock()
	r.heartbeats = append(r.heartbeats, courseID+"/"+levelID)
	block := r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		r.mu.Lock()
		r.cancelled++
		r.mu.Unlock()
		return nil, ctx.Err()
	}
	return models.LiveCounts{levelID: 1}, nil
}

func (r *recordingReporter) GoOffline(ctx context.Context, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = append(r.offline, courseID)
	return nil
}

func (r *recordingReporter) snapshot() (heartbeats, offline []string, cancelled int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.heartbeats...), append([]string(nil), r.offline...), r.cancelled
}

func TestEmitter_EnterSendsImmediately(t *testing.T) {
	rep := &recordingReporter{}
	var got atomic.Int32
	e := NewEmitter(rep, time.Hour, WithCountsHandler(func(courseID string, counts models.LiveCounts) {
		got.Store(int32(counts["l1"]))
	}))

	e.Enter("c1", "l1", 0)
	defer e.Close()

	assert.Equal(t, StateActive, e.State())
	require.Eventually(t, func() bool { return got.Load() == 1 }, time.Second, 5*time.Millisecond)

	hb, _, _ := rep.snapshot()
	assert.Equal(t, []string{"c1/l1"}, hb)
}

func TestEmitter_TicksRepeat(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEmitter(rep, 10*time.Millisecond)

	e.Enter("c1", "l1", 0)
	require.Eventually(t, func() bool {
		hb, _, _ := rep.snapshot()
		return len(hb) >= 3
	}, time.Second, 5*time.Millisecond)
	e.Leave()
}

func TestEmitter_LeaveSendsExactlyOneOffline(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEmitter(rep, time.Hour)

	e.Enter("c1", "l1", 0)
	e.Leave()
	e.Leave()

	_, offline, _ := rep.snapshot()
	assert.Equal(t, []string{"c1"}, offline)
	assert.Equal(t, StateIdle, e.State())
}

func TestEmitter_LeaveAbortsInFlightHeartbeat(t *testing.T) {
	rep := &recordingReporter{block: true}
	e := NewEmitter(rep, time.Hour)

	e.Enter("c1", "l1", 0)
	require.Eventually(t, func() bool {
		hb, _, _ := rep.snapshot()
		return len(hb) == 1
	}, time.Second, 5*time.Millisecond)

	e.Leave()

	_, offline, cancelled := rep.snapshot()
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, []string{"c1"}, offline)
}

func TestEmitter_NewTickSupersedesInFlight(t *testing.T) {
	rep := &recordingReporter{block: true}
	e := NewEmitter(rep, 10*time.Millisecond)

	e.Enter("c1", "l1", 0)
	require.Eventually(t, func() bool {
		_, _, cancelled := rep.snapshot()
		return cancelled >= 2
	}, time.Second, 5*time.Millisecond)
	e.Leave()
}

func TestEmitter_SwitchingLevelsLeavesFirst(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEmitter(rep, time.Hour)

	e.Enter("c1", "l1", 0)
	e.Enter("c1", "l1", 0)
	e.Enter("c1", "l2", 1)
	defer e.Close()

	require.Eventually(t, func() bool {
		hb, _, _ := rep.snapshot()
		return len(hb) == 2
	}, time.Second, 5*time.Millisecond)

	hb, offline, _ := rep.snapshot()
	assert.Equal(t, []string{"c1/l1", "c1/l2"}, hb)
	assert.Equal(t, []string{"c1"}, offline)

	course, level, ok := e.Current()
	assert.True(t, ok)
	assert.Equal(t, "c1", course)
	assert.Equal(t, "l2", level)
}

func TestEmitter_UnauthenticatedSendsNothing(t *testing.T) {
	rep := &recordingReporter{}
	e := NewEmitter(rep, 5*time.Millisecond, WithAuthGuard(func() bool { return false }))

	e.Enter("c1", "l1", 0)
	time.Sleep(30 * time.Millisecond)
	e.Leave()

	hb, offline, _ := rep.snapshot()
	assert.Empty(t, hb)
	assert.Empty(t, offline)
}
