package trash_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/trash"
	"github.com/JaimeStill/libris/pkg/lifecycle"
)

type countingWorker struct {
	trash.System
	runs atomic.Int32
}

func (w *countingWorker) Run(ctx context.Context) (trash.Report, error) {
	w.runs.Add(1)
	return trash.Report{}, nil
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := trash.NewScheduler(&countingWorker{}, "every tuesday", time.Minute, discard())
	assert.Error(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	w := &countingWorker{}
	s, err := trash.NewScheduler(w, "@daily", time.Minute, discard())
	require.NoError(t, err)

	lc := lifecycle.New()
	require.NoError(t, s.Start(lc))

	next := s.Next()
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(25*time.Hour)))

	require.NoError(t, lc.Shutdown(time.Second))
	assert.Zero(t, w.runs.Load())
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}

	w := &countingWorker{}
	s, err := trash.NewScheduler(w, "@every 1s", time.Minute, discard())
	require.NoError(t, err)

	lc := lifecycle.New()
	require.NoError(t, s.Start(lc))

	assert.Eventually(t, func() bool { return w.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, lc.Shutdown(time.Second))
}

type blockingWorker struct {
	trash.System
	started  chan struct{}
	finished atomic.Bool
	canceled atomic.Bool
}

func (w *blockingWorker) Run(ctx context.Context) (trash.Report, error) {
	close(w.started)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	w.canceled.Store(true)
	w.finished.Store(true)
	return trash.Report{}, ctx.Err()
}

func TestSchedulerStopsBeforeResourcesClose(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}

	w := &blockingWorker{started: make(chan struct{})}
	s, err := trash.NewScheduler(w, "@every 1s", time.Minute, discard())
	require.NoError(t, err)

	lc := lifecycle.New()
	var runDoneAtClose atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		runDoneAtClose.Store(w.finished.Load())
	})
	require.NoError(t, s.Start(lc))

	select {
	case <-w.started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not start")
	}

	require.NoError(t, lc.Shutdown(2*time.Second))
	assert.True(t, w.canceled.Load())
	assert.True(t, runDoneAtClose.Load(), "database hook ran while a reclamation was in flight")
}
