package periodic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTask_FirstRunIsImmediate(t *testing.T) {
	ran := make(chan time.Time, 1)
	start := time.Now()

	task := Start(time.Hour, func(ctx context.Context) {
		select {
		case ran <- time.Now():
		default:
		}
	})
	defer task.Stop(time.Second)

	select {
	case at := <-ran:
		require.Less(t, at.Sub(start), 500*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not happen")
	}
}

func TestTask_RunsRepeatedlyWithoutOverlap(t *testing.T) {
	var running, overlaps, runs atomic.Int32

	task := Start(5*time.Millisecond, func(ctx context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(8 * time.Millisecond)
		running.Add(-1)
		runs.Add(1)
	})

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, task.Stop(time.Second))
	require.Zero(t, overlaps.Load())
}

func TestTask_StopPreventsFurtherRuns(t *testing.T) {
	var runs atomic.Int32
	task := Start(time.Millisecond, func(ctx context.Context) { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, task.Stop(time.Second))

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, after, runs.Load())
}

func TestTask_StopTimesOutOnStuckRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	task := Start(time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	<-started

	err := task.Stop(10 * time.Millisecond)
	require.True(t, errors.Is(err, ErrShutdownTimeout))

	close(release)
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task goroutine did not exit after release")
	}
	require.NoError(t, task.Stop(0))
}

func TestTask_ContextCancelledOnStop(t *testing.T) {
	observed := make(chan error, 1)
	started := make(chan struct{})

	task := Start(time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		observed <- ctx.Err()
	})
	<-started

	require.NoError(t, task.Stop(time.Second))
	require.ErrorIs(t, <-observed, context.Canceled)
}
