package periodic

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned by Stop when the in-flight run outlives the grace period.
var ErrShutdownTimeout = errors.New("periodic task did not finish within grace period")

// Task runs a function on a fixed period on one dedicated goroutine.
// The first run starts immediately; runs never overlap.
type Task struct {
	period time.Duration
	fn     func(ctx context.Context)

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches the task. fn receives a context that is cancelled by Stop.
func Start(period time.Duration, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		period: period,
		fn:     fn,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx)
	return t
}

func (t *Task) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		t.fn(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels future runs and waits up to grace for the in-flight run.
// Calling Stop again only waits.
func (t *Task) Stop(grace time.Duration) error {
	t.once.Do(t.cancel)

	select {
	case <-t.done:
		return nil
	default:
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-t.done:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
