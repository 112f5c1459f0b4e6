package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func runFor(t *testing.T, d time.Duration, loops ...Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	done := make(chan struct{})
	go func() {
		New(newNoopLogger(), loops...).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d + 2*time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	var calls atomic.Int32
	runFor(t, 250*time.Millisecond, Loop{
		Name:    "tick",
		Period:  20 * time.Millisecond,
		Backoff: time.Hour,
		Job: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestScheduler_BackoffAfterFailure(t *testing.T) {
	var calls atomic.Int32
	runFor(t, 200*time.Millisecond, Loop{
		Name:    "failing",
		Period:  10 * time.Millisecond,
		Backoff: time.Hour,
		Job: func(context.Context) error {
			calls.Add(1)
			return errors.New("store unavailable")
		},
	})
	assert.Equal(t, int32(1), calls.Load(), "second attempt waits for backoff")
}

func TestScheduler_RecoversPanic(t *testing.T) {
	var calls atomic.Int32
	runFor(t, 200*time.Millisecond, Loop{
		Name:    "panicky",
		Period:  time.Hour,
		Backoff: 20 * time.Millisecond,
		Job: func(context.Context) error {
			if calls.Add(1) == 1 {
				panic("boom")
			}
			return nil
		},
	})
	assert.GreaterOrEqual(t, calls.Load(), int32(2), "loop survives a panic and retries after backoff")
}

func TestScheduler_LoopsAreIndependent(t *testing.T) {
	var fast, slow atomic.Int32
	runFor(t, 200*time.Millisecond,
		Loop{
			Name:    "slow",
			Period:  time.Hour,
			Backoff: time.Hour,
			Job: func(ctx context.Context) error {
				slow.Add(1)
				<-ctx.Done()
				return ctx.Err()
			},
		},
		Loop{
			Name:    "fast",
			Period:  10 * time.Millisecond,
			Backoff: time.Hour,
			Job: func(context.Context) error {
				fast.Add(1)
				return nil
			},
		},
	)
	assert.Equal(t, int32(1), slow.Load())
	assert.GreaterOrEqual(t, fast.Load(), int32(3), "a blocked loop does not stall the others")
}
