package hosted

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/madcok-co/messagingcore/internal/testutil"
)

func TestGroup_RunsAllLoopsAndStopsOnCancel(t *testing.T) {
	var ticks int32
	ticker := NewTicker("test-ticker", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	}, testutil.NoopLogger{})

	group := New(testutil.NoopLogger{}).Add(ticker)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := group.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if atomic.LoadInt32(&ticks) == 0 {
		t.Fatal("expected ticker to fire at least once before cancellation")
	}
}

func TestTicker_LogsErrorsButKeepsRunning(t *testing.T) {
	var calls int32
	failingErr := errors.New("pass failed")
	ticker := NewTicker("failing", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return failingErr
	}, testutil.NoopLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := ticker.Run(ctx); err != nil {
		t.Fatalf("expected Run to return nil on context cancellation, got %v", err)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected ticker to keep firing after an error, got %d calls", calls)
	}
}

func TestSubscription_StopsCleanlyOnCancel(t *testing.T) {
	sub := NewSubscription("test-sub", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, testutil.NoopLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected subscription loop to exit promptly after cancellation")
	}
}

func TestSubscription_RestartsAfterError(t *testing.T) {
	var attempts int32
	sub := NewSubscription("flaky", func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("dropped connection")
	}, testutil.NoopLogger{})
	sub.restartWait = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_ = sub.Run(ctx)

	if atomic.LoadInt32(&attempts) < 2 {
		t.Fatalf("expected subscribe to be retried after failing, got %d attempts", attempts)
	}
}
