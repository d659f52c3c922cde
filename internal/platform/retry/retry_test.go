package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	policy := Fixed(3, time.Millisecond)

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustionReturnsLastError(t *testing.T) {
	policy := Fixed(3, time.Millisecond)
	lastErr := errors.New("still down")

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return lastErr
	})
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoNonRetryableShortCircuits(t *testing.T) {
	fatal := errors.New("permission denied")
	policy := Policy{
		Attempts:  3,
		Delay:     time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
	}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	policy := Fixed(5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(ctx context.Context) error {
			calls++
			close(started)
			return errors.New("flaky")
		})
	}()

	<-started
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	var policy Policy

	calls := 0
	if err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
