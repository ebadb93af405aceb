package util

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return errors.New("always fails")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry returned %v, want context.Canceled", err)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait returned unexpected error: %v", err)
	}
}

// recordingSink captures observed durations for assertions.
type recordingSink struct {
	mu    sync.Mutex
	names []string
}

func (s *recordingSink) ObserveDuration(name string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
}

func TestTimed(t *testing.T) {
	sink := &recordingSink{}
	wantErr := errors.New("boom")

	err := Timed(sink, "place-order", func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("Timed returned %v, want %v", err, wantErr)
	}
	if len(sink.names) != 1 || sink.names[0] != "place-order" {
		t.Errorf("sink observed %v, want [place-order]", sink.names)
	}
}

func TestTimedNilSink(t *testing.T) {
	if err := Timed(nil, "noop", func() error { return nil }); err != nil {
		t.Errorf("Timed with nil sink returned %v, want nil", err)
	}
}
