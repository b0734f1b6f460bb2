package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	bad := errors.New("bad request")
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return permanent(bad)
	})
	if !errors.Is(err, bad) || calls != 1 {
		t.Fatalf("expected one call and the wrapped error, got %d %v", calls, err)
	}
}

func TestWithRetryExhausts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("flaky")
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected 3 calls and an error, got %d %v", calls, err)
	}
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected cancellation after one call, got %d %v", calls, err)
	}
}
