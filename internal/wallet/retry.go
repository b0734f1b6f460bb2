package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig shapes the connect and probe retry loops: Attempts tries
// spaced by Interval, then one last check after FinalDelay.
type RetryConfig struct {
	Interval   time.Duration
	Attempts   int
	FinalDelay time.Duration
}

// DefaultRetry is the schedule Puzzle needs while its extension injects itself.
var DefaultRetry = RetryConfig{
	Interval:   time.Second,
	Attempts:   3,
	FinalDelay: 2 * time.Second,
}

func (c RetryConfig) normalized() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = DefaultRetry.Attempts
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.FinalDelay < 0 {
		c.FinalDelay = 0
	}
	return c
}

var errNoSession = errors.New("no session")

// retryThenSettle runs op up to Attempts times. When every attempt fails it
// waits FinalDelay and gives settle one more chance to find a session.
func retryThenSettle(ctx context.Context, cfg RetryConfig, op func(attempt int) error, settle func() bool) (bool, error) {
	cfg = cfg.normalized()
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.Interval), uint64(cfg.Attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		attempt++
		return op(attempt)
	}, policy)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	timer := time.NewTimer(cfg.FinalDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
	}
	if settle() {
		return true, nil
	}
	return false, err
}
