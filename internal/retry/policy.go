// Package retry holds the explicit retry policy applied to remote calls
// (payment provider, ledger store).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy retries an operation with capped exponential backoff.
//
// Errors for which Retryable returns false end the loop immediately. When all
// attempts are used the last error is returned unchanged.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Jitter is the randomization factor in [0, 1). Zero gives exact intervals.
	Jitter    float64
	Retryable func(error) bool
	// NewTimer overrides the wait timer, mostly for tests. Nil uses real time.
	NewTimer func() backoff.Timer
	// OnRetry is called before each wait with the failed attempt number (1-based).
	OnRetry func(err error, attempt int, wait time.Duration)
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.RandomizationFactor = p.Jitter
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = func(err error, wait time.Duration) {
			p.OnRetry(err, attempt, wait)
		}
	}

	var timer backoff.Timer
	if p.NewTimer != nil {
		timer = p.NewTimer()
	}

	return backoff.RetryNotifyWithTimer(operation, b, notify, timer)
}
