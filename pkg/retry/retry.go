// Package retry provides the retry-with-backoff policy applied to every
// outbound platform and service call.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy controls how many times an operation is attempted and how long to
// wait between attempts. Delay grows exponentially from BaseDelay and is
// capped at MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy is suitable for short interactive calls made inside a webhook
// invocation.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   250 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, exhausts
// MaxAttempts, or ctx is done.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		lastErr = err
		if attempt == attempts-1 {
			break
		}
		if err := p.sleep(ctx, attempt); err != nil {
			return err
		}
	}
	return lastErr
}

func (p Policy) sleep(ctx context.Context, attempt int) error {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	delay <<= attempt
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
