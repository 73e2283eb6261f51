// Package retry bounds how often and how long a unit of work may run.
//
// Do and WithTimeout are independent: Do limits attempts, WithTimeout limits
// wall-clock time. Wrapping one in the other is allowed; neither knows about
// the other.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned by WithTimeout when the deadline fires first.
var ErrTimeout = errors.New("timed out")

// Policy is a fixed-delay retry policy.
type Policy struct {
	Attempts int           // total attempts, values below 1 mean 1
	Delay    time.Duration // pause between attempts
}

// Default matches the three attempts / two seconds used for flaky network calls.
var Default = Policy{Attempts: 3, Delay: 2 * time.Second}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

func (p Policy) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.attempts()-1))
	return backoff.WithContext(b, ctx)
}

// Do runs fn until it succeeds or the policy is exhausted, returning the last
// error. Errors wrapped with Permanent stop the loop immediately.
func Do(ctx context.Context, p Policy, log *slog.Logger, fn func(ctx context.Context, attempt int) error) error {
	_, err := Value(ctx, p, log, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// Value is Do for functions that produce a result.
func Value[T any](ctx context.Context, p Policy, log *slog.Logger, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if log == nil {
		log = slog.Default()
	}
	attempt := 0
	op := func() (T, error) {
		attempt++
		return fn(ctx, attempt)
	}
	notify := func(err error, next time.Duration) {
		log.Warn("attempt failed", "attempt", attempt, "of", p.attempts(), "retry_in", next, "err", err)
	}
	return backoff.RetryNotifyWithData(op, p.backoff(ctx), notify)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// WithTimeout runs fn and gives up waiting after d. fn's context is cancelled
// on expiry but fn itself is not waited for, so its cleanup runs on its own
// goroutine after WithTimeout has returned ErrTimeout.
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		cancel()
		return err
	case <-timer.C:
		cancel()
		return ErrTimeout
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}
