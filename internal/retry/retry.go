// Package retry runs a unit of work a fixed number of times with a linear
// cooldown between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Defaults used when a Runner is built with zero values.
const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner executes operations with linear backoff: after attempt n fails it
// waits delay*n before attempt n+1.
type Runner struct {
	attempts int
	delay    time.Duration
	sleep    SleepFunc
	onRetry  func(task string, attempt int, err error)
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSleep replaces the backoff wait.
func WithSleep(fn SleepFunc) Option {
	return func(r *Runner) { r.sleep = fn }
}

// WithRetryHook is called after every failed attempt that will be retried.
func WithRetryHook(fn func(task string, attempt int, err error)) Option {
	return func(r *Runner) { r.onRetry = fn }
}

// New creates a Runner. attempts < 1 and delay < 0 fall back to the defaults.
func New(attempts int, delay time.Duration, logger *slog.Logger, opts ...Option) *Runner {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	r := &Runner{
		attempts: attempts,
		delay:    delay,
		sleep:    sleepContext,
		logger:   logger.With("component", "retry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attempts returns the configured attempt count.
func (r *Runner) Attempts() int { return r.attempts }

// Backoff returns the wait after the given failed attempt (1-based).
func (r *Runner) Backoff(attempt int) time.Duration {
	return r.delay * time.Duration(attempt)
}

// Run executes op until it succeeds, returns a permanent error, or all
// attempts fail. The returned error wraps the last attempt's error only.
func (r *Runner) Run(ctx context.Context, task string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, r, task, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is Run for operations that produce a value.
func Do[T any](ctx context.Context, r *Runner, task string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		r.logger.Debug("attempt", "task", task, "attempt", attempt, "max_attempts", r.attempts)

		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("succeeded after retry", "task", task, "attempt", attempt)
			}
			return v, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			r.logger.Warn("attempt failed, not retrying", "task", task, "attempt", attempt, "error", err)
			return zero, perm.err
		}
		if attempt == r.attempts {
			break
		}

		wait := r.Backoff(attempt)
		r.logger.Warn("attempt failed",
			"task", task,
			"attempt", attempt,
			"max_attempts", r.attempts,
			"retry_in", wait,
			"error", err,
		)
		if r.onRetry != nil {
			r.onRetry(task, attempt, err)
		}
		if serr := r.sleep(ctx, wait); serr != nil {
			return zero, fmt.Errorf("%s: %w (last error: %v)", task, serr, lastErr)
		}
	}

	r.logger.Error("all attempts failed", "task", task, "attempts", r.attempts, "error", lastErr)
	return zero, fmt.Errorf("%s failed after %d attempts: %w", task, r.attempts, lastErr)
}

// Permanent marks err so the Runner stops retrying and returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
