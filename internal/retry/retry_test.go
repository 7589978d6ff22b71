package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func recordSleeps(waits *[]time.Duration) Option {
	return WithSleep(func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
}

func TestRunSucceedsAfterTwoFailures(t *testing.T) {
	var waits []time.Duration
	r := New(3, 2*time.Second, testLogger, recordSleeps(&waits))

	calls := 0
	got, err := Do(context.Background(), r, "flaky", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("boom")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
}

func TestRunReturnsLastError(t *testing.T) {
	var waits []time.Duration
	r := New(3, time.Second, testLogger, recordSleeps(&waits))

	calls := 0
	errs := []error{errors.New("first"), errors.New("second"), errors.New("third")}
	err := r.Run(context.Background(), "always-fails", func(ctx context.Context) error {
		e := errs[calls]
		calls++
		return e
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errs[2])
	assert.NotErrorIs(t, err, errs[0])
	assert.NotContains(t, err.Error(), "first")
	assert.Len(t, waits, 2)
}

func TestRunBackoffIsWallClock(t *testing.T) {
	delay := 15 * time.Millisecond
	r := New(3, delay, testLogger)

	calls := 0
	start := time.Now()
	err := r.Run(context.Background(), "slow", func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), delay*3)
}

func TestRunPermanentStopsEarly(t *testing.T) {
	sentinel := errors.New("blocked")
	r := New(3, time.Second, testLogger, WithSleep(func(context.Context, time.Duration) error {
		t.Fatal("should not sleep")
		return nil
	}))

	calls := 0
	err := r.Run(context.Background(), "blocked", func(ctx context.Context) error {
		calls++
		return Permanent(sentinel)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestRunStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(5, time.Hour, testLogger)

	calls := 0
	err := r.Run(ctx, "cancelled", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryHook(t *testing.T) {
	var hooked []int
	r := New(3, 0, testLogger, WithRetryHook(func(task string, attempt int, err error) {
		hooked = append(hooked, attempt)
	}))
	_ = r.Run(context.Background(), "hooked", func(ctx context.Context) error {
		return errors.New("x")
	})
	assert.Equal(t, []int{1, 2}, hooked)
}

func TestNewDefaults(t *testing.T) {
	r := New(0, -1, testLogger)
	assert.Equal(t, DefaultAttempts, r.Attempts())
	assert.Equal(t, DefaultDelay, r.Backoff(1))
	assert.Equal(t, 3*DefaultDelay, r.Backoff(3))
}
