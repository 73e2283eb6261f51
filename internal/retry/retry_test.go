package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDoStopsAtAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3}, quiet, func(_ context.Context, attempt int) error {
		calls++
		return fmt.Errorf("attempt %d", attempt)
	})
	require.Equal(t, 3, calls)
	require.EqualError(t, err, "attempt 3")
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	v, err := Value(context.Background(), Policy{Attempts: 3}, quiet, func(_ context.Context, attempt int) (string, error) {
		if attempt < 3 {
			return "", errors.New("rpc unavailable")
		}
		return "1234", nil
	})
	require.NoError(t, err)
	require.Equal(t, "1234", v)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, nil, func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoPermanent(t *testing.T) {
	sentinel := errors.New("bad config")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5}, quiet, func(context.Context, int) error {
		calls++
		return Permanent(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 10, Delay: time.Hour}, quiet, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestWithTimeout(t *testing.T) {
	var finished atomic.Bool
	release := make(chan struct{})

	err := WithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		<-release
		finished.Store(true)
		return nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.False(t, finished.Load())
	close(release)
	require.Eventually(t, finished.Load, time.Second, 5*time.Millisecond)
}

func TestWithTimeoutPassesResult(t *testing.T) {
	sentinel := errors.New("scrape failed")
	require.ErrorIs(t, WithTimeout(context.Background(), time.Second, func(context.Context) error { return sentinel }), sentinel)
	require.NoError(t, WithTimeout(context.Background(), 0, func(context.Context) error { return nil }))
}
