package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestSleepElapses(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 5*time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))
}

func TestWaitRejectsBadTargets(t *testing.T) {
	ctx := context.Background()
	// validation happens before the page is touched
	require.ErrorContains(t, Wait(ctx, nil, WaitStrategyTime, "soon", time.Second), "invalid wait time")
	require.ErrorContains(t, Wait(ctx, nil, WaitStrategyElement, "", time.Second), "wait target is required")
	require.ErrorContains(t, Wait(ctx, nil, "later", "", time.Second), "unknown wait strategy")
}

func TestWaitTimeStrategySleeps(t *testing.T) {
	start := time.Now()
	// the time strategy never touches the page
	require.NoError(t, Wait(context.Background(), nil, WaitStrategyTime, "10ms", time.Second))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(WaitStrategyLoad, ""))
	require.NoError(t, Validate(WaitStrategyIdle, ""))
	require.NoError(t, Validate(WaitStrategyElement, "table"))
	require.NoError(t, Validate(WaitStrategyTime, "2s"))
	require.Error(t, Validate(WaitStrategyTime, ""))
	require.Error(t, Validate("whenever", ""))
}
