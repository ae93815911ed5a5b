package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-sniper/internal/status"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), "op", 3, time.Millisecond,
		func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestRetry_FailsTwiceThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), "op", 3, time.Millisecond,
		func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, status.New(status.KindNetwork, "flaky")
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), "op", 3, time.Millisecond,
		func(ctx context.Context) (string, error) {
			calls++
			return "", status.New(status.KindServer, "boom")
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var se *status.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, status.KindServer, se.Kind)
}

func TestRetry_NonRetryableAbortsImmediately(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), "op", 3, time.Millisecond,
		func(ctx context.Context) (string, error) {
			calls++
			return "", status.New(status.KindValidation, "bad input")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var se *status.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, status.KindValidation, se.Kind)
}

func TestRetry_UnknownRetriedOnce(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), "op", 5, time.Millisecond,
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("weird failure")
		})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_LinearBackoff(t *testing.T) {
	base := 20 * time.Millisecond
	var gaps []time.Duration
	last := time.Now()
	calls := 0

	_, err := Retry(context.Background(), "op", 3, base,
		func(ctx context.Context) (string, error) {
			now := time.Now()
			if calls > 0 {
				gaps = append(gaps, now.Sub(last))
			}
			last = now
			calls++
			return "", status.New(status.KindRateLimited, "429")
		})

	require.Error(t, err)
	require.Len(t, gaps, 2)
	// Waits scale with the attempt index: base, then 2*base.
	assert.GreaterOrEqual(t, gaps[0], base)
	assert.GreaterOrEqual(t, gaps[1], 2*base)
	assert.Less(t, gaps[0], 2*base)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, "op", 3, time.Second,
		func(ctx context.Context) (string, error) {
			calls++
			return "", status.New(status.KindNetwork, "flaky")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), "op", 0, time.Millisecond,
		func(ctx context.Context) (string, error) {
			calls++
			return "", status.New(status.KindServer, "boom")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
