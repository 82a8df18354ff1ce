package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := errors.New("connection refused")
	err := WithRetry(context.Background(), fastConfig(2), func(ctx context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "operation failed after 2 attempts")
}

func TestWithRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	cfg := fastConfig(5)
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, context.DeadlineExceeded) }

	err := WithRetry(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour}

	err := WithRetry(ctx, cfg, func(ctx context.Context) error {
		cancel()
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(1, cfg))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(3, cfg))
	assert.Equal(t, time.Second, calculateDelay(10, cfg))

	cfg.Jitter = true
	for i := 0; i < 20; i++ {
		d := calculateDelay(1, cfg)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}
