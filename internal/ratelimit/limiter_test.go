package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(maxCalls int, window time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(map[string]Limits{
		"twitter": {MaxCalls: maxCalls, Window: window},
	})
	limiter.now = func() time.Time { return now }
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return ctx.Err()
	}
	return limiter, &now
}

func TestLimiter_TryAcquire(t *testing.T) {
	limiter, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.TryAcquire("twitter"))
	}

	err := limiter.TryAcquire("twitter")
	require.Error(t, err)

	var rlErr *RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "twitter", rlErr.Source)
	assert.Equal(t, time.Minute, rlErr.Retry)
}

func TestLimiter_NeverExceedsMaxWithinWindow(t *testing.T) {
	limiter, now := newTestLimiter(5, time.Minute)

	admitted := 0
	for i := 0; i < 20; i++ {
		if limiter.TryAcquire("twitter") == nil {
			admitted++
		}
		*now = now.Add(2 * time.Second) // 20 attempts fit inside one window
	}

	assert.Equal(t, 5, admitted)
}

func TestLimiter_WindowResetsAtBoundary(t *testing.T) {
	limiter, now := newTestLimiter(1, time.Minute)

	require.NoError(t, limiter.TryAcquire("twitter"))
	require.Error(t, limiter.TryAcquire("twitter"))

	// Exactly at the boundary the counter resets before admission.
	*now = now.Add(time.Minute)
	assert.NoError(t, limiter.TryAcquire("twitter"))
}

func TestLimiter_AcquireBlocksUntilReset(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx, "twitter"))

	// Second acquire waits out the window via the injected sleep, then
	// succeeds against the fresh window.
	assert.NoError(t, limiter.Acquire(ctx, "twitter"))
}

func TestLimiter_AcquireHonorsCancellation(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, limiter.Acquire(ctx, "twitter"))

	cancel()
	err := limiter.Acquire(ctx, "twitter")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_UnknownSourceIsUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.TryAcquire("unconfigured"))
	}
}

func TestLimiter_SourcesAreIndependent(t *testing.T) {
	limiter := New(map[string]Limits{
		"twitter": {MaxCalls: 1, Window: time.Minute},
		"reddit":  {MaxCalls: 1, Window: time.Minute},
	})

	require.NoError(t, limiter.TryAcquire("twitter"))
	require.Error(t, limiter.TryAcquire("twitter"))

	// Exhausting twitter's window leaves reddit untouched.
	assert.NoError(t, limiter.TryAcquire("reddit"))
}
