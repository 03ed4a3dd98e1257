package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLimiter(t *testing.T) (*RedisRateLimiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRedisRateLimiter(client)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRedisRateLimiter_Allow_PerMinute(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	config := RateLimitConfig{RequestsPerMinute: 5}

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "sync:1", config)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "sync:1", config)
	require.NoError(t, err)
	assert.False(t, allowed, "6th request should be denied")
}

func TestRedisRateLimiter_Allow_SameInstant(t *testing.T) {
	// Requests sharing a timestamp must each count.
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	config := RateLimitConfig{RequestsPerMinute: 2}

	for _, want := range []bool{true, true, false} {
		allowed, err := limiter.Allow(ctx, "sync:same", config)
		require.NoError(t, err)
		assert.Equal(t, want, allowed)
	}
}

func TestRedisRateLimiter_Allow_MultipleWindows(t *testing.T) {
	limiter, now := setupTestLimiter(t)
	ctx := context.Background()
	config := RateLimitConfig{RequestsPerMinute: 5, RequestsPerHour: 6}

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "sync:multi", config)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	*now = now.Add(2 * time.Minute)
	allowed, err := limiter.Allow(ctx, "sync:multi", config)
	require.NoError(t, err)
	assert.True(t, allowed, "minute window slid, hour window has room")

	allowed, err = limiter.Allow(ctx, "sync:multi", config)
	require.NoError(t, err)
	assert.False(t, allowed, "hour window is full")
}

func TestRedisRateLimiter_Allow_DifferentKeys(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	config := RateLimitConfig{RequestsPerMinute: 1}

	allowed, err := limiter.Allow(ctx, "sync:1", config)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "sync:1", config)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "sync:2", config)
	require.NoError(t, err)
	assert.True(t, allowed, "other keys are unaffected")
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	limiter, now := setupTestLimiter(t)
	ctx := context.Background()
	config := RateLimitConfig{RequestsPerMinute: 3}

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "sync:slide", config)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	*now = now.Add(61 * time.Second)
	allowed, err := limiter.Allow(ctx, "sync:slide", config)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_GetRemainingAndReset(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()
	config := RateLimitConfig{RequestsPerMinute: 2}

	count, err := limiter.GetRemaining(ctx, "sync:r", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "sync:r", config)
		require.NoError(t, err)
	}
	count, err = limiter.GetRemaining(ctx, "sync:r", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, limiter.Reset(ctx, "sync:r"))
	allowed, err := limiter.Allow(ctx, "sync:r", config)
	require.NoError(t, err)
	assert.True(t, allowed, "should be allowed after reset")
}
