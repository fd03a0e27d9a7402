package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimiterAllowsUpToMax(t *testing.T) {
	limiter := NewSlidingWindowLimiter(3, time.Hour)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "alice"))
	assert.True(t, limiter.Allow(ctx, "alice"))
	assert.True(t, limiter.Allow(ctx, "alice"))
	assert.False(t, limiter.Allow(ctx, "alice"))
}

func TestSlidingWindowLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Hour)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "alice"))
	assert.False(t, limiter.Allow(ctx, "alice"))
	assert.True(t, limiter.Allow(ctx, "bob"))
}

func TestSlidingWindowLimiterExpiresOldAttempts(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "alice"))
	assert.False(t, limiter.Allow(ctx, "alice"))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, limiter.Allow(ctx, "alice"))
}

func TestSlidingWindowLimiterRejectedAttemptsStillCount(t *testing.T) {
	limiter := NewSlidingWindowLimiter(2, time.Hour)
	ctx := context.Background()

	limiter.Allow(ctx, "alice")
	limiter.Allow(ctx, "alice")
	limiter.Allow(ctx, "alice")

	assert.Equal(t, 3, limiter.Count("alice"))
}
