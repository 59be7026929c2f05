package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
)

func TestRateLimiter_FailsFastWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(0)
	reset := time.Now().Add(10 * time.Minute)
	rl.UpdateLimit(0, reset)

	start := time.Now()
	err := rl.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
	assert.Less(t, time.Since(start), time.Second)

	remaining, resetTime, err := rl.CheckLimit()
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, reset, resetTime)
}

func TestRateLimiter_AllowsAfterReset(t *testing.T) {
	rl := NewRateLimiter(0)
	rl.UpdateLimit(0, time.Now().Add(-time.Second))

	assert.NoError(t, rl.Wait(context.Background()))
}

func TestRateLimiter_UnknownQuotaIsAllowed(t *testing.T) {
	rl := NewRateLimiter(0)

	remaining, _, _ := rl.CheckLimit()
	assert.Equal(t, -1, remaining)
	assert.NoError(t, rl.Wait(context.Background()))
}

func TestRateLimiter_SpacesCalls(t *testing.T) {
	rl := NewRateLimiter(20 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimiter_HonorsContext(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
