package collector

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
)

// RateLimiter manages GitHub API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	CheckLimit() (remaining int, resetTime time.Time, err error)
	UpdateLimit(remaining int, resetTime time.Time)
}

// githubRateLimiter implements RateLimiter for GitHub API
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int // -1 until the first response is seen
	resetTime time.Time
	minDelay  time.Duration
	nextSlot  time.Time
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter that spaces calls at least
// minDelay apart
func NewRateLimiter(minDelay time.Duration) RateLimiter {
	return &githubRateLimiter{
		remaining: -1,
		minDelay:  minDelay,
		now:       time.Now,
	}
}

// Wait waits until it's safe to make another API call. When the quota is
// known to be exhausted it fails immediately with a rate limited error
// instead of blocking until the reset.
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := r.now()
	if r.remaining == 0 && now.Before(r.resetTime) {
		reset := r.resetTime
		r.mu.Unlock()
		return apperrors.NewRateLimitedError(reset, nil)
	}

	slot := now
	if r.nextSlot.After(slot) {
		slot = r.nextSlot
	}
	r.nextSlot = slot.Add(r.minDelay)
	r.mu.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CheckLimit returns the current rate limit status
func (r *githubRateLimiter) CheckLimit() (remaining int, resetTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime, nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
