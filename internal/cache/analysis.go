package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
)

// DefaultTTL is how long an account summary is served from memory
const DefaultTTL = 5 * time.Minute

const keyPrefix = "analyze:"

// AccountAnalyzer computes account summaries
type AccountAnalyzer interface {
	AnalyzeAccount(ctx context.Context, username string) (*domain.AccountSummary, error)
}

// AnalysisCache memoizes account summaries per username
type AnalysisCache struct {
	analyzer AccountAnalyzer
	entries  *TTLCache[*domain.AccountSummary]
	logger   *slog.Logger
}

// NewAnalysisCache wraps analyzer with a TTL cache
func NewAnalysisCache(analyzer AccountAnalyzer, ttl time.Duration, opts ...Option) *AnalysisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AnalysisCache{
		analyzer: analyzer,
		entries:  New[*domain.AccountSummary](ttl, opts...),
		logger:   slog.Default().With("component", "cache"),
	}
}

// Key returns the cache key of a username. Lookups are case-insensitive.
func Key(username string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(username))
}

// GetOrCompute returns the cached summary of username when present and fresh,
// unless forceRefresh is set. Otherwise it runs the analysis and stores the
// result. Analysis errors are returned as-is and never cached. The returned
// summary is shared and must not be modified.
func (c *AnalysisCache) GetOrCompute(ctx context.Context, username string, forceRefresh bool) (*domain.AccountSummary, bool, error) {
	key := Key(username)
	if !forceRefresh {
		if summary, ok := c.entries.Get(key); ok {
			c.logger.Debug("Cache hit", "key", key)
			return summary, true, nil
		}
	}

	summary, err := c.analyzer.AnalyzeAccount(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, false, err
	}

	c.entries.Set(key, summary)
	c.logger.Debug("Cache stored", "key", key, "ttl", c.entries.TTL())
	return summary, false, nil
}

// Invalidate drops the cached summary of username
func (c *AnalysisCache) Invalidate(username string) {
	c.entries.Delete(Key(username))
	c.logger.Info("Cache entry invalidated", "key", Key(username))
}

// Clear drops every cached summary
func (c *AnalysisCache) Clear() {
	c.entries.Clear()
	c.logger.Info("Cache cleared")
}

// Prune drops expired summaries and returns how many were removed
func (c *AnalysisCache) Prune() int {
	return c.entries.Prune()
}

// RunJanitor prunes expired summaries every interval until ctx is done
func (c *AnalysisCache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.entries.TTL()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Prune(); removed > 0 {
				c.logger.Debug("Pruned expired entries", "removed", removed, "remaining", c.Len())
			}
		}
	}
}

// Len returns the number of cached summaries
func (c *AnalysisCache) Len() int {
	return c.entries.Len()
}

// TTL returns how long summaries are cached
func (c *AnalysisCache) TTL() time.Duration {
	return c.entries.TTL()
}
