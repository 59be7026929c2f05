package collector

import (
	"context"
	"time"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
)

// Collector defines the interface for fetching account data from GitHub.
// Implementations return *errors.AppError values classified by failure kind.
type Collector interface {
	// GetProfile retrieves the public profile of an account
	GetProfile(ctx context.Context, username string) (*domain.Profile, error)

	// GetRepositories retrieves up to limit repositories of an account,
	// most recently updated first
	GetRepositories(ctx context.Context, username string, limit int) ([]*domain.RawRepository, error)

	// GetLanguages retrieves the language byte breakdown of a repository
	GetLanguages(ctx context.Context, owner, repo string) (domain.LanguageMap, error)

	// RateLimit returns the last quota GitHub reported. remaining is -1
	// before the first response.
	RateLimit() (remaining int, resetTime time.Time, err error)
}
