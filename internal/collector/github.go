package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
)

const (
	// PerPage is the repository page size requested from GitHub
	PerPage = 100

	defaultRequestTimeout = 15 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryDelay     = 500 * time.Millisecond
	maxRetryDelay         = 5 * time.Second
	userAgent             = "github-repo-analyzer"
)

// Options configures a GitHub collector
type Options struct {
	// Token is an optional bearer token; empty means unauthenticated access
	Token string
	// BaseURL overrides the REST API root (GitHub Enterprise, tests)
	BaseURL string
	// RequestTimeout bounds every single upstream call
	RequestTimeout time.Duration
	// RetryAttempts is the total number of attempts for transient failures
	RetryAttempts uint
	// RetryDelay is the initial backoff delay
	RetryDelay time.Duration
	// MinDelay spaces consecutive calls apart
	MinDelay time.Duration
	// HTTPClient is the base client; a default one is used when nil
	HTTPClient *http.Client
}

// githubCollector implements Collector using GitHub API
type githubCollector struct {
	client         *github.Client
	rateLimiter    RateLimiter
	requestTimeout time.Duration
	retryAttempts  uint
	retryDelay     time.Duration
}

// NewGitHubCollector creates a new GitHub collector
func NewGitHubCollector(opts Options) (Collector, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token},
		)
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	client.UserAgent = userAgent
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	c := &githubCollector{
		client:         client,
		rateLimiter:    NewRateLimiter(opts.MinDelay),
		requestTimeout: opts.RequestTimeout,
		retryAttempts:  opts.RetryAttempts,
		retryDelay:     opts.RetryDelay,
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	if c.retryAttempts == 0 {
		c.retryAttempts = defaultRetryAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	return c, nil
}

// GetProfile retrieves the public profile of an account
func (c *githubCollector) GetProfile(ctx context.Context, username string) (*domain.Profile, error) {
	var user *github.User
	err := c.call(ctx, "get user "+username, func(ctx context.Context) (*github.Response, error) {
		u, resp, err := c.client.Users.Get(ctx, username)
		user = u
		return resp, err
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("GitHub user")
		}
		return nil, err
	}

	return &domain.Profile{
		Login:       user.GetLogin(),
		Name:        nonEmpty(user.Name),
		Bio:         nonEmpty(user.Bio),
		AvatarURL:   user.GetAvatarURL(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		Location:    nonEmpty(user.Location),
		Blog:        nonEmpty(user.Blog),
		GitHubURL:   user.GetHTMLURL(),
	}, nil
}

// GetRepositories retrieves up to limit repositories of an account. Pages
// are requested until the limit is reached or a short page ends the listing.
func (c *githubCollector) GetRepositories(ctx context.Context, username string, limit int) ([]*domain.RawRepository, error) {
	var allRepos []*domain.RawRepository
	opts := &github.RepositoryListOptions{
		Type:        "owner",
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: PerPage, Page: 1},
	}

	for limit <= 0 || len(allRepos) < limit {
		var repos []*github.Repository
		err := c.call(ctx, fmt.Sprintf("list repos %s page %d", username, opts.Page), func(ctx context.Context) (*github.Response, error) {
			r, resp, err := c.client.Repositories.List(ctx, username, opts)
			repos = r
			return resp, err
		})
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFoundError("GitHub user")
			}
			return nil, err
		}

		for _, repo := range repos {
			allRepos = append(allRepos, toRawRepository(repo))
		}

		if len(repos) < PerPage {
			break
		}
		opts.Page++
	}

	if limit > 0 && len(allRepos) > limit {
		allRepos = allRepos[:limit]
	}
	return allRepos, nil
}

// GetLanguages retrieves the language byte breakdown of a repository. A
// repository that no longer exists yields an empty map.
func (c *githubCollector) GetLanguages(ctx context.Context, owner, repo string) (domain.LanguageMap, error) {
	var languages map[string]int
	err := c.call(ctx, fmt.Sprintf("list languages %s/%s", owner, repo), func(ctx context.Context) (*github.Response, error) {
		l, resp, err := c.client.Repositories.ListLanguages(ctx, owner, repo)
		languages = l
		return resp, err
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domain.LanguageMap{}, nil
		}
		return nil, err
	}
	if languages == nil {
		return domain.LanguageMap{}, nil
	}
	return domain.LanguageMap(languages), nil
}

// RateLimit returns the quota tracked from the latest GitHub response
func (c *githubCollector) RateLimit() (int, time.Time, error) {
	return c.rateLimiter.CheckLimit()
}

// call runs one upstream request under the rate limiter, a per-attempt
// timeout and retry for transient failures. The returned error is always an
// *errors.AppError.
func (c *githubCollector) call(ctx context.Context, operation string, fn func(ctx context.Context) (*github.Response, error)) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return classifyError(err, nil)
	}

	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
			defer cancel()

			resp, err := fn(attemptCtx)
			c.updateRateLimitFromResponse(resp)
			if err != nil {
				return classifyError(err, resp)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(apperrors.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying GitHub request", "component", "collector", "operation", operation, "attempt", n+1, "max_attempts", c.retryAttempts, "error", err)
		}),
	)
	if err != nil {
		return classifyError(err, nil)
	}
	return nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

// classifyError maps go-github, context and transport failures onto the
// application error taxonomy
func classifyError(err error, resp *github.Response) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.NewRateLimitedError(rateErr.Rate.Reset.Time, err)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var reset time.Time
		if abuseErr.RetryAfter != nil {
			reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return apperrors.NewRateLimitedError(reset, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUpstreamTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewUpstreamTimeoutError(err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewInternalError("request cancelled", err)
	}

	status := 0
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		status = errResp.Response.StatusCode
	} else if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	switch status {
	case http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError("GitHub token invalid or missing.", err)
	case http.StatusForbidden, http.StatusTooManyRequests:
		var reset time.Time
		if resp != nil {
			reset = resp.Rate.Reset.Time
		}
		return apperrors.NewRateLimitedError(reset, err)
	case http.StatusNotFound:
		return apperrors.NewNotFoundError("GitHub resource")
	}
	return apperrors.NewUpstreamError(status, err)
}

func toRawRepository(r *github.Repository) *domain.RawRepository {
	raw := &domain.RawRepository{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Owner:       r.GetOwner().GetLogin(),
		Description: nonEmpty(r.Description),
		URL:         r.GetHTMLURL(),
		Homepage:    nonEmpty(r.Homepage),
		Topics:      r.Topics,
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		IsFork:      r.GetFork(),
		Archived:    r.GetArchived(),
		HasWiki:     r.GetHasWiki(),
		HasPages:    r.GetHasPages(),
		Language:    r.GetLanguage(),
		SizeKB:      r.GetSize(),
		CreatedAt:   timestampPtr(r.CreatedAt),
		PushedAt:    timestampPtr(r.PushedAt),
		UpdatedAt:   timestampPtr(r.UpdatedAt),
	}
	if r.License != nil {
		id := r.License.GetSPDXID()
		if id == "" {
			id = r.License.GetKey()
		}
		if id != "" {
			raw.License = &id
		}
	}
	return raw
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
