package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kurihiro0119/github-repo-analyzer/internal/analyzer"
	"github.com/kurihiro0119/github-repo-analyzer/internal/collector"
	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	"github.com/kurihiro0119/github-repo-analyzer/internal/worker"
)

const (
	// DefaultMaxRepos caps how many repositories are analyzed per account
	DefaultMaxRepos = 100
	// DefaultConcurrency caps in-flight language fetches
	DefaultConcurrency = 8
	// DefaultTopLanguages caps the account-wide language ranking
	DefaultTopLanguages = 10
)

// Aggregator defines the interface for analyzing whole accounts
type Aggregator interface {
	// AnalyzeAccount fetches and analyzes every repository of an account.
	// Profile and repository list failures are fatal; a failed language
	// fetch only degrades the affected repository.
	AnalyzeAccount(ctx context.Context, username string) (*domain.AccountSummary, error)
}

// Options configures an aggregator
type Options struct {
	MaxRepos    int
	Concurrency int
	// TopLanguages caps summary.top_languages
	TopLanguages int
	// LanguageFetchLimit caps how many repositories get a language fetch;
	// the rest are analyzed with an empty map. Zero means no cap.
	LanguageFetchLimit int
	// Timeout bounds a whole account analysis; zero means no extra bound
	Timeout          time.Duration
	EstimateFromSize bool
	// Fallback marks produced summaries as computed in degraded mode
	Fallback bool
	Now      func() time.Time
}

// aggregator implements the Aggregator interface
type aggregator struct {
	collector collector.Collector
	opts      Options
	logger    *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(c collector.Collector, opts Options) Aggregator {
	if opts.MaxRepos <= 0 {
		opts.MaxRepos = DefaultMaxRepos
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.TopLanguages <= 0 {
		opts.TopLanguages = DefaultTopLanguages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &aggregator{
		collector: c,
		opts:      opts,
		logger:    slog.Default().With("component", "aggregator"),
	}
}

// AnalyzeAccount fetches the profile and repositories of an account and
// builds its summary
func (a *aggregator) AnalyzeAccount(ctx context.Context, username string) (*domain.AccountSummary, error) {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	var (
		wg         sync.WaitGroup
		profile    *domain.Profile
		repos      []*domain.RawRepository
		profileErr error
		reposErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		profile, profileErr = a.collector.GetProfile(ctx, username)
	}()
	go func() {
		defer wg.Done()
		repos, reposErr = a.collector.GetRepositories(ctx, username, a.opts.MaxRepos)
	}()
	wg.Wait()

	if profileErr != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", profileErr)
	}
	if reposErr != nil {
		return nil, fmt.Errorf("failed to fetch repositories: %w", reposErr)
	}

	ordered := orderOriginalsFirst(repos)
	now := a.opts.Now()
	analyzeOpts := analyzer.Options{EstimateFromSize: a.opts.EstimateFromSize}

	indexed := make([]indexedRepo, len(ordered))
	for i, repo := range ordered {
		indexed[i] = indexedRepo{index: i, repo: repo}
	}

	results := worker.Run(ctx, indexed, a.opts.Concurrency, func(ctx context.Context, item indexedRepo) (domain.AnalyzedRepository, error) {
		langs := a.fetchLanguages(ctx, username, item)
		return analyzer.AnalyzeRepository(item.repo, langs, now, analyzeOpts), nil
	})

	analyzed := make([]domain.AnalyzedRepository, len(ordered))
	for _, r := range results {
		if r.Err != nil {
			// not started before ctx ended; analyze with no breakdown
			a.logger.Warn("Repository skipped language fetch", "repo", r.Item.repo.FullName, "error", r.Err)
			analyzed[r.Item.index] = analyzer.AnalyzeRepository(r.Item.repo, nil, now, analyzeOpts)
			continue
		}
		analyzed[r.Item.index] = r.Value
	}

	summary := &domain.AccountSummary{
		Username:     username,
		Profile:      *profile,
		Summary:      Summarize(analyzed, a.opts.TopLanguages),
		Repositories: SortByQuality(analyzed),
		GeneratedAt:  now.UTC(),
		Fallback:     a.opts.Fallback,
	}
	return summary, nil
}

type indexedRepo struct {
	index int
	repo  *domain.RawRepository
}

// fetchLanguages fetches a repository's language breakdown, degrading to an
// empty map on failure
func (a *aggregator) fetchLanguages(ctx context.Context, username string, item indexedRepo) domain.LanguageMap {
	if a.opts.LanguageFetchLimit > 0 && item.index >= a.opts.LanguageFetchLimit {
		return domain.LanguageMap{}
	}

	owner := item.repo.Owner
	if owner == "" {
		owner = username
	}
	langs, err := a.collector.GetLanguages(ctx, owner, item.repo.Name)
	if err != nil {
		a.logger.Warn("Failed to fetch languages, continuing without breakdown",
			"repo", item.repo.FullName, "error", err)
		return domain.LanguageMap{}
	}
	return langs
}

// orderOriginalsFirst returns repos with originals before forks, keeping the
// relative order within each group
func orderOriginalsFirst(repos []*domain.RawRepository) []*domain.RawRepository {
	ordered := make([]*domain.RawRepository, 0, len(repos))
	var forks []*domain.RawRepository
	for _, r := range repos {
		if r.IsFork {
			forks = append(forks, r)
			continue
		}
		ordered = append(ordered, r)
	}
	return append(ordered, forks...)
}

// Summarize computes the cross-repository statistics of analyzed repositories.
// Original and forked counts are derived from the is_fork flags. Top languages
// only rank fetched breakdowns, never size-based estimates.
func Summarize(analyzed []domain.AnalyzedRepository, topLanguages int) domain.Summary {
	summary := domain.Summary{
		TotalReposAnalyzed:     len(analyzed),
		ComplexityDistribution: domain.NewComplexityDistribution(),
		TopLanguages:           []domain.LanguageShare{},
	}

	totals := domain.LanguageMap{}
	qualitySum := 0
	for _, r := range analyzed {
		if r.IsFork {
			summary.ForkedRepos++
		} else {
			summary.OriginalRepos++
		}
		summary.TotalEstimatedLOC += r.EstimatedLOC
		summary.TotalStars += r.Stars
		summary.TotalForks += r.Forks
		summary.ComplexityDistribution[r.ComplexityLevel]++
		qualitySum += r.CodeQualityScore

		// size-based guesses count the whole git history; keep them out of the
		// measured totals
		if r.EstimationConfidence == domain.ConfidenceLow {
			continue
		}
		for lang, bytes := range r.AllLanguages {
			totals[lang] += bytes
		}
	}

	if len(analyzed) > 0 {
		summary.AverageQualityScore = analyzer.RoundTenth(float64(qualitySum) / float64(len(analyzed)))
	}
	if ranked := analyzer.RankLanguages(totals, topLanguages); len(ranked) > 0 {
		summary.TopLanguages = ranked
	}
	return summary
}

// SortByQuality returns a copy of analyzed ordered by quality score
// descending. Ties keep their input order.
func SortByQuality(analyzed []domain.AnalyzedRepository) []domain.AnalyzedRepository {
	sorted := make([]domain.AnalyzedRepository, len(analyzed))
	copy(sorted, analyzed)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CodeQualityScore > sorted[j].CodeQualityScore
	})
	return sorted
}
