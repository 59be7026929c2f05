package aggregator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	apperrors "github.com/kurihiro0119/github-repo-analyzer/internal/errors"
)

var refNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeCollector serves canned data and records language fetches
type fakeCollector struct {
	mu         sync.Mutex
	profile    *domain.Profile
	repos      []*domain.RawRepository
	languages  map[string]domain.LanguageMap
	langErrs   map[string]error
	profileErr error
	reposErr   error
	langCalls  []string
	// beforeReturn runs inside GetLanguages just before it answers
	beforeReturn func(repo string)
	langDone     []string
}

func (f *fakeCollector) GetProfile(ctx context.Context, username string) (*domain.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &domain.Profile{Login: username}, nil
}

func (f *fakeCollector) GetRepositories(ctx context.Context, username string, limit int) ([]*domain.RawRepository, error) {
	if f.reposErr != nil {
		return nil, f.reposErr
	}
	if len(f.repos) > limit {
		return f.repos[:limit], nil
	}
	return f.repos, nil
}

func (f *fakeCollector) GetLanguages(ctx context.Context, owner, repo string) (domain.LanguageMap, error) {
	f.mu.Lock()
	f.langCalls = append(f.langCalls, owner+"/"+repo)
	f.mu.Unlock()

	if f.beforeReturn != nil {
		f.beforeReturn(repo)
		f.mu.Lock()
		f.langDone = append(f.langDone, repo)
		f.mu.Unlock()
	}

	if err := f.langErrs[repo]; err != nil {
		return nil, err
	}
	if langs, ok := f.languages[repo]; ok {
		return langs, nil
	}
	return domain.LanguageMap{}, nil
}

func (f *fakeCollector) RateLimit() (int, time.Time, error) {
	return -1, time.Time{}, nil
}

func pushedDaysAgo(n int) *time.Time {
	t := refNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func newTestAggregator(c *fakeCollector, opts Options) Aggregator {
	opts.Now = func() time.Time { return refNow }
	return NewAggregator(c, opts)
}

func TestAnalyzeAccount_NoRepositories(t *testing.T) {
	agg := newTestAggregator(&fakeCollector{}, Options{})

	summary, err := agg.AnalyzeAccount(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, "octocat", summary.Username)
	assert.Equal(t, 0, summary.Summary.TotalReposAnalyzed)
	assert.Equal(t, 0.0, summary.Summary.AverageQualityScore)
	assert.NotNil(t, summary.Summary.TopLanguages)
	assert.Empty(t, summary.Summary.TopLanguages)
	assert.Equal(t, domain.ComplexityDistribution{
		domain.ComplexityBeginner:     0,
		domain.ComplexityIntermediate: 0,
		domain.ComplexityAdvanced:     0,
	}, summary.Summary.ComplexityDistribution)
	assert.Empty(t, summary.Repositories)
	assert.Equal(t, refNow, summary.GeneratedAt)
}

func TestAnalyzeAccount_Aggregates(t *testing.T) {
	c := &fakeCollector{
		repos: []*domain.RawRepository{
			{Name: "forked", FullName: "octo/forked", Owner: "octo", IsFork: true, Stars: 1, PushedAt: pushedDaysAgo(5)},
			{Name: "web", FullName: "octo/web", Owner: "octo", Stars: 4, Forks: 2, PushedAt: pushedDaysAgo(10)},
			{Name: "cli", FullName: "octo/cli", Owner: "octo", Stars: 10, PushedAt: pushedDaysAgo(400)},
		},
		languages: map[string]domain.LanguageMap{
			"forked": {"Go": 3800},
			"web":    {"JavaScript": 40_000, "CSS": 10_000},
			"cli":    {"Go": 7600},
		},
	}
	agg := newTestAggregator(c, Options{})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)

	s := summary.Summary
	assert.Equal(t, 3, s.TotalReposAnalyzed)
	assert.Equal(t, 2, s.OriginalRepos)
	assert.Equal(t, 1, s.ForkedRepos)
	assert.Equal(t, 15, s.TotalStars)
	assert.Equal(t, 2, s.TotalForks)
	// Go 100+200, JavaScript 1000, CSS 333
	assert.Equal(t, 1633, s.TotalEstimatedLOC)
	assert.Equal(t, s.TotalReposAnalyzed, s.ComplexityDistribution.Total())

	require.Len(t, s.TopLanguages, 3)
	assert.Equal(t, "JavaScript", s.TopLanguages[0].Name)
	assert.Equal(t, 65.1, s.TopLanguages[0].Percentage)
	assert.Equal(t, "Go", s.TopLanguages[1].Name)
	assert.Equal(t, 11_400, s.TopLanguages[1].Bytes)

	require.Len(t, summary.Repositories, 3)
	for i := 1; i < len(summary.Repositories); i++ {
		assert.GreaterOrEqual(t, summary.Repositories[i-1].CodeQualityScore, summary.Repositories[i].CodeQualityScore)
	}
	assert.ElementsMatch(t, []string{"octo/forked", "octo/web", "octo/cli"}, c.langCalls)
}

func TestAnalyzeAccount_LanguageFailureDegrades(t *testing.T) {
	c := &fakeCollector{
		repos: []*domain.RawRepository{
			{Name: "good", FullName: "octo/good", Owner: "octo"},
			{Name: "flaky", FullName: "octo/flaky", Owner: "octo"},
		},
		languages: map[string]domain.LanguageMap{"good": {"Go": 3800}},
		langErrs:  map[string]error{"flaky": apperrors.NewUpstreamTimeoutError(context.DeadlineExceeded)},
	}
	agg := newTestAggregator(c, Options{})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)
	require.Len(t, summary.Repositories, 2)

	byName := map[string]domain.AnalyzedRepository{}
	for _, r := range summary.Repositories {
		byName[r.Name] = r
	}
	assert.Equal(t, 100, byName["good"].EstimatedLOC)
	assert.Equal(t, 0, byName["flaky"].EstimatedLOC)
	assert.Empty(t, byName["flaky"].AllLanguages)
}

func TestAnalyzeAccount_FatalFailures(t *testing.T) {
	notFound := apperrors.NewNotFoundError("GitHub user")

	t.Run("profile", func(t *testing.T) {
		agg := newTestAggregator(&fakeCollector{profileErr: notFound}, Options{})
		_, err := agg.AnalyzeAccount(context.Background(), "ghost")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("repositories", func(t *testing.T) {
		limited := apperrors.NewRateLimitedError(refNow.Add(time.Hour), nil)
		agg := newTestAggregator(&fakeCollector{reposErr: limited}, Options{})
		_, err := agg.AnalyzeAccount(context.Background(), "octo")
		require.Error(t, err)
		assert.True(t, apperrors.IsRateLimited(err))
	})
}

func TestAnalyzeAccount_PairsLanguagesRegardlessOfCompletionOrder(t *testing.T) {
	const n = 4
	var repos []*domain.RawRepository
	languages := map[string]domain.LanguageMap{}
	done := map[string]chan struct{}{}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("r%d", i)
		repos = append(repos, &domain.RawRepository{Name: name, FullName: "octo/" + name, Owner: "octo"})
		// 38 bytes per Go line, so repo i estimates 100*(i+1) lines
		languages[name] = domain.LanguageMap{"Go": 3800 * (i + 1)}
		done[name] = make(chan struct{})
	}

	c := &fakeCollector{
		repos:     repos,
		languages: languages,
		// each fetch answers only after the next repository's fetch has, so
		// the first repository finishes last
		beforeReturn: func(repo string) {
			var i int
			_, _ = fmt.Sscanf(repo, "r%d", &i)
			if i+1 < n {
				<-done[fmt.Sprintf("r%d", i+1)]
			}
			close(done[repo])
		},
	}
	agg := newTestAggregator(c, Options{Concurrency: n})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)

	assert.Equal(t, []string{"r3", "r2", "r1", "r0"}, c.langDone)
	require.Len(t, summary.Repositories, n)
	for _, r := range summary.Repositories {
		var i int
		_, _ = fmt.Sscanf(r.Name, "r%d", &i)
		assert.Equal(t, 100*(i+1), r.EstimatedLOC, r.Name)
		assert.Equal(t, languages[r.Name], r.AllLanguages, r.Name)
	}
}

func TestAnalyzeAccount_SizeEstimatesStayOutOfTopLanguages(t *testing.T) {
	c := &fakeCollector{
		repos: []*domain.RawRepository{
			{Name: "measured", Owner: "octo", Language: "Go", SizeKB: 4},
			{Name: "guessed", Owner: "octo", Language: "Java", SizeKB: 50_000},
		},
		languages: map[string]domain.LanguageMap{"measured": {"Go": 3800}},
	}
	agg := newTestAggregator(c, Options{LanguageFetchLimit: 1, EstimateFromSize: true, Fallback: true})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)

	assert.Equal(t, []domain.LanguageShare{{Name: "Go", Bytes: 3800, Percentage: 100}}, summary.Summary.TopLanguages)

	var guessed domain.AnalyzedRepository
	for _, r := range summary.Repositories {
		if r.Name == "guessed" {
			guessed = r
		}
	}
	assert.Equal(t, domain.ConfidenceLow, guessed.EstimationConfidence)
	assert.Positive(t, guessed.EstimatedLOC)
	assert.Equal(t, 100+guessed.EstimatedLOC, summary.Summary.TotalEstimatedLOC, "guessed volume still counts toward LOC")
}

func TestAnalyzeAccount_OriginalsFirstOnTies(t *testing.T) {
	c := &fakeCollector{
		repos: []*domain.RawRepository{
			{Name: "fork-a", IsFork: true},
			{Name: "orig-b"},
			{Name: "fork-c", IsFork: true},
			{Name: "orig-d"},
		},
	}
	agg := newTestAggregator(c, Options{})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)

	names := make([]string, 0, len(summary.Repositories))
	for _, r := range summary.Repositories {
		names = append(names, r.Name)
	}
	// every score is 0, so the analysis order survives the sort
	assert.Equal(t, []string{"orig-b", "orig-d", "fork-a", "fork-c"}, names)
	for _, call := range c.langCalls {
		assert.Contains(t, call, "octo/", "owner falls back to the username")
	}
}

func TestAnalyzeAccount_LanguageFetchLimit(t *testing.T) {
	var repos []*domain.RawRepository
	languages := map[string]domain.LanguageMap{}
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("repo-%d", i)
		repos = append(repos, &domain.RawRepository{Name: name, Owner: "octo", Language: "Go", SizeKB: 2})
		languages[name] = domain.LanguageMap{"Go": 380}
	}
	c := &fakeCollector{repos: repos, languages: languages}
	agg := newTestAggregator(c, Options{LanguageFetchLimit: 4, EstimateFromSize: true, Fallback: true})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)

	assert.Len(t, c.langCalls, 4)
	assert.True(t, summary.Fallback)

	low := 0
	for _, r := range summary.Repositories {
		if r.EstimationConfidence == domain.ConfidenceLow {
			low++
			assert.Equal(t, 2*1024/38, r.EstimatedLOC)
		}
	}
	assert.Equal(t, 2, low)
}

func TestAnalyzeAccount_MaxRepos(t *testing.T) {
	var repos []*domain.RawRepository
	for i := 0; i < 10; i++ {
		repos = append(repos, &domain.RawRepository{Name: fmt.Sprintf("r%d", i)})
	}
	agg := newTestAggregator(&fakeCollector{repos: repos}, Options{MaxRepos: 3})

	summary, err := agg.AnalyzeAccount(context.Background(), "octo")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Summary.TotalReposAnalyzed)
}

func TestSummarize_AverageAndSingleTier(t *testing.T) {
	analyzed := []domain.AnalyzedRepository{
		{CodeQualityScore: 10, ComplexityLevel: domain.ComplexityAdvanced},
		{CodeQualityScore: 20, ComplexityLevel: domain.ComplexityAdvanced},
		{CodeQualityScore: 70, ComplexityLevel: domain.ComplexityAdvanced},
	}

	s := Summarize(analyzed, DefaultTopLanguages)
	assert.Equal(t, 33.3, s.AverageQualityScore)
	assert.Equal(t, 3, s.ComplexityDistribution[domain.ComplexityAdvanced])
	assert.Equal(t, 0, s.ComplexityDistribution[domain.ComplexityBeginner])
	assert.Len(t, s.ComplexityDistribution, 3)
	assert.Equal(t, 3, s.ComplexityDistribution.Total())
}

func TestSummarize_TopLanguagesCapped(t *testing.T) {
	langs := domain.LanguageMap{}
	for i := 0; i < 12; i++ {
		langs[fmt.Sprintf("Lang%02d", i)] = 100 + i
	}

	s := Summarize([]domain.AnalyzedRepository{{AllLanguages: langs}}, 8)
	require.Len(t, s.TopLanguages, 8)
	assert.Equal(t, "Lang11", s.TopLanguages[0].Name)
}

func TestSortByQuality_Stable(t *testing.T) {
	in := []domain.AnalyzedRepository{
		{Name: "first", CodeQualityScore: 80},
		{Name: "low", CodeQualityScore: 20},
		{Name: "second", CodeQualityScore: 80},
	}

	out := SortByQuality(in)
	assert.Equal(t, "first", out[0].Name)
	assert.Equal(t, "second", out[1].Name)
	assert.Equal(t, "low", out[2].Name)
	assert.Equal(t, "low", in[1].Name, "input is left untouched")
}
