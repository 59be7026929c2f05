package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/kurihiro0119/github-repo-analyzer/internal/aggregator"
	"github.com/kurihiro0119/github-repo-analyzer/internal/collector"
	"github.com/kurihiro0119/github-repo-analyzer/internal/config"
	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
)

// Reduced-mode limits keep an unauthenticated local run within the anonymous
// rate limit
const (
	localMaxRepos           = 60
	localLanguageFetchLimit = 25
	localTopLanguages       = 8
)

// localAggregatorOptions returns the options of a reduced-mode analysis.
// Repositories beyond the language fetch limit are estimated from their size.
func localAggregatorOptions(cfg *config.Config) aggregator.Options {
	return aggregator.Options{
		MaxRepos:           localMaxRepos,
		Concurrency:        cfg.LanguageConcurrency,
		TopLanguages:       localTopLanguages,
		LanguageFetchLimit: localLanguageFetchLimit,
		Timeout:            cfg.AnalyzeTimeout,
		EstimateFromSize:   true,
		Fallback:           true,
	}
}

func analyzeLocally(ctx context.Context, cfg *config.Config, username string) (*domain.AccountSummary, error) {
	coll, err := collector.NewGitHubCollector(collector.Options{
		Token:          cfg.GitHubToken,
		BaseURL:        cfg.GitHubAPIURL,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize collector: %w", err)
	}

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Fetching repositories of " + username + " from GitHub...")
	summary, err := aggregator.NewAggregator(coll, localAggregatorOptions(cfg)).AnalyzeAccount(ctx, username)
	spinner.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", username, err)
	}
	return summary, nil
}
