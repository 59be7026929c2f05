package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-repo-analyzer/internal/aggregator"
	"github.com/kurihiro0119/github-repo-analyzer/internal/api"
	"github.com/kurihiro0119/github-repo-analyzer/internal/cache"
	"github.com/kurihiro0119/github-repo-analyzer/internal/collector"
	"github.com/kurihiro0119/github-repo-analyzer/internal/config"
	"github.com/kurihiro0119/github-repo-analyzer/internal/storage"
	"github.com/kurihiro0119/github-repo-analyzer/internal/storage/postgres"
	"github.com/kurihiro0119/github-repo-analyzer/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.GitHubToken == "" {
		logger.Warn("GITHUB_TOKEN is not set, using unauthenticated rate limits")
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case config.StoragePostgres:
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			logger.Error("Failed to initialize PostgreSQL storage", "error", err)
			os.Exit(1)
		}
	case config.StorageSQLite:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to initialize SQLite storage", "error", err)
			os.Exit(1)
		}
	}
	if store != nil {
		defer store.Close()
	}

	// Initialize collector
	coll, err := collector.NewGitHubCollector(collector.Options{
		Token:          cfg.GitHubToken,
		BaseURL:        cfg.GitHubAPIURL,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Error("Failed to initialize GitHub collector", "error", err)
		os.Exit(1)
	}

	// Initialize aggregator and cache
	agg := aggregator.NewAggregator(coll, aggregator.Options{
		MaxRepos:         cfg.MaxRepos,
		Concurrency:      cfg.LanguageConcurrency,
		Timeout:          cfg.AnalyzeTimeout,
		EstimateFromSize: cfg.EstimateFromSize,
	})
	analysis := cache.NewAnalysisCache(agg, cfg.CacheTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go analysis.RunJanitor(ctx, cfg.CacheTTL)

	// Initialize handler
	handler := api.NewHandler(analysis, api.HandlerOptions{
		Storage:         store,
		StorageType:     cfg.StorageType,
		TokenConfigured: cfg.GitHubToken != "",
		RateLimit:       coll,
		Logger:          logger,
	})

	// Setup routes
	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRoutes(handler, logger)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	logger.Info("Starting API server", "addr", addr, "storage", cfg.StorageType, "cache_ttl", cfg.CacheTTL)

	if err := router.Run(addr); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
