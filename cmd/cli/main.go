package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-repo-analyzer/internal/config"
	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	"github.com/kurihiro0119/github-repo-analyzer/pkg/client"
)

var (
	outputJSON   bool
	apiEndpoint  string
	refresh      bool
	localOnly    bool
	topRepos     int
	historyLimit int
	latestOnly   bool
)

var rootCmd = &cobra.Command{
	Use:   "repo-analyzer",
	Short: "GitHub repository analyzer",
	Long: `A CLI tool for summarizing the public repositories of a GitHub account.

It estimates lines of code, classifies complexity and scores the quality of
every repository, then aggregates the results for the whole account.`,
	SilenceUsage: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [username]",
	Short: "Analyze a GitHub account",
	Long: `Analyze a GitHub account through the API server. When the server cannot
be reached, or with --local, the analysis runs in-process in a reduced mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var historyCmd = &cobra.Command{
	Use:   "history [username]",
	Short: "Show stored analysis snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the API server cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [username]",
	Short: "Drop cached summaries",
	Long:  `Drop the cached summary of one account, or every cached summary when no username is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the API server health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&apiEndpoint, "endpoint", "", "API server URL (default is API_ENDPOINT)")

	analyzeCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the server cache")
	analyzeCmd.Flags().BoolVar(&localOnly, "local", false, "analyze in-process without the API server")
	analyzeCmd.Flags().IntVar(&topRepos, "top", 10, "number of repositories to list (0 for all)")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of snapshots")
	historyCmd.Flags().BoolVar(&latestOnly, "latest", false, "show the full summary of the newest snapshot")
	historyCmd.Flags().IntVar(&topRepos, "top", 10, "number of repositories to list with --latest (0 for all)")

	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	if apiEndpoint != "" {
		cfg.APIEndpoint = apiEndpoint
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		summary *domain.AccountSummary
		cached  bool
	)
	if localOnly {
		summary, err = analyzeLocally(ctx, cfg, username)
	} else {
		summary, cached, err = analyzeRemotely(ctx, cfg, username)
	}
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(struct {
			*domain.AccountSummary
			Cached bool `json:"cached"`
		}{summary, cached})
	}

	renderSummary(os.Stdout, summary, cached, topRepos)
	return nil
}

// analyzeRemotely asks the API server and falls back to a local analysis
// when the server is unreachable
func analyzeRemotely(ctx context.Context, cfg *config.Config, username string) (*domain.AccountSummary, bool, error) {
	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Analyzing " + username + "...")
	result, err := client.NewClient(cfg.APIEndpoint).Analyze(ctx, username, refresh)
	spinner.Stop()

	if err == nil {
		return &result.AccountSummary, result.Cached, nil
	}
	if client.IsAPIError(err) {
		return nil, false, err
	}

	pterm.Warning.Printf("API server at %s unreachable (%v), analyzing locally in reduced mode\n", cfg.APIEndpoint, err)
	summary, err := analyzeLocally(ctx, cfg, username)
	return summary, false, err
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if latestOnly {
		return showLatest(cmd.Context(), cfg, args[0])
	}

	history, err := client.NewClient(cfg.APIEndpoint).History(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if outputJSON {
		return printJSON(history)
	}
	if len(history.Snapshots) == 0 {
		pterm.Info.Printf("No snapshots stored for %s\n", history.Username)
		return nil
	}
	renderHistory(os.Stdout, history)
	return nil
}

func showLatest(ctx context.Context, cfg *config.Config, username string) error {
	snapshot, err := client.NewClient(cfg.APIEndpoint).LatestSnapshot(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if outputJSON {
		return printJSON(snapshot)
	}
	if snapshot.Summary == nil {
		return fmt.Errorf("snapshot %s has no summary", snapshot.ID)
	}
	pterm.Info.Printf("Snapshot %s stored at %s\n", snapshot.ID, snapshot.CreatedAt.Format("2006-01-02 15:04:05"))
	renderSummary(os.Stdout, snapshot.Summary, false, topRepos)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var username string
	if len(args) == 1 {
		username = args[0]
	}
	if err := client.NewClient(cfg.APIEndpoint).ClearCache(cmd.Context(), username); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	if username == "" {
		pterm.Success.Println("Cleared every cached summary")
	} else {
		pterm.Success.Printf("Cleared cached summary of %s\n", username)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	health, err := client.NewClient(cfg.APIEndpoint).Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if outputJSON {
		return printJSON(health)
	}
	renderHealth(os.Stdout, health)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
