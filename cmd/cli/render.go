package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/github-repo-analyzer/internal/analyzer"
	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
	"github.com/kurihiro0119/github-repo-analyzer/pkg/client"
)

func renderSummary(w io.Writer, summary *domain.AccountSummary, cached bool, top int) {
	s := summary.Summary

	fmt.Fprintf(w, "\nAccount: %s", summary.Username)
	if summary.Profile.Name != nil {
		fmt.Fprintf(w, " (%s)", *summary.Profile.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Generated: %s", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if cached {
		fmt.Fprint(w, " [cached]")
	}
	if summary.Fallback {
		fmt.Fprint(w, " [reduced mode]")
	}
	fmt.Fprint(w, "\n\n")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Repositories Analyzed", fmt.Sprintf("%d", s.TotalReposAnalyzed)})
	table.Append([]string{"Original / Forked", fmt.Sprintf("%d / %d", s.OriginalRepos, s.ForkedRepos)})
	table.Append([]string{"Estimated LOC", fmt.Sprintf("%d", s.TotalEstimatedLOC)})
	table.Append([]string{"Stars", fmt.Sprintf("%d", s.TotalStars)})
	table.Append([]string{"Forks", fmt.Sprintf("%d", s.TotalForks)})
	table.Append([]string{"Average Quality", fmt.Sprintf("%.1f", s.AverageQualityScore)})
	for _, level := range domain.ComplexityLevels {
		table.Append([]string{string(level), fmt.Sprintf("%d", s.ComplexityDistribution[level])})
	}
	table.Render()

	if len(s.TopLanguages) > 0 {
		fmt.Fprintln(w, "\nTop Languages")
		table = tablewriter.NewWriter(w)
		table.SetHeader([]string{"Language", "Bytes", "Share"})
		for _, lang := range s.TopLanguages {
			table.Append([]string{lang.Name, fmt.Sprintf("%d", lang.Bytes), fmt.Sprintf("%.1f%%", lang.Percentage)})
		}
		table.Render()
	}

	repos := summary.Repositories
	if top > 0 && len(repos) > top {
		repos = repos[:top]
	}
	if len(repos) == 0 {
		return
	}

	fmt.Fprintf(w, "\nRepositories (%d of %d, by quality)\n", len(repos), len(summary.Repositories))
	table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repository", "Quality", "Complexity", "Est. LOC", "Stars", "Languages", "Updated"})
	for _, r := range repos {
		name := r.Name
		if r.IsFork {
			name += " (fork)"
		}
		loc := fmt.Sprintf("%d", r.EstimatedLOC)
		if r.EstimationConfidence == domain.ConfidenceLow {
			loc = "~" + loc
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%d", r.CodeQualityScore),
			string(r.ComplexityLevel),
			loc,
			fmt.Sprintf("%d", r.Stars),
			languageNames(r.PrimaryLanguages),
			daysLabel(r.DaysSinceUpdate),
		})
	}
	table.Render()
}

func renderHistory(w io.Writer, history *client.HistoryResult) {
	fmt.Fprintf(w, "\nSnapshots: %s\n\n", history.Username)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Created", "Repositories", "Estimated LOC", "Average Quality"})
	for _, snap := range history.Snapshots {
		table.Append([]string{
			snap.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", snap.TotalReposAnalyzed),
			fmt.Sprintf("%d", snap.TotalEstimatedLOC),
			fmt.Sprintf("%.1f", snap.AverageQualityScore),
		})
	}
	table.Render()
}

func renderHealth(w io.Writer, health *client.HealthStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "Value"})
	table.Append([]string{"Status", health.Status})
	table.Append([]string{"Uptime (s)", fmt.Sprintf("%d", health.UptimeSeconds)})
	table.Append([]string{"GitHub Token", fmt.Sprintf("%t", health.GitHubTokenConfigured)})
	table.Append([]string{"Cache TTL (s)", fmt.Sprintf("%d", health.CacheTTLSeconds)})
	table.Append([]string{"Cache Entries", fmt.Sprintf("%d", health.CacheEntries)})
	table.Append([]string{"Storage", health.Storage})
	table.Append([]string{"GitHub Quota", quotaLabel(health.GitHubRateLimit)})
	table.Render()
}

func quotaLabel(limit *client.RateLimitStatus) string {
	if limit == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d remaining, resets %s", limit.Remaining, time.Unix(limit.Reset, 0).Format("15:04:05"))
}

func languageNames(shares []domain.LanguageShare) string {
	names := make([]string, 0, len(shares))
	for _, s := range shares {
		names = append(names, s.Name)
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func daysLabel(days int) string {
	switch {
	case days >= analyzer.UnknownDaysSinceUpdate:
		return "unknown"
	case days == 0:
		return "today"
	case days == 1:
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
