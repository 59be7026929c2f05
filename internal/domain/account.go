package domain

import "time"

// Profile is the subset of the GitHub user profile exposed in a summary
type Profile struct {
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	AvatarURL   string  `json:"avatar_url"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
	Location    *string `json:"location"`
	Blog        *string `json:"blog"`
	GitHubURL   string  `json:"github_url"`
}

// ComplexityDistribution counts repositories per complexity tier
type ComplexityDistribution map[ComplexityLevel]int

// NewComplexityDistribution returns a distribution with every tier present and zeroed
func NewComplexityDistribution() ComplexityDistribution {
	dist := make(ComplexityDistribution, len(ComplexityLevels))
	for _, level := range ComplexityLevels {
		dist[level] = 0
	}
	return dist
}

// Total returns the number of repositories counted across all tiers
func (d ComplexityDistribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Summary holds the cross-repository statistics of an account
type Summary struct {
	TotalReposAnalyzed     int                    `json:"total_repos_analyzed"`
	OriginalRepos          int                    `json:"original_repos"`
	ForkedRepos            int                    `json:"forked_repos"`
	TotalEstimatedLOC      int                    `json:"total_estimated_loc"`
	TotalStars             int                    `json:"total_stars"`
	TotalForks             int                    `json:"total_forks"`
	AverageQualityScore    float64                `json:"average_quality_score"`
	ComplexityDistribution ComplexityDistribution `json:"complexity_distribution"`
	TopLanguages           []LanguageShare        `json:"top_languages"`
}

// AccountSummary is the result of analyzing every repository of an account
type AccountSummary struct {
	Username     string               `json:"username"`
	Profile      Profile              `json:"profile"`
	Summary      Summary              `json:"summary"`
	Repositories []AnalyzedRepository `json:"repositories"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Fallback     bool                 `json:"fallback,omitempty"`
}

// Snapshot is a persisted record of a freshly computed account summary
type Snapshot struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	GeneratedAt         time.Time       `json:"generated_at"`
	TotalReposAnalyzed  int             `json:"total_repos_analyzed"`
	TotalEstimatedLOC   int             `json:"total_estimated_loc"`
	AverageQualityScore float64         `json:"average_quality_score"`
	Summary             *AccountSummary `json:"summary,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// NewSnapshot builds a snapshot record from a summary
func NewSnapshot(id string, summary *AccountSummary, createdAt time.Time) *Snapshot {
	return &Snapshot{
		ID:                  id,
		Username:            summary.Username,
		GeneratedAt:         summary.GeneratedAt,
		TotalReposAnalyzed:  summary.Summary.TotalReposAnalyzed,
		TotalEstimatedLOC:   summary.Summary.TotalEstimatedLOC,
		AverageQualityScore: summary.Summary.AverageQualityScore,
		Summary:             summary,
		CreatedAt:           createdAt,
	}
}
