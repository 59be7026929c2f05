package domain

import "time"

// LanguageMap maps a language name to the number of bytes of that language
// reported for a repository. It may be empty.
type LanguageMap map[string]int

// TotalBytes returns the sum of all byte counts in the map
func (m LanguageMap) TotalBytes() int {
	total := 0
	for _, b := range m {
		total += b
	}
	return total
}

// RawRepository represents a GitHub repository as returned by the collector.
// It is treated as immutable input.
type RawRepository struct {
	Name        string
	FullName    string
	Owner       string
	Description *string
	URL         string
	Homepage    *string
	Topics      []string
	Stars       int
	Forks       int
	OpenIssues  int
	IsFork      bool
	Archived    bool
	HasWiki     bool
	HasPages    bool
	License     *string // SPDX identifier
	Language    string  // primary language as reported by GitHub
	SizeKB      int
	CreatedAt   *time.Time
	PushedAt    *time.Time
	UpdatedAt   *time.Time
}

// LastActivity returns the pushed timestamp, falling back to the updated timestamp
func (r *RawRepository) LastActivity() *time.Time {
	if r.PushedAt != nil && !r.PushedAt.IsZero() {
		return r.PushedAt
	}
	if r.UpdatedAt != nil && !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return nil
}

// ComplexityLevel is a coarse sophistication label for a repository
type ComplexityLevel string

const (
	ComplexityBeginner     ComplexityLevel = "Beginner"
	ComplexityIntermediate ComplexityLevel = "Intermediate"
	ComplexityAdvanced     ComplexityLevel = "Advanced"
)

// ComplexityLevels lists every tier in ascending order
var ComplexityLevels = []ComplexityLevel{
	ComplexityBeginner,
	ComplexityIntermediate,
	ComplexityAdvanced,
}

// EstimationConfidence describes how the LOC estimate was derived
type EstimationConfidence string

const (
	// ConfidenceNormal means the estimate came from the per-language byte breakdown
	ConfidenceNormal EstimationConfidence = "normal"
	// ConfidenceLow means the estimate was derived from the repository size
	ConfidenceLow EstimationConfidence = "low"
)

// LanguageShare is one language's byte count and share of a total
type LanguageShare struct {
	Name       string  `json:"name"`
	Bytes      int     `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// AnalyzedRepository is the output of a single repository analysis.
// A new analysis produces a new value; existing values are never patched.
type AnalyzedRepository struct {
	Name                 string               `json:"name"`
	FullName             string               `json:"full_name"`
	Description          *string              `json:"description"`
	URL                  string               `json:"url"`
	Homepage             *string              `json:"homepage"`
	Topics               []string             `json:"topics"`
	Stars                int                  `json:"stars"`
	Forks                int                  `json:"forks"`
	OpenIssues           int                  `json:"open_issues"`
	IsFork               bool                 `json:"is_fork"`
	Archived             bool                 `json:"archived"`
	License              *string              `json:"license"`
	CreatedAt            *time.Time           `json:"created_at"`
	LastPushed           *time.Time           `json:"last_pushed"`
	DaysSinceUpdate      int                  `json:"days_since_update"`
	PrimaryLanguages     []LanguageShare      `json:"primary_languages"`
	AllLanguages         LanguageMap          `json:"all_languages"`
	EstimatedLOC         int                  `json:"estimated_loc"`
	ComplexityLevel      ComplexityLevel      `json:"complexity_level"`
	CodeQualityScore     int                  `json:"code_quality_score"`
	EstimationConfidence EstimationConfidence `json:"estimation_confidence"`
}
