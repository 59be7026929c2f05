package analyzer

import (
	"math"
	"sort"
	"time"

	"github.com/kurihiro0119/github-repo-analyzer/internal/domain"
)

const (
	// UnknownDaysSinceUpdate is reported when a repository has no usable activity date
	UnknownDaysSinceUpdate = 9999
	// PrimaryLanguageCount is how many languages are listed per repository
	PrimaryLanguageCount = 3
)

// Options tunes a repository analysis
type Options struct {
	// EstimateFromSize substitutes a size-based language map when the
	// repository has no language breakdown but reports a primary language.
	// Such results are flagged with domain.ConfidenceLow.
	EstimateFromSize bool
}

// AnalyzeRepository derives the normalized summary of one repository. now is
// the reference instant for recency and should be captured once per run.
func AnalyzeRepository(repo *domain.RawRepository, languages domain.LanguageMap, now time.Time, opts Options) domain.AnalyzedRepository {
	confidence := domain.ConfidenceNormal
	if len(languages) == 0 && opts.EstimateFromSize {
		if guessed := SizeBasedLanguages(repo); guessed != nil {
			languages = guessed
			confidence = domain.ConfidenceLow
		}
	}
	if languages == nil {
		languages = domain.LanguageMap{}
	}

	loc := EstimateLOC(languages)
	days := DaysSince(repo.LastActivity(), now)
	level := ClassifyComplexity(loc, AverageComplexityWeight(languages))
	score := QualityScore(QualityInput{
		Repo:            repo,
		LOC:             loc,
		LanguageCount:   len(languages),
		DaysSinceUpdate: days,
	})

	topics := repo.Topics
	if topics == nil {
		topics = []string{}
	}

	return domain.AnalyzedRepository{
		Name:                 repo.Name,
		FullName:             repo.FullName,
		Description:          nonEmpty(repo.Description),
		URL:                  repo.URL,
		Homepage:             nonEmpty(repo.Homepage),
		Topics:               topics,
		Stars:                repo.Stars,
		Forks:                repo.Forks,
		OpenIssues:           repo.OpenIssues,
		IsFork:               repo.IsFork,
		Archived:             repo.Archived,
		License:              nonEmpty(repo.License),
		CreatedAt:            repo.CreatedAt,
		LastPushed:           repo.PushedAt,
		DaysSinceUpdate:      days,
		PrimaryLanguages:     RankLanguages(languages, PrimaryLanguageCount),
		AllLanguages:         languages,
		EstimatedLOC:         loc,
		ComplexityLevel:      level,
		CodeQualityScore:     score,
		EstimationConfidence: confidence,
	}
}

// DaysSince returns the whole days elapsed between t and now. Missing dates
// yield UnknownDaysSinceUpdate; dates in the future yield 0.
func DaysSince(t *time.Time, now time.Time) int {
	if t == nil || t.IsZero() {
		return UnknownDaysSinceUpdate
	}
	elapsed := now.Sub(*t)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// RankLanguages sorts a language map by bytes descending (name ascending on
// ties) and returns at most limit entries, each with its percentage of the
// map's own byte total. A non-positive limit returns every language.
func RankLanguages(languages domain.LanguageMap, limit int) []domain.LanguageShare {
	total := languages.TotalBytes()
	if total <= 0 {
		total = 1
	}

	shares := make([]domain.LanguageShare, 0, len(languages))
	for name, bytes := range languages {
		shares = append(shares, domain.LanguageShare{Name: name, Bytes: bytes})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Bytes != shares[j].Bytes {
			return shares[i].Bytes > shares[j].Bytes
		}
		return shares[i].Name < shares[j].Name
	})

	if limit > 0 && len(shares) > limit {
		shares = shares[:limit]
	}
	for i := range shares {
		shares[i].Percentage = RoundTenth(float64(shares[i].Bytes) / float64(total) * 100)
	}
	return shares
}

// RoundTenth rounds to one decimal place, halves away from zero
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
