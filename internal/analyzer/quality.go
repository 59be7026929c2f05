package analyzer

import "github.com/kurihiro0119/github-repo-analyzer/internal/domain"

// MaxQualityScore is the upper bound of a quality score
const MaxQualityScore = 100

// Scoring weights
const (
	descriptionPoints   = 10
	pointsPerTopic      = 2
	maxTopicPoints      = 10
	licensePoints       = 10
	wikiOrPagesPoints   = 5
	maxCommunityPoints  = 15
	pointsPerLanguage   = 3
	maxLanguagePoints   = 10
	sweetSpotSizePoints = 20
	nearSizePoints      = 10
	anySizePoints       = 5
)

// QualityInput collects the values the quality score is derived from
type QualityInput struct {
	Repo            *domain.RawRepository
	LOC             int
	LanguageCount   int
	DaysSinceUpdate int
}

// QualityScore sums independent documentation, community, size, diversity and
// recency components and caps the result at MaxQualityScore.
func QualityScore(in QualityInput) int {
	score := 0
	repo := in.Repo

	if repo.Description != nil && *repo.Description != "" {
		score += descriptionPoints
	}
	score += min(len(repo.Topics)*pointsPerTopic, maxTopicPoints)
	if repo.License != nil && *repo.License != "" {
		score += licensePoints
	}
	if repo.HasWiki || repo.HasPages {
		score += wikiOrPagesPoints
	}

	score += communityPoints(repo.Stars, repo.Forks)
	score += sizePoints(in.LOC)
	score += min(in.LanguageCount*pointsPerLanguage, maxLanguagePoints)
	score += recencyPoints(in.DaysSinceUpdate)

	return max(0, min(score, MaxQualityScore))
}

// communityPoints rewards stars and, doubly, forks
func communityPoints(stars, forks int) int {
	signal := (max(0, stars) + max(0, forks)*2) * 2
	if signal < 0 || signal > maxCommunityPoints {
		return maxCommunityPoints
	}
	return signal
}

// sizePoints favours the 500-20000 LOC band
func sizePoints(loc int) int {
	switch {
	case loc >= 500 && loc <= 20_000:
		return sweetSpotSizePoints
	case (loc >= 100 && loc < 500) || (loc > 20_000 && loc <= 50_000):
		return nearSizePoints
	case loc > 0:
		return anySizePoints
	}
	return 0
}

func recencyPoints(days int) int {
	switch {
	case days <= 30:
		return 20
	case days <= 90:
		return 14
	case days <= 365:
		return 7
	}
	return 0
}
