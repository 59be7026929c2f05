package analyzer

import "github.com/kurihiro0119/github-repo-analyzer/internal/domain"

// DefaultComplexityWeight applies to unknown languages and to repositories
// with no languages at all
const DefaultComplexityWeight = 3.0

const (
	beginnerMaxLOC        = 300
	beginnerMaxWeight     = 4.0
	intermediateMaxLOC    = 2000
	intermediateMaxWeight = 6.0
)

// complexityWeights rates languages by typical complexity / ecosystem depth
var complexityWeights = map[string]float64{
	"Assembly":   10,
	"C":          9,
	"C++":        9,
	"Rust":       9,
	"Haskell":    9,
	"Scala":      8,
	"Go":         7,
	"Java":       7,
	"Kotlin":     7,
	"Swift":      7,
	"TypeScript": 6,
	"Python":     6,
	"Ruby":       5,
	"JavaScript": 5,
	"PHP":        4,
	"Dart":       4,
	"Lua":        4,
	"Shell":      3,
	"HTML":       2,
	"CSS":        2,
	"Dockerfile": 2,
}

// ComplexityWeight returns the weight of a single language
func ComplexityWeight(language string) float64 {
	if w, ok := complexityWeights[language]; ok {
		return w
	}
	return DefaultComplexityWeight
}

// AverageComplexityWeight returns the arithmetic mean of the weights of every
// language in the map
func AverageComplexityWeight(languages domain.LanguageMap) float64 {
	if len(languages) == 0 {
		return DefaultComplexityWeight
	}
	sum := 0.0
	for lang := range languages {
		sum += ComplexityWeight(lang)
	}
	return sum / float64(len(languages))
}

// ClassifyComplexity assigns a tier from the estimated LOC and the average
// language weight. Rules are checked in order; the first match wins.
func ClassifyComplexity(loc int, avgWeight float64) domain.ComplexityLevel {
	if loc < beginnerMaxLOC && avgWeight < beginnerMaxWeight {
		return domain.ComplexityBeginner
	}
	if loc < intermediateMaxLOC && avgWeight < intermediateMaxWeight {
		return domain.ComplexityIntermediate
	}
	return domain.ComplexityAdvanced
}
