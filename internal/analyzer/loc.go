// Package analyzer turns raw repository metadata and language byte counts into
// estimated lines of code, a complexity tier and a bounded quality score.
//
// Every function here is pure: no network access, and time only enters through
// the reference instant passed by the caller.
package analyzer

import "github.com/kurihiro0119/github-repo-analyzer/internal/domain"

// DefaultBytesPerLine is used for languages missing from bytesPerLine
const DefaultBytesPerLine = 40

// bytesPerLine approximates the average line length of each language
var bytesPerLine = map[string]int{
	"Python":     35,
	"JavaScript": 40,
	"TypeScript": 42,
	"Java":       50,
	"C":          45,
	"C++":        48,
	"Go":         38,
	"Rust":       42,
	"Ruby":       32,
	"PHP":        38,
	"Swift":      40,
	"Kotlin":     45,
	"Scala":      48,
	"HTML":       60,
	"CSS":        30,
	"Shell":      28,
}

// BytesPerLine returns the divisor used to convert a language's bytes to lines
func BytesPerLine(language string) int {
	if bpl, ok := bytesPerLine[language]; ok {
		return bpl
	}
	return DefaultBytesPerLine
}

// EstimateLOC converts per-language byte counts into an estimated line count.
// Each language is truncated separately before summing.
func EstimateLOC(languages domain.LanguageMap) int {
	total := 0
	for lang, bytes := range languages {
		if bytes <= 0 {
			continue
		}
		total += bytes / BytesPerLine(lang)
	}
	return total
}

// SizeBasedLanguages builds a single-language map from a repository's primary
// language and its reported size. It returns nil when the repository reports
// no primary language.
func SizeBasedLanguages(repo *domain.RawRepository) domain.LanguageMap {
	if repo.Language == "" {
		return nil
	}
	return domain.LanguageMap{repo.Language: max(1, repo.SizeKB) * 1024}
}
