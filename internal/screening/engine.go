// Package screening implements the deterministic keyword/regex pre-screen
// that gates the expensive oracle call. Scoring is pure and synchronous.
package screening

import (
	"strings"

	"github.com/svcaudit/vigil/internal/rules"
)

// Scoring is done in tenths so boundary sums are exact: a keyword is worth
// 1 tenth (0.1), a pattern 2 tenths (0.2), and the gate sits at 3 tenths
// (0.3, strict). A single keyword in a weight-1.0 category stays under the
// gate; two keywords or one pattern alone does too.
const (
	keywordTenths = 1
	patternTenths = 2
	gateTenths    = 3
)

// CategoryMatch records what a single category contributed.
type CategoryMatch struct {
	Keywords  []string
	Patterns  []string
	Score     float64
	RiskLevel string
	Excluded  bool
}

// Result is the outcome of screening one transcript.
type Result struct {
	Suspicious        bool
	ConfidenceScore   float64
	TotalScore        float64
	MatchedCategories []string
	// Details holds per-category match data keyed by category. Excluded
	// categories appear here with a zero score for diagnostics but never
	// in MatchedCategories.
	Details map[string]CategoryMatch
}

// HasCategory reports whether key is among the matched (non-excluded)
// categories.
func (r *Result) HasCategory(key string) bool {
	for _, c := range r.MatchedCategories {
		if c == key {
			return true
		}
	}
	return false
}

// Screen scores the transcript against every category. Per category: an
// exclusion hit zeroes the category outright (recorded for debuggability);
// otherwise each keyword found adds 0.1 and each pattern match adds 0.2,
// the sum is multiplied by the category weight and folded into the total.
// The gate requires total > 0.3 (strict) and at least one matched category.
func Screen(transcript string, cats []rules.Category) *Result {
	res := &Result{Details: make(map[string]CategoryMatch)}

	totalTenths := 0.0
	for _, cat := range cats {
		excluded := false
		for _, excl := range cat.Exclusions {
			if excl.Regexp.MatchString(transcript) {
				excluded = true
				break
			}
		}

		var matchedKeywords, matchedPatterns []string
		raw := 0
		if !excluded {
			for _, kw := range cat.Keywords {
				if containsKeyword(transcript, kw) {
					matchedKeywords = append(matchedKeywords, kw)
					raw += keywordTenths
				}
			}
			for _, p := range cat.Patterns {
				if p.Regexp.MatchString(transcript) {
					matchedPatterns = append(matchedPatterns, p.Source)
					raw += patternTenths
				}
			}
		} else {
			// Still evaluate matchers so the exclusion decision is
			// auditable: the hits are logged at zero score.
			for _, kw := range cat.Keywords {
				if containsKeyword(transcript, kw) {
					matchedKeywords = append(matchedKeywords, kw)
				}
			}
			for _, p := range cat.Patterns {
				if p.Regexp.MatchString(transcript) {
					matchedPatterns = append(matchedPatterns, p.Source)
				}
			}
		}

		if len(matchedKeywords) == 0 && len(matchedPatterns) == 0 {
			continue
		}

		if excluded {
			res.Details[cat.Key] = CategoryMatch{
				Keywords:  matchedKeywords,
				Patterns:  matchedPatterns,
				Score:     0,
				RiskLevel: cat.RiskLevel,
				Excluded:  true,
			}
			continue
		}

		weightedTenths := float64(raw) * cat.Weight
		totalTenths += weightedTenths
		res.MatchedCategories = append(res.MatchedCategories, cat.Key)
		res.Details[cat.Key] = CategoryMatch{
			Keywords:  matchedKeywords,
			Patterns:  matchedPatterns,
			Score:     weightedTenths / 10,
			RiskLevel: cat.RiskLevel,
		}
	}

	res.TotalScore = totalTenths / 10
	res.Suspicious = totalTenths > gateTenths && len(res.MatchedCategories) > 0
	res.ConfidenceScore = res.TotalScore
	if res.ConfidenceScore > 1.0 {
		res.ConfidenceScore = 1.0
	}

	return res
}

func containsKeyword(transcript, kw string) bool {
	return kw != "" && strings.Contains(transcript, kw)
}
