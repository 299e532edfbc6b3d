// Package merge reconciles the deterministic screening evidence with the
// LLM verdict into one final judgement.
package merge

import (
	"strings"
	"unicode"
)

// Sentence pairs at or below this similarity are considered unrelated.
const similarityThreshold = 0.3

// Similarity scores two sentences in [0,1]. Exact match and containment
// short-circuit; otherwise the score blends token overlap with length
// ratio so a shared phrase in wildly different sentences does not score
// as near-identity.
func Similarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	ta := tokens(a)
	tb := tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	jaccard := float64(inter) / float64(union)

	la, lb := len([]rune(a)), len([]rune(b))
	ratio := float64(min(la, lb)) / float64(max(la, lb))

	return 0.7*jaccard + 0.3*ratio
}

// tokens splits a sentence into comparable units. Chinese has no word
// boundaries, so each Han character is its own token; runs of letters and
// digits form one token each.
func tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			set[strings.ToLower(word.String())] = struct{}{}
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			set[string(r)] = struct{}{}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return set
}
