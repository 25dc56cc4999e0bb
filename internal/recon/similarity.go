package recon

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// noiseTokens are payment-rail and company-suffix words that appear on
// most bank narrations and carry no merchant signal.
var noiseTokens = map[string]struct{}{
	"upi":     {},
	"pos":     {},
	"txn":     {},
	"imps":    {},
	"neft":    {},
	"rtgs":    {},
	"limited": {},
	"private": {},
	"ltd":     {},
}

const noisePhrase = "pay for intent"

// cleanTokens lower-cases s and splits it on whitespace, dropping noise
// tokens. Punctuation stays inside its token.
func cleanTokens(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), noisePhrase, " ")
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if _, noise := noiseTokens[f]; noise {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Similarity scores two descriptions in [0,1]. Any shared token scores
// 0.85 plus 0.05 per shared token (clamped to 1.0); otherwise the score is
// the normalized edit-distance ratio of the cleaned strings.
func Similarity(a, b string) float64 {
	ta, tb := cleanTokens(a), cleanTokens(b)
	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			shared++
			delete(set, t)
		}
	}
	if shared > 0 {
		return math.Min(1.0, 0.85+0.05*float64(shared))
	}
	return Ratio(strings.Join(ta, " "), strings.Join(tb, " "))
}

// Ratio is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Two empty strings score 0.
func Ratio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
