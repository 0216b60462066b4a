package service

import (
	"math"
	"strings"
	"unicode"
)

// WordAccuracy is the result of comparing a transcript with a passage.
type WordAccuracy struct {
	Accuracy     float64 `json:"accuracy"`
	WordsMatched int     `json:"words_matched"`
	WordsTotal   int     `json:"words_total"`
}

// tokenizeWords lowercases text and splits it on anything that is not a letter or digit.
func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// scoreTranscript counts passage words read in order (longest common
// subsequence over words) and reports them as a percentage of the passage.
func scoreTranscript(passage, transcript string) WordAccuracy {
	expected := tokenizeWords(passage)
	spoken := tokenizeWords(transcript)

	result := WordAccuracy{WordsTotal: len(expected)}
	if len(expected) == 0 || len(spoken) == 0 {
		return result
	}

	result.WordsMatched = lcsLength(expected, spoken)
	result.Accuracy = roundTo(float64(result.WordsMatched)/float64(result.WordsTotal)*100, 2)
	return result
}

// lcsLength uses two rolling rows, so memory is O(len(b)).
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// percentage returns score/total*100 rounded to two places, 0 for an empty total.
func percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return roundTo(float64(score)/float64(total)*100, 2)
}

// roundTo rounds v half away from zero.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
