// Package analytics implements the Analytics Engine (§4.3): on each
// clean_done event it reads clean_queue, fills missing sentiment
// labels via a SentimentOracle, computes trending keywords, a word
// cloud, per-keyword 24-point hourly history and a news feed, and
// emits one AnalyticsSnapshot.
package analytics

import (
	"strconv"
	"strings"
	"unicode"
)

// Tokenize lowercases, splits on every rune that is neither a letter
// nor a digit, keeps tokens of length >= 3, drops stop words and
// pure-digit tokens (§4.3.3).
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if isAllDigits(f) {
			continue
		}
		if stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isAllDigits(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
