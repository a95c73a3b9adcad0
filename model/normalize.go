package model

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeText strips HTML tags, collapses whitespace runs to single
// spaces, and trims the result (§4.2 step 7).
func NormalizeText(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
