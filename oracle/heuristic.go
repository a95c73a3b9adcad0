package oracle

import (
	"context"
	"strings"
)

// bullishWords/bearishWords are a small curated lexicon for the
// fallback heuristic (§7 "substitute the lexicon-based heuristic
// (bullish/bearish keyword counts) per-item").
var bullishWords = []string{
	"buy", "bull", "bullish", "calls", "moon", "long", "breakout",
	"upgrade", "beat", "rally", "surge", "soar", "outperform", "growth",
	"record high", "undervalued", "accumulate",
}

var bearishWords = []string{
	"sell", "bear", "bearish", "puts", "short", "crash", "breakdown",
	"downgrade", "miss", "plunge", "slump", "selloff", "underperform",
	"decline", "record low", "overvalued", "bankruptcy",
}

// Heuristic is a zero-dependency SentimentOracle used when sentiment
// is disabled for a real backend, or as the documented fallback on
// oracle failure (§7). It counts lexicon hits, case-insensitively,
// and breaks ties toward Neutral.
type Heuristic struct{}

// Classify never returns an error; it always has an answer.
func (Heuristic) Classify(_ context.Context, texts []string) ([]Label, error) {
	labels := make([]Label, len(texts))
	for i, t := range texts {
		labels[i] = score(t)
	}
	return labels, nil
}

func score(text string) Label {
	lower := strings.ToLower(text)
	bull, bear := 0, 0
	for _, w := range bullishWords {
		bull += strings.Count(lower, w)
	}
	for _, w := range bearishWords {
		bear += strings.Count(lower, w)
	}
	switch {
	case bull > bear:
		return Bullish
	case bear > bull:
		return Bearish
	default:
		return Neutral
	}
}
