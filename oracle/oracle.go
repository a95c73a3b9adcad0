// Package oracle supplies sentiment labels for CleanItems that are
// missing one. The classifier model itself is out of scope (§1); this
// package defines the SentimentOracle boundary interface plus a
// lexicon-based heuristic fallback (§7 "Oracle failure") used when no
// real backend is configured, or when the real backend errors and
// sentiment.fallback_to_heuristic is on.
package oracle

import "context"

// Label is one of the three sentiment classes a record can carry
// (§2, legacy synonyms are normalized onto these before reaching the
// oracle).
type Label string

const (
	Bullish Label = "Bullish"
	Bearish Label = "Bearish"
	Neutral Label = "neutral"
)

// legacySynonyms maps alternate spellings observed in raw feeds onto
// the three canonical labels (§2 "with legacy synonyms mapped").
var legacySynonyms = map[string]Label{
	"bullish":  Bullish,
	"positive": Bullish,
	"bull":     Bullish,
	"bearish":  Bearish,
	"negative": Bearish,
	"bear":     Bearish,
	"neutral":  Neutral,
	"none":     Neutral,
}

// NormalizeLabel maps a raw sentiment string onto its canonical label.
// An empty or unrecognized input returns ok=false, meaning the item
// still needs an oracle lookup.
func NormalizeLabel(raw string) (Label, bool) {
	if raw == "" {
		return "", false
	}
	if l, ok := legacySynonyms[raw]; ok {
		return l, true
	}
	switch Label(raw) {
	case Bullish, Bearish, Neutral:
		return Label(raw), true
	}
	return "", false
}

// SentimentOracle is the abstract classifier boundary (§1, §7 Redesign
// Flags "singletons and process-wide predictor"). A real backend is
// injected by the caller at stage startup; nothing in this package
// assumes how Classify is implemented.
type SentimentOracle interface {
	// Classify returns one label per input text, same order, same
	// length. A partial-batch failure should still return a
	// best-effort slice; a total failure returns an error and the
	// caller falls back to the heuristic per §7.
	Classify(ctx context.Context, texts []string) ([]Label, error)
}
