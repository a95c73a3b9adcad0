package analytics

import (
	"math"
	"sort"
	"strings"
)

// historicalMeanDivisor is intentional and documented (§4.3.3): 48
// represents 30-minute sub-buckets in the source's legacy design,
// retained here for compatibility even though this engine's history
// window is expressed in 1-hour buckets.
const historicalMeanDivisor = 48.0

// tokenFreq counts token occurrences across a set of records.
func tokenFreq(records []*record, include func(*record) bool) map[string]int {
	freq := make(map[string]int)
	for _, r := range records {
		if !include(r) {
			continue
		}
		for _, tok := range r.tokens {
			freq[tok]++
		}
	}
	return freq
}

// TrendingKeyword is the computed per-keyword row before JSON shaping
// (model.TrendingKeyword carries the serialized form).
type trendingKeyword struct {
	keyword    string
	current    int
	histMean   float64
	growth     float64
	trendScore float64
	positive   float64
	negative   float64
	totalComments int
}

// computeTrendingKeywords implements §4.3.3 in full: current
// frequency, historical mean, growth rate, trend score and per-keyword
// sentiment breakdown, ranked by trend score descending, top K.
func computeTrendingKeywords(records []*record, w windows, k int) []trendingKeyword {
	currentFreq := tokenFreq(records, w.inCurrentWindow)
	if k <= 0 || len(currentFreq) == 0 {
		return nil
	}

	type candidate struct {
		keyword string
		current int
	}
	candidates := make([]candidate, 0, len(currentFreq))
	for kw, n := range currentFreq {
		candidates = append(candidates, candidate{kw, n})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].current != candidates[j].current {
			return candidates[i].current > candidates[j].current
		}
		return candidates[i].keyword < candidates[j].keyword
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	historyFreq := tokenFreq(records, w.inHistoryWindow)

	maxCurrent := 0
	for _, c := range candidates {
		if c.current > maxCurrent {
			maxCurrent = c.current
		}
	}
	if maxCurrent == 0 {
		maxCurrent = 1
	}

	out := make([]trendingKeyword, 0, len(candidates))
	for _, c := range candidates {
		histMean := float64(historyFreq[c.keyword]) / historicalMeanDivisor
		growth := growthRate(float64(c.current), histMean)
		trendScore := trendScore(c.current, maxCurrent, growth)
		positive, negative, total := sentimentBreakdown(records, c.keyword)

		out = append(out, trendingKeyword{
			keyword:       c.keyword,
			current:       c.current,
			histMean:      histMean,
			growth:        growth,
			trendScore:    trendScore,
			positive:      positive,
			negative:      negative,
			totalComments: total,
		})
	}

	// Final rank is by trend score descending (dense 1..K, §8 I5).
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].trendScore > out[j].trendScore
	})
	return out
}

// growthRate implements §4.3.3's special cases.
func growthRate(current, histMean float64) float64 {
	if histMean == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - histMean) / histMean * 100
}

// trendScore implements §4.3.3's weighted formula, rounded to 2
// decimals.
func trendScore(current, maxCurrent int, growth float64) float64 {
	score := 0.6*(float64(current)/float64(maxCurrent)) + 0.4*math.Min(math.Abs(growth)/100, 1)
	return math.Round(score*100) / 100
}

// sentimentBreakdown computes the percentage breakdown for keyword
// over every record whose cleaned text contains it as a case-
// insensitive substring (§4.3.3).
func sentimentBreakdown(records []*record, keyword string) (positive, negative float64, total int) {
	bullish, bearish, matched := 0, 0, 0
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.item.PrimaryText()), keyword) {
			continue
		}
		matched++
		switch r.sentiment {
		case "Bullish":
			bullish++
		case "Bearish":
			bearish++
		}
	}
	if matched == 0 {
		return 0, 0, 0
	}
	positive = math.Round(float64(bullish) / float64(matched) * 100)
	negative = 100 - positive
	return positive, negative, matched
}
