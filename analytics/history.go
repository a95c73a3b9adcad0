package analytics

import "github.com/marketpulse/pipeline/model"

// computeHistory implements §4.3.4: for each of the top-K keywords,
// count matching records per hourly bucket across the full 24-slot
// historical window. The result always has exactly 24 points per
// keyword (§8 I3), regardless of how sparse the data is.
func computeHistory(records []*record, w windows, keywords []trendingKeyword) map[string][]model.HistoryPoint {
	out := make(map[string][]model.HistoryPoint, len(keywords))
	for _, kw := range keywords {
		counts := [historySlots]int{}
		for _, r := range records {
			if !w.inHistoryWindow(r) {
				continue
			}
			if !containsToken(r.tokens, kw.keyword) {
				continue
			}
			idx := w.bucketOf(r)
			if idx >= 0 {
				counts[idx]++
			}
		}
		points := make([]model.HistoryPoint, historySlots)
		for i := 0; i < historySlots; i++ {
			points[i] = model.HistoryPoint{
				Timestamp: model.FormatISOSeconds(w.bucketStarts[i]),
				Frequency: counts[i],
			}
		}
		out[kw.keyword] = points
	}
	return out
}

func containsToken(tokens []string, target string) bool {
	for _, t := range tokens {
		if t == target {
			return true
		}
	}
	return false
}
