package analytics

import (
	"sort"

	"github.com/marketpulse/pipeline/model"
)

// computeWordCloud implements §4.3.5: the top-N tokens by current-
// window frequency, descending (§8 I4).
func computeWordCloud(records []*record, w windows, n int) []model.WordCloudEntry {
	if n <= 0 {
		return []model.WordCloudEntry{}
	}
	freq := tokenFreq(records, w.inCurrentWindow)

	type pair struct {
		text  string
		value int
	}
	pairs := make([]pair, 0, len(freq))
	for text, value := range freq {
		pairs = append(pairs, pair{text, value})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value != pairs[j].value {
			return pairs[i].value > pairs[j].value
		}
		return pairs[i].text < pairs[j].text
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}

	out := make([]model.WordCloudEntry, len(pairs))
	for i, p := range pairs {
		out[i] = model.WordCloudEntry{Text: p.text, Value: p.value}
	}
	return out
}
