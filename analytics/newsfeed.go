package analytics

import (
	"math"
	"sort"

	"github.com/marketpulse/pipeline/model"
)

// computeNewsFeed implements §4.3.6: the L most recent records, each
// with a derived single-label sentiment computed from the same
// percentage breakdown as §4.3.3, restricted to records sharing that
// record's id.
func computeNewsFeed(records []*record, l int) []model.NewsFeedItem {
	if l <= 0 {
		return []model.NewsFeedItem{}
	}
	sorted := make([]*record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].createdAt.After(sorted[j].createdAt)
	})
	if len(sorted) > l {
		sorted = sorted[:l]
	}

	out := make([]model.NewsFeedItem, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, model.NewsFeedItem{
			Title:       title(r.item),
			PublishTime: model.FormatISOSeconds(r.createdAt),
			Source:      r.item.Source,
			URL:         r.item.URL,
			Sentiment:   derivedLabel(records, r.item.ID),
		})
	}
	return out
}

// title prefers Title, falling back to the full text field (§4.3.6
// "full text of the text field acceptable when no separate title").
func title(item *model.CleanItem) string {
	if item.Title != "" {
		return item.Title
	}
	return item.PrimaryText()
}

// derivedLabel groups records sharing id, applies the §4.3.3 breakdown
// math, and collapses the resulting percentages to a single label.
func derivedLabel(records []*record, id string) string {
	bullish, bearish, matched := 0, 0, 0
	for _, r := range records {
		if r.item.ID != id {
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
		return "neutral"
	}
	positive := math.Round(float64(bullish) / float64(matched) * 100)
	negative := 100 - positive
	switch {
	case positive > negative:
		return "positive"
	case negative > positive:
		return "negative"
	default:
		return "neutral"
	}
}
