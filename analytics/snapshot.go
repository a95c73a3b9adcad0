package analytics

import (
	"time"

	"github.com/marketpulse/pipeline/model"
)

// buildSnapshot assembles the full AnalyticsSnapshot from one pass's
// records and windows (§3, §4.3.7).
func buildSnapshot(records []*record, w windows, updateIntervalMinutes, trendingCount, wordCloudCount, newsFeedCount int) model.AnalyticsSnapshot {
	keywords := computeTrendingKeywords(records, w, trendingCount)

	trending := make([]model.TrendingKeyword, len(keywords))
	for i, kw := range keywords {
		trending[i] = model.TrendingKeyword{
			Rank:       i + 1,
			Keyword:    kw.keyword,
			Current:    kw.current,
			HistMean:   kw.histMean,
			Growth:     kw.growth,
			TrendScore: kw.trendScore,
			Sentiment: model.SentimentBreakdown{
				Positive:      kw.positive,
				Negative:      kw.negative,
				TotalComments: kw.totalComments,
			},
		}
	}

	return model.AnalyticsSnapshot{
		Metadata: model.SnapshotMetadata{
			UpdatedAt:             time.Now().UTC().Format(time.RFC3339),
			UpdateIntervalMinutes: updateIntervalMinutes,
			SourceCounts:          sourceCounts(records),
		},
		TrendingKeywords: trending,
		WordCloud:        computeWordCloud(records, w, wordCloudCount),
		History:          computeHistory(records, w, keywords),
		NewsFeed:         computeNewsFeed(records, newsFeedCount),
	}
}

func sourceCounts(records []*record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		if r.item.Source == "" {
			continue
		}
		counts[r.item.Source]++
	}
	return counts
}
