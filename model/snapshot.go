package model

// SnapshotMetadata is the wall-clock stamp and source-count summary
// attached to every AnalyticsSnapshot (§3, §4.3.7).
type SnapshotMetadata struct {
	UpdatedAt            string         `json:"updated_at"`
	UpdateIntervalMinutes int           `json:"update_interval_minutes"`
	SourceCounts          map[string]int `json:"source_counts"`
}

// SentimentBreakdown reports the Bullish/Bearish percentage split over
// the records matching a keyword or a news-feed item (§4.3.3, §4.3.6).
type SentimentBreakdown struct {
	Positive      float64 `json:"positive"`
	Negative      float64 `json:"negative"`
	TotalComments int     `json:"total_comments"`
}

// TrendingKeyword is one ranked entry of trending_keywords (§4.3.3).
type TrendingKeyword struct {
	Rank       int                `json:"rank"`
	Keyword    string             `json:"keyword"`
	Current    int                `json:"current_frequency"`
	HistMean   float64            `json:"historical_mean"`
	Growth     float64            `json:"growth_rate_pct"`
	TrendScore float64            `json:"trend_score"`
	Sentiment  SentimentBreakdown `json:"sentiment"`
}

// WordCloudEntry is one entry of word_cloud (§4.3.5).
type WordCloudEntry struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// HistoryPoint is one hourly bucket of a keyword's history series
// (§4.3.4). A keyword's series always has exactly 24 points (I3).
type HistoryPoint struct {
	Timestamp string `json:"timestamp"`
	Frequency int    `json:"frequency"`
}

// NewsFeedItem is one entry of news_feed (§4.3.6).
type NewsFeedItem struct {
	Title       string `json:"title"`
	PublishTime string `json:"publish_time"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Sentiment   string `json:"sentiment"` // positive/neutral/negative
}

// AnalyticsSnapshot is the full output of one analysis pass (§3). Each
// section is serialized independently under its own store key; History
// is serialized per-keyword under history:<keyword>.
type AnalyticsSnapshot struct {
	Metadata         SnapshotMetadata            `json:"metadata"`
	TrendingKeywords []TrendingKeyword           `json:"trending_keywords"`
	WordCloud        []WordCloudEntry            `json:"word_cloud"`
	History          map[string][]HistoryPoint   `json:"history_data"`
	NewsFeed         []NewsFeedItem              `json:"news_feed"`
}

// Notification is the pub/sub payload published on stage completion
// (§3, §6.3). Statistics is stage-specific and left untyped so
// forward-compat fields are ignored by consumers rather than rejected.
type Notification struct {
	Event      string                 `json:"event"`
	Timestamp  string                 `json:"timestamp"`
	Statistics map[string]interface{} `json:"statistics"`
}
