// Package model defines the wire records that flow through the pipeline's
// queues: RawItem (scrape output), CleanItem (clean output), the
// AnalyticsSnapshot (analyze output) and the Notification envelope used
// on the pub/sub plane.
package model

import (
	"time"

	json "github.com/goccy/go-json"
)

// Source tags a RawItem's origin crawler. The crawlers themselves are
// external collaborators; only the tag travels through the pipeline.
type Source string

const (
	SourceRedditPost    Source = "reddit_post"
	SourceRedditComment Source = "reddit_comment"
	SourceRSS           Source = "rss"
	SourceNewsAPI       Source = "newsapi"
	SourceStockTwits    Source = "stocktwits"
	SourceAlphaVantage  Source = "alphavantage"
	SourceTwitter       Source = "twitter"
)

// RawItem is a crawler's contribution, appended to the head of
// raw_queue. Field presence varies by source; Extra carries whatever
// metadata a source attaches that isn't one of the named fields.
type RawItem struct {
	Source Source `json:"source"`

	// Origin-native identifiers. At most one is normally populated,
	// but all are accepted — Fingerprint() picks the first present.
	ID        string `json:"id,omitempty"`
	PostID    string `json:"post_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	TweetID   string `json:"tweet_id,omitempty"`
	GUID      string `json:"guid,omitempty"`
	MessageID string `json:"message_id,omitempty"`

	// Free text payload.
	Text    string `json:"text,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	// Publication instant, in whichever of these fields the source
	// populates. Accepted as UNIX seconds or ISO-8601 (with or
	// without a trailing Z) — see ParseTimestamp.
	CreatedAt   interface{} `json:"created_at,omitempty"`
	CreatedUTC  interface{} `json:"created_utc,omitempty"`
	Published   interface{} `json:"published,omitempty"`
	PublishedAt interface{} `json:"published_at,omitempty"`
	Timestamp   interface{} `json:"timestamp,omitempty"`
	Time        interface{} `json:"time,omitempty"`
	DateTime    interface{} `json:"datetime,omitempty"`
	Date        interface{} `json:"date,omitempty"`

	URL       string      `json:"url,omitempty"`
	Author    string      `json:"author,omitempty"`
	Score     interface{} `json:"score,omitempty"`
	Comments  interface{} `json:"comments,omitempty"`
	Sentiment string      `json:"sentiment,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Subreddit string      `json:"subreddit,omitempty"`
	Symbol    string      `json:"symbol,omitempty"`
	Symbols   []string    `json:"symbols,omitempty"`
}

// allowedCleanMeta is the curated allow-list of metadata the cleaner
// passes through into a CleanItem (§4.2 step 7).
var allowedCleanMeta = []string{
	"source", "url", "author", "score", "comments", "sentiment",
	"tags", "subreddit", "symbol", "symbols",
}

// CleanItem is a RawItem after normalization (§3). Required fields are
// ID, CreatedAt, CleanedAt and at least one non-empty text field.
type CleanItem struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"` // ISO-8601 UTC, second precision, trailing Z
	CleanedAt string `json:"cleaned_at"` // ISO-8601 local wall time, microsecond precision

	Text    string `json:"text,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	Source    string   `json:"source,omitempty"`
	URL       string   `json:"url,omitempty"`
	Author    string   `json:"author,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Comments  *float64 `json:"comments,omitempty"`
	Sentiment string   `json:"sentiment,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Subreddit string   `json:"subreddit,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Symbols   []string `json:"symbols,omitempty"`

	// Timestamp carries the same instant as CreatedAt as a UNIX-seconds
	// float (§9 open question on the dual-field convention). Analytics
	// falls back to it when CreatedAt does not parse; the clean_queue
	// age trim reads CreatedAt, not this field.
	TimestampSec float64 `json:"timestamp"`
}

// NonEmptyText reports whether the item carries at least one non-empty
// text field, the cleaner's validation invariant.
func (c *CleanItem) NonEmptyText() bool {
	return c.Text != "" || c.Title != "" || c.Content != ""
}

// PrimaryText returns the first non-empty of Text/Content/Title, the
// field the analytics engine tokenizes and substring-matches against.
func (c *CleanItem) PrimaryText() string {
	if c.Text != "" {
		return c.Text
	}
	if c.Content != "" {
		return c.Content
	}
	return c.Title
}

// CreatedAtTime parses CreatedAt, which the cleaner always stamps as a
// valid RFC3339 UTC string; analytics relies on that invariant.
func (c *CleanItem) CreatedAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, c.CreatedAt)
}

// MarshalJSON / queue (de)serialization helpers use goccy/go-json
// since every queue record is encoded and decoded on every pass.
func EncodeRaw(r *RawItem) ([]byte, error)   { return json.Marshal(r) }
func DecodeRaw(b []byte) (*RawItem, error) {
	var r RawItem
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func EncodeClean(c *CleanItem) ([]byte, error) { return json.Marshal(c) }
func DecodeClean(b []byte) (*CleanItem, error) {
	var c CleanItem
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// AllowedCleanMeta exposes the curated metadata allow-list for callers
// that need to know which fields survive normalization.
func AllowedCleanMeta() []string {
	out := make([]string, len(allowedCleanMeta))
	copy(out, allowedCleanMeta)
	return out
}
