package clean

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketpulse/pipeline/model"
)

// normalize builds a CleanItem from a validated, non-duplicate RawItem
// (§4.2 step 7).
func normalize(r *model.RawItem, fp string, fpSource model.FingerprintSource, now time.Time) *model.CleanItem {
	id := fp
	if fpSource == model.FingerprintFromHash {
		// Neither a source id nor a URL were present; fingerprint is
		// a content hash, not a stable public id, so the item gets a
		// synthetic id instead (§4.2 step 7). A millisecond timestamp
		// alone can collide within one batch; uuid doesn't.
		id = fmt.Sprintf("generated_%s", uuid.NewString())
	}

	createdAt := now
	if t, ok := firstParsedTime(r); ok {
		createdAt = t
	}

	c := &model.CleanItem{
		ID:           id,
		CreatedAt:    model.FormatISOSeconds(createdAt),
		CleanedAt:    model.FormatISOMicros(time.Now()),
		Text:         model.NormalizeText(r.Text),
		Title:        model.NormalizeText(r.Title),
		Content:      model.NormalizeText(r.Content),
		Source:       string(r.Source),
		URL:          r.URL,
		Author:       r.Author,
		Sentiment:    r.Sentiment,
		Tags:         r.Tags,
		Subreddit:    r.Subreddit,
		Symbol:       r.Symbol,
		Symbols:      r.Symbols,
		TimestampSec: float64(createdAt.Unix()),
	}
	c.Score = toFloatPtr(r.Score)
	c.Comments = toFloatPtr(r.Comments)
	return c
}

// firstParsedTime tries the flexible-time fields in §4.2 step 7's
// documented order.
func firstParsedTime(r *model.RawItem) (time.Time, bool) {
	for _, v := range []interface{}{
		r.CreatedAt, r.CreatedUTC, r.Published, r.PublishedAt,
		r.Timestamp, r.Time, r.DateTime, r.Date,
	} {
		if t, ok := model.ParseFlexibleTime(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// toFloatPtr coerces a score/comments field (ingested as int/float/
// string) into the CleanItem's *float64 representation, or nil if
// absent/unparseable.
func toFloatPtr(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%f", &f); err == nil {
			return &f
		}
	}
	return nil
}
