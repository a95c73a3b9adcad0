package analytics

import (
	"time"

	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/oracle"
)

// record is one clean_queue entry, decoded once and reused across
// every §4.3 computation in a pass.
type record struct {
	item      *model.CleanItem
	createdAt time.Time
	tokens    []string
	sentiment oracle.Label
	hasLabel  bool
}

// ingest reads clean_queue by full index range (non-destructively)
// and decodes each entry into a record, skipping unparseable JSON
// (§4.3 "Data ingress").
func ingest(raw []string) []*record {
	out := make([]*record, 0, len(raw))
	for _, line := range raw {
		item, err := model.DecodeClean([]byte(line))
		if err != nil {
			continue
		}
		createdAt, err := item.CreatedAtTime()
		if err != nil {
			createdAt = time.Unix(int64(item.TimestampSec), 0).UTC()
		}
		r := &record{
			item:      item,
			createdAt: createdAt,
			tokens:    Tokenize(item.PrimaryText()),
		}
		if label, ok := oracle.NormalizeLabel(item.Sentiment); ok {
			r.sentiment = label
			r.hasLabel = true
		}
		out = append(out, r)
	}
	return out
}
