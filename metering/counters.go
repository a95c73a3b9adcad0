// Package metering tracks per-pass statistics for each stage: the
// processed/cleaned/duplicate/invalid counters the cleaner publishes
// in its completion notification (§4.2, I1), and the keywords/
// history_count counters the analytics engine publishes (§4.3.7).
// Counts accumulate atomically over the life of one pipeline pass,
// then are read out once via Snapshot at publish time.
package metering

import "sync/atomic"

// CleanCounters accumulates one Clean pass's counters (§8 I1:
// processed == cleaned + duplicate + invalid).
type CleanCounters struct {
	processed int64
	cleaned   int64
	duplicate int64
	invalid   int64
}

func (c *CleanCounters) IncProcessed() { atomic.AddInt64(&c.processed, 1) }
func (c *CleanCounters) IncCleaned()   { atomic.AddInt64(&c.cleaned, 1) }
func (c *CleanCounters) IncDuplicate() { atomic.AddInt64(&c.duplicate, 1) }
func (c *CleanCounters) IncInvalid()   { atomic.AddInt64(&c.invalid, 1) }

// CleanSnapshot is the read-only view of CleanCounters used for log
// lines and notification statistics.
type CleanSnapshot struct {
	Processed int64 `json:"processed"`
	Cleaned   int64 `json:"cleaned"`
	Duplicate int64 `json:"duplicate"`
	Invalid   int64 `json:"invalid"`
}

// Snapshot reads the current counter values.
func (c *CleanCounters) Snapshot() CleanSnapshot {
	return CleanSnapshot{
		Processed: atomic.LoadInt64(&c.processed),
		Cleaned:   atomic.LoadInt64(&c.cleaned),
		Duplicate: atomic.LoadInt64(&c.duplicate),
		Invalid:   atomic.LoadInt64(&c.invalid),
	}
}

// AsMap renders the snapshot for a Notification's Statistics field.
func (s CleanSnapshot) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"processed": s.Processed,
		"cleaned":   s.Cleaned,
		"duplicate": s.Duplicate,
		"invalid":   s.Invalid,
	}
}

// AnalyticsCounters accumulates one Analyze pass's counters (§4.3.7:
// "keywords_count, history_count").
type AnalyticsCounters struct {
	keywords int64
	history  int64
}

func (a *AnalyticsCounters) SetKeywords(n int) { atomic.StoreInt64(&a.keywords, int64(n)) }
func (a *AnalyticsCounters) SetHistory(n int)  { atomic.StoreInt64(&a.history, int64(n)) }

// AnalyticsSnapshot is the read-only view used for log lines and
// notification statistics.
type AnalyticsSnapshot struct {
	KeywordsCount int64 `json:"keywords_count"`
	HistoryCount  int64 `json:"history_count"`
}

func (a *AnalyticsCounters) Snapshot() AnalyticsSnapshot {
	return AnalyticsSnapshot{
		KeywordsCount: atomic.LoadInt64(&a.keywords),
		HistoryCount:  atomic.LoadInt64(&a.history),
	}
}

func (s AnalyticsSnapshot) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"keywords_count": s.KeywordsCount,
		"history_count":  s.HistoryCount,
	}
}
