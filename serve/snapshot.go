// Package serve implements the Read API (§4.5): a chi router exposing
// GET snapshot / GET section/<name>, and a websocket hub for PUSH
// subscribe(channels). It is pure-read with respect to DB-ANALYTICS —
// no handler in this package ever writes a store key.
package serve

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/store"
)

// Key names fixed by §6.1 — the Analytics Engine (analytics/engine.go)
// writes these same literals.
const (
	metadataKey   = "processed_data:metadata"
	trendingKey   = "processed_data:trending_keywords"
	wordCloudKey  = "processed_data:word_cloud"
	newsFeedKey   = "processed_data:news_feed"
	historyPrefix = "processed_data:history_data:"
)

// sectionNames is the fixed set §4.5 allows for GET section/<name>.
var sectionNames = map[string]bool{
	"trending_keywords": true,
	"word_cloud":        true,
	"news_feed":         true,
	"history_data":      true,
	"metadata":          true,
	"all":               true,
}

// ErrUnknownSection is returned by FetchSection for any name outside §4.5's
// fixed set.
var ErrUnknownSection = fmt.Errorf("unknown section")

// FetchSnapshot assembles the full AnalyticsSnapshot, substituting each
// section's empty-shape default when its key is absent (§4.5).
func FetchSnapshot(ctx context.Context, st *store.Store) (model.AnalyticsSnapshot, error) {
	snapshot := model.AnalyticsSnapshot{
		Metadata:         model.SnapshotMetadata{SourceCounts: map[string]int{}},
		TrendingKeywords: []model.TrendingKeyword{},
		WordCloud:        []model.WordCloudEntry{},
		NewsFeed:         []model.NewsFeedItem{},
		History:          map[string][]model.HistoryPoint{},
	}

	if raw, ok, err := st.GetJSON(ctx, metadataKey); err != nil {
		return snapshot, err
	} else if ok {
		if err := json.Unmarshal(raw, &snapshot.Metadata); err != nil {
			return snapshot, fmt.Errorf("decode metadata: %w", err)
		}
	}

	if raw, ok, err := st.GetJSON(ctx, trendingKey); err != nil {
		return snapshot, err
	} else if ok {
		if err := json.Unmarshal(raw, &snapshot.TrendingKeywords); err != nil {
			return snapshot, fmt.Errorf("decode trending_keywords: %w", err)
		}
	}

	if raw, ok, err := st.GetJSON(ctx, wordCloudKey); err != nil {
		return snapshot, err
	} else if ok {
		if err := json.Unmarshal(raw, &snapshot.WordCloud); err != nil {
			return snapshot, fmt.Errorf("decode word_cloud: %w", err)
		}
	}

	if raw, ok, err := st.GetJSON(ctx, newsFeedKey); err != nil {
		return snapshot, err
	} else if ok {
		if err := json.Unmarshal(raw, &snapshot.NewsFeed); err != nil {
			return snapshot, fmt.Errorf("decode news_feed: %w", err)
		}
	}

	history, err := fetchHistory(ctx, st)
	if err != nil {
		return snapshot, err
	}
	snapshot.History = history

	return snapshot, nil
}

// FetchSection returns the decoded payload for one of §4.5's fixed
// section names, or ErrUnknownSection for anything else.
func FetchSection(ctx context.Context, st *store.Store, name string) (interface{}, error) {
	if !sectionNames[name] {
		return nil, ErrUnknownSection
	}

	switch name {
	case "all":
		return FetchSnapshot(ctx, st)
	case "metadata":
		snap, err := FetchSnapshot(ctx, st)
		return snap.Metadata, err
	case "trending_keywords":
		snap, err := FetchSnapshot(ctx, st)
		return snap.TrendingKeywords, err
	case "word_cloud":
		snap, err := FetchSnapshot(ctx, st)
		return snap.WordCloud, err
	case "news_feed":
		snap, err := FetchSnapshot(ctx, st)
		return snap.NewsFeed, err
	case "history_data":
		return fetchHistory(ctx, st)
	default:
		return nil, ErrUnknownSection
	}
}

// fetchHistory scans every processed_data:history_data:<keyword> key
// and assembles the aggregate history_data section.
func fetchHistory(ctx context.Context, st *store.Store) (map[string][]model.HistoryPoint, error) {
	history := map[string][]model.HistoryPoint{}

	keys, err := st.KeysWithPrefix(ctx, historyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list history keys: %w", err)
	}

	for _, key := range keys {
		keyword := strings.TrimPrefix(key, historyPrefix)
		raw, ok, err := st.GetJSON(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		if !ok {
			continue
		}
		var points []model.HistoryPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		history[keyword] = points
	}

	return history, nil
}
