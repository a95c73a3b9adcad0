package serve_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/serve"
	"github.com/marketpulse/pipeline/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return store.New(store.Options{Addr: mr.Addr()}, zerolog.Nop())
}

func TestFetchSnapshotEmptyShapeDefaults(t *testing.T) {
	st := newTestStore(t)
	snap, err := serve.FetchSnapshot(context.Background(), st)
	require.NoError(t, err)

	require.NotNil(t, snap.TrendingKeywords)
	require.Empty(t, snap.TrendingKeywords)
	require.NotNil(t, snap.WordCloud)
	require.NotNil(t, snap.NewsFeed)
	require.NotNil(t, snap.History)
	require.NotNil(t, snap.Metadata.SourceCounts)
}

func TestFetchSnapshotDecodesPresentKeys(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	trending := []model.TrendingKeyword{{Keyword: "rate-cut", Rank: 1, Current: 12}}
	payload, err := json.Marshal(trending)
	require.NoError(t, err)
	require.NoError(t, st.SetJSONTTL(ctx, "processed_data:trending_keywords", payload, time.Hour))

	points := []model.HistoryPoint{{Timestamp: "2026-07-31T00:00:00Z", Frequency: 3}}
	hpayload, err := json.Marshal(points)
	require.NoError(t, err)
	require.NoError(t, st.SetJSONTTL(ctx, "processed_data:history_data:rate-cut", hpayload, time.Hour))

	snap, err := serve.FetchSnapshot(ctx, st)
	require.NoError(t, err)
	require.Len(t, snap.TrendingKeywords, 1)
	require.Equal(t, "rate-cut", snap.TrendingKeywords[0].Keyword)
	require.Contains(t, snap.History, "rate-cut")
	require.Len(t, snap.History["rate-cut"], 1)
}

func TestFetchSectionUnknownName(t *testing.T) {
	st := newTestStore(t)
	_, err := serve.FetchSection(context.Background(), st, "not_a_section")
	require.ErrorIs(t, err, serve.ErrUnknownSection)
}

func TestFetchSectionKnownNames(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"trending_keywords", "word_cloud", "news_feed", "history_data", "metadata", "all"} {
		_, err := serve.FetchSection(ctx, st, name)
		require.NoError(t, err, name)
	}
}
