package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/analytics"
	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/oracle"
	"github.com/marketpulse/pipeline/store"
)

func newTestStage(t *testing.T) (*analytics.Stage, *store.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts := store.Options{Addr: mr.Addr()}
	st := store.New(opts, zerolog.Nop())

	cfg := &config.Config{}
	cfg.Redis.CleanQueue = "clean_queue"
	cfg.Analytics.CurrentWindowMinutes = 60
	cfg.Analytics.HistoryHours = 24
	cfg.Analytics.TrendingKeywordsCount = 10
	cfg.Analytics.WordCloudCount = 20
	cfg.Analytics.NewsFeedCount = 20
	cfg.Sentiment.Enabled = false

	stage := analytics.NewStage(st, st, cfg, oracle.Heuristic{}, zerolog.Nop())
	return stage, st
}

func pushClean(t *testing.T, st *store.Store, key string, items ...*model.CleanItem) {
	t.Helper()
	for _, it := range items {
		b, err := model.EncodeClean(it)
		require.NoError(t, err)
		require.NoError(t, st.PushHead(context.Background(), key, b))
	}
}

func cleanItem(id, text string, createdAt time.Time) *model.CleanItem {
	return &model.CleanItem{
		ID:        id,
		CreatedAt: model.FormatISOSeconds(createdAt),
		CleanedAt: model.FormatISOMicros(time.Now()),
		Text:      text,
		Source:    "reuters",
	}
}

// S3: 24-bucket history with gaps.
func TestHistoryAlwaysHas24Points(t *testing.T) {
	stage, st := newTestStage(t)
	ctx := context.Background()

	tEnd := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	base := tEnd.Add(-7 * time.Hour)
	for i := 0; i < 7; i++ {
		txt := "market update"
		if i%2 == 0 {
			txt = "bitcoin rally continues"
		}
		pushClean(t, st, "clean_queue", cleanItem(idFor(i), txt, base.Add(time.Duration(i)*time.Hour).Add(10*time.Minute)))
	}

	n, err := stage.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, "analytics_done", n.Event)

	raw, ok, err := st.GetJSON(ctx, "processed_data:history_data:bitcoin")
	require.NoError(t, err)
	require.True(t, ok)

	var points []model.HistoryPoint
	require.NoError(t, json.Unmarshal(raw, &points))
	require.Len(t, points, 24)

	nonZero := 0
	for _, p := range points {
		if p.Frequency > 0 {
			nonZero++
		}
	}
	require.Equal(t, 4, nonZero)
}

func idFor(i int) string {
	return "item_" + string(rune('a'+i))
}

// I5/I4: trending_keywords ranks are dense 1..K; word_cloud is bounded
// and ordered descending.
func TestTrendingRanksAndWordCloudOrdering(t *testing.T) {
	stage, st := newTestStage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		pushClean(t, st, "clean_queue", cleanItem(idFor(i), "bitcoin bitcoin ethereum market", now))
	}

	n, err := stage.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, "analytics_done", n.Event)

	raw, ok, err := st.GetJSON(ctx, "processed_data:trending_keywords")
	require.NoError(t, err)
	require.True(t, ok)
	var trending []model.TrendingKeyword
	require.NoError(t, json.Unmarshal(raw, &trending))
	for i, kw := range trending {
		require.Equal(t, i+1, kw.Rank)
	}

	wcRaw, ok, err := st.GetJSON(ctx, "processed_data:word_cloud")
	require.NoError(t, err)
	require.True(t, ok)
	var cloud []model.WordCloudEntry
	require.NoError(t, json.Unmarshal(wcRaw, &cloud))
	for i := 1; i < len(cloud); i++ {
		require.GreaterOrEqual(t, cloud[i-1].Value, cloud[i].Value)
	}
}
