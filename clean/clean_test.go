package clean_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/clean"
	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/store"
)

func newTestStage(t *testing.T) (*clean.Stage, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	*cfg = testConfig()

	opts := store.Options{Addr: mr.Addr()}
	st := store.New(opts, zerolog.Nop())

	stage := clean.NewStage(st, st, cfg, zerolog.Nop())
	return stage, st.Client()
}

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Redis.RawQueue = "raw_queue"
	cfg.Redis.CleanQueue = "clean_queue"
	cfg.Redis.IdCacheKey = "set:cleaned_ids"
	cfg.Dedup.Mode = "time_window"
	cfg.Dedup.WindowHours = 24
	cfg.Retention.Hours = 24
	cfg.Retention.MaxItems = 10000
	cfg.BatchSize = 100
	return cfg
}

func pushRaw(t *testing.T, rdb *redis.Client, key string, items ...*model.RawItem) {
	t.Helper()
	for _, it := range items {
		b, err := model.EncodeRaw(it)
		require.NoError(t, err)
		require.NoError(t, rdb.LPush(context.Background(), key, b).Err())
	}
}

// S1: dedup within one pass.
func TestDedupWithinOnePass(t *testing.T) {
	stage, rdb := newTestStage(t)
	ctx := context.Background()

	item := &model.RawItem{ID: "news_12345", Source: "reuters", Text: "market update"}
	pushRaw(t, rdb, "raw_queue", item, item, item)

	n, err := stage.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, "clean_done", n.Event)
	require.EqualValues(t, 1, n.Statistics["cleaned"])
	require.EqualValues(t, 2, n.Statistics["duplicate"])
	require.EqualValues(t, 0, n.Statistics["invalid"])

	length, err := rdb.LLen(ctx, "clean_queue").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, length)
}

// S2: a post and its comments fingerprint distinctly, none collapsed.
func TestPostWithCommentsNotCollapsed(t *testing.T) {
	stage, rdb := newTestStage(t)
	ctx := context.Background()

	post := &model.RawItem{ID: "news_12345", Source: "reuters", Text: "original post"}
	c1 := &model.RawItem{PostID: "news_12345", CommentID: "c1", Source: "reddit_comment", Text: "comment one"}
	c2 := &model.RawItem{PostID: "news_12345", CommentID: "c2", Source: "reddit_comment", Text: "comment two"}
	c3 := &model.RawItem{PostID: "news_12345", CommentID: "c3", Source: "reddit_comment", Text: "comment three"}
	pushRaw(t, rdb, "raw_queue", post, c1, c2, c3)

	n, err := stage.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, n.Statistics["cleaned"])
	require.EqualValues(t, 0, n.Statistics["duplicate"])

	entries, err := rdb.LRange(ctx, "clean_queue", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	ids := map[string]bool{}
	for _, e := range entries {
		ci, err := model.DecodeClean([]byte(e))
		require.NoError(t, err)
		ids[ci.ID] = true
	}
	require.True(t, ids["news_12345"])
	require.True(t, ids["c1"])
	require.True(t, ids["c2"])
	require.True(t, ids["c3"])
}

// I8: forward progress on an empty raw_queue.
func TestEmptyRawQueueProducesZeroCounts(t *testing.T) {
	stage, rdb := newTestStage(t)
	ctx := context.Background()

	n, err := stage.Run(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n.Statistics["processed"])
	require.EqualValues(t, 0, n.Statistics["cleaned"])
	require.EqualValues(t, 0, n.Statistics["duplicate"])
	require.EqualValues(t, 0, n.Statistics["invalid"])

	exists, err := rdb.Exists(ctx, "clean_queue").Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, exists)
}

// I1: processed == cleaned + duplicate + invalid, including invalid
// entries (missing source, unparseable JSON).
func TestProcessedEqualsSumOfOutcomes(t *testing.T) {
	stage, rdb := newTestStage(t)
	ctx := context.Background()

	valid := &model.RawItem{ID: "a1", Source: "reuters", Text: "hello"}
	missingSource := &model.RawItem{ID: "a2", Text: "no source"}
	pushRaw(t, rdb, "raw_queue", valid, missingSource)
	require.NoError(t, rdb.LPush(ctx, "raw_queue", "{not json").Err())

	n, err := stage.Run(ctx)
	require.NoError(t, err)

	processed := n.Statistics["processed"].(int64)
	cleaned := n.Statistics["cleaned"].(int64)
	duplicate := n.Statistics["duplicate"].(int64)
	invalid := n.Statistics["invalid"].(int64)
	require.Equal(t, processed, cleaned+duplicate+invalid)
	require.EqualValues(t, 3, processed)
	require.EqualValues(t, 1, cleaned)
	require.EqualValues(t, 2, invalid)
}
