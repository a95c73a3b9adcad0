package scrape_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/scrape"
	"github.com/marketpulse/pipeline/store"
)

type fakeFeed struct {
	items []*model.RawItem
	err   error
}

func (f fakeFeed) Fetch(_ context.Context) ([]*model.RawItem, error) {
	return f.items, f.err
}

func TestScrapePassAppendsAndNotifies(t *testing.T) {
	mr := miniredis.RunT(t)
	st := store.New(store.Options{Addr: mr.Addr()}, zerolog.Nop())

	cfg := &config.Config{}
	cfg.Redis.RawQueue = "raw_queue"
	cfg.Retention.Hours = 24
	cfg.Retention.MaxItems = 10000

	feed := fakeFeed{items: []*model.RawItem{
		{ID: "a1", Source: "reuters", Text: "hello"},
		{ID: "a2", Source: "reuters", Text: "world"},
	}}
	stage := scrape.NewStage(st, []scrape.SourceFeed{feed}, cfg, zerolog.Nop())

	n, err := stage.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "scrape_done", n.Event)
	require.EqualValues(t, 2, n.Statistics["pushed"])

	length, err := st.Len(context.Background(), "raw_queue")
	require.NoError(t, err)
	require.EqualValues(t, 2, length)
}

func TestScrapeContinuesPastFailingFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	st := store.New(store.Options{Addr: mr.Addr()}, zerolog.Nop())

	cfg := &config.Config{}
	cfg.Redis.RawQueue = "raw_queue"
	cfg.Retention.Hours = 24
	cfg.Retention.MaxItems = 10000

	bad := fakeFeed{err: context.DeadlineExceeded}
	good := fakeFeed{items: []*model.RawItem{{ID: "a1", Source: "reuters", Text: "hello"}}}
	stage := scrape.NewStage(st, []scrape.SourceFeed{bad, good}, cfg, zerolog.Nop())

	n, err := stage.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n.Statistics["pushed"])
}
