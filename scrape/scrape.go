// Package scrape implements the Scrape stage. The crawlers themselves
// (Reddit/RSS/NewsAPI/StockTwits/Alpha Vantage adapters) are out of
// scope (§1); this package only owns the append-to-raw_queue, trim,
// and scrape_done publish responsibilities, driving whatever SourceFeed
// is injected at stage startup.
package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/store"
)

// SourceFeed is the abstract boundary to a real crawler (§1, §6
// "external collaborators specified only by their interfaces"). Fetch
// returns whatever new RawItems are available; a feed with nothing new
// returns an empty slice, not an error.
type SourceFeed interface {
	Fetch(ctx context.Context) ([]*model.RawItem, error)
}

// Stage runs one pass of the Scrape stage: fetch from every configured
// feed, append to raw_queue, trim, publish scrape_done.
type Stage struct {
	st     *store.Store
	feeds  []SourceFeed
	cfg    *config.Config
	logger zerolog.Logger
}

// NewStage builds a Stage over the given feeds.
func NewStage(st *store.Store, feeds []SourceFeed, cfg *config.Config, logger zerolog.Logger) *Stage {
	return &Stage{st: st, feeds: feeds, cfg: cfg, logger: logger.With().Str("component", "scraper").Logger()}
}

// Run executes exactly one pass across every feed.
func (s *Stage) Run(ctx context.Context) (model.Notification, error) {
	rawKey := s.cfg.Redis.RawQueue
	var fetched, pushed int64

	for _, feed := range s.feeds {
		items, err := feed.Fetch(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("source feed fetch failed, continuing with other feeds")
			continue
		}
		for _, item := range items {
			fetched++
			payload, err := model.EncodeRaw(item)
			if err != nil {
				s.logger.Warn().Err(err).Msg("encode raw item failed")
				continue
			}
			if err := s.st.PushHead(ctx, rawKey, payload); err != nil {
				return model.Notification{}, fmt.Errorf("push raw_queue: %w", err)
			}
			pushed++
		}
	}

	if err := s.trim(ctx, rawKey); err != nil {
		s.logger.Error().Err(err).Msg("raw_queue trim failed")
	}

	length, err := s.st.Len(ctx, rawKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("raw_queue length read failed")
	}

	s.logger.Info().Int64("fetched", fetched).Int64("pushed", pushed).Int64("queue_length", length).Msg("scrape pass complete")

	stats := map[string]interface{}{
		"fetched":      fetched,
		"pushed":       pushed,
		"queue_length": length,
	}
	return fabric.NewNotification("scrape_done", stats), nil
}

// trim applies the same age-based tail trim and size backstop the
// Clean stage applies to its own output queue (§4.4).
func (s *Stage) trim(ctx context.Context, key string) error {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention.Age())
	if _, err := s.st.TrimByAge(ctx, key, cutoff, extractRawAge); err != nil {
		return err
	}
	_, err := s.st.TrimToSize(ctx, key, s.cfg.Retention.MaxItems)
	return err
}

func extractRawAge(entry string) (time.Time, bool) {
	item, err := model.DecodeRaw([]byte(entry))
	if err != nil {
		return time.Time{}, false
	}
	for _, v := range []interface{}{
		item.CreatedAt, item.CreatedUTC, item.Published, item.PublishedAt,
		item.Timestamp, item.Time, item.DateTime, item.Date,
	} {
		if t, ok := model.ParseFlexibleTime(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
