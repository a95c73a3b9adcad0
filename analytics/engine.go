package analytics

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/metering"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/oracle"
	"github.com/marketpulse/pipeline/store"
)

// snapshotTTL is the default TTL on every processed_data:* key
// (§4.3.7, §6.1 "TTL ~= 86400s").
const snapshotTTL = 24 * time.Hour

// metadataKey/trendingKey/etc. are the bit-exact key names §6.1 fixes.
const (
	metadataKey  = "processed_data:metadata"
	trendingKey  = "processed_data:trending_keywords"
	wordCloudKey = "processed_data:word_cloud"
	newsFeedKey  = "processed_data:news_feed"
	historyPrefix = "processed_data:history_data:"
)

// Stage runs the Analytics Engine against one clean_queue (§4.3).
type Stage struct {
	clean     *store.Store
	analytics *store.Store
	cfg       *config.Config
	oracle    oracle.SentimentOracle
	logger    zerolog.Logger
}

// NewStage builds a Stage. clean is the DB-CLEAN connection
// clean_queue is read (and, on sentiment write-back, rewritten) from;
// analytics is the DB-ANALYTICS connection the snapshot is written to.
func NewStage(clean, analyticsStore *store.Store, cfg *config.Config, or oracle.SentimentOracle, logger zerolog.Logger) *Stage {
	return &Stage{
		clean:     clean,
		analytics: analyticsStore,
		cfg:       cfg,
		oracle:    or,
		logger:    logger.With().Str("component", "analytics").Logger(),
	}
}

// Run executes exactly one pass: ingest, fill sentiment, compute every
// §4.3 section, emit the snapshot, publish analytics_done.
func (s *Stage) Run(ctx context.Context) (model.Notification, error) {
	cleanKey := s.cfg.Redis.CleanQueue

	raw, err := s.clean.RangeAll(ctx, cleanKey)
	if err != nil {
		return model.Notification{}, fmt.Errorf("range %s: %w", cleanKey, err)
	}

	records := ingest(raw)

	if err := fillSentiment(ctx, s.clean, cleanKey, records, s.cfg.Sentiment, s.oracle, s.logger); err != nil {
		s.logger.Warn().Err(err).Msg("sentiment fill encountered errors")
	}

	w := computeWindows(records, s.cfg.Analytics.CurrentWindow())

	snapshot := buildSnapshot(
		records, w,
		s.cfg.Analytics.CurrentWindowMinutes,
		s.cfg.Analytics.TrendingKeywordsCount,
		s.cfg.Analytics.WordCloudCount,
		s.cfg.Analytics.NewsFeedCount,
	)

	if err := s.emit(ctx, snapshot); err != nil {
		return model.Notification{}, fmt.Errorf("emit snapshot: %w", err)
	}

	var counters metering.AnalyticsCounters
	counters.SetKeywords(len(snapshot.TrendingKeywords))
	counters.SetHistory(len(snapshot.History))
	snap := counters.Snapshot()

	s.logger.Info().
		Int64("keywords", snap.KeywordsCount).
		Int64("history_keys", snap.HistoryCount).
		Msg("analytics pass complete")

	return fabric.NewNotification("analytics_done", snap.AsMap()), nil
}

// emit serializes each section as a single JSON string under its own
// key, and each keyword's history series under history:<keyword>,
// every key TTL-bounded (§4.3.7).
func (s *Stage) emit(ctx context.Context, snapshot model.AnalyticsSnapshot) error {
	if err := s.setSection(ctx, metadataKey, snapshot.Metadata); err != nil {
		return err
	}
	if err := s.setSection(ctx, trendingKey, snapshot.TrendingKeywords); err != nil {
		return err
	}
	if err := s.setSection(ctx, wordCloudKey, snapshot.WordCloud); err != nil {
		return err
	}
	if err := s.setSection(ctx, newsFeedKey, snapshot.NewsFeed); err != nil {
		return err
	}
	for keyword, points := range snapshot.History {
		if err := s.setSection(ctx, historyPrefix+keyword, points); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage) setSection(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.analytics.SetJSONTTL(ctx, key, payload, snapshotTTL)
}
