// Package clean implements the Cleaner Core (§4.2): one pass reads
// raw_queue non-destructively, validates, deduplicates and normalizes
// each entry into a CleanItem, appends survivors to clean_queue, trims
// both queues by age, and publishes clean_done.
package clean

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/metering"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/store"
)

// Stage runs the Cleaner Core against one raw/clean queue pair.
type Stage struct {
	raw    *store.Store
	clean  *store.Store
	cfg    *config.Config
	logger zerolog.Logger
}

// NewStage builds a Stage. raw and clean may be the same *Store bound
// to different logical DBs, or two distinct connections — the Cleaner
// Core only needs queue/idcache primitives against each.
func NewStage(raw, clean *store.Store, cfg *config.Config, logger zerolog.Logger) *Stage {
	return &Stage{raw: raw, clean: clean, cfg: cfg, logger: logger.With().Str("component", "cleaner").Logger()}
}

// passState carries one pass's dedup mode, clock and counters; its
// seen set tracks same-pass duplicates (§4.2 "first seen survives;
// subsequent are duplicate").
type passState struct {
	seen    map[string]struct{}
	mode    store.DedupMode
	now     time.Time
	counts  metering.CleanCounters
}

// Run executes exactly one pass (§4.2 steps 1-12) and returns the
// notification to publish.
func (s *Stage) Run(ctx context.Context) (model.Notification, error) {
	rawKey := s.cfg.Redis.RawQueue
	cleanKey := s.cfg.Redis.CleanQueue
	idKey := s.cfg.Redis.IdCacheKey
	now := time.Now().UTC()

	length, err := s.raw.Len(ctx, rawKey)
	if err != nil {
		return model.Notification{}, fmt.Errorf("len %s: %w", rawKey, err)
	}

	if length == 0 {
		n := fabric.NewNotification("clean_done", (metering.CleanSnapshot{}).AsMap())
		return n, nil
	}

	mode, err := s.clean.DetectIdCacheMode(ctx, idKey)
	if err != nil {
		return model.Notification{}, fmt.Errorf("detect idcache mode: %w", err)
	}

	// Cache-state preamble (§7): IdCache size and, in time-window mode,
	// its valid/expired split.
	cacheLog := s.logger.With().Str("id_cache_mode", string(mode)).Logger()
	if mode == store.DedupPermanent {
		if size, cerr := s.clean.CardPermanent(ctx, idKey); cerr == nil {
			cacheLog.Info().Int64("id_cache_size", size).Msg("id cache state")
		}
	} else if size, cerr := s.clean.CardWindow(ctx, idKey); cerr == nil {
		cutoff := now.Add(-s.cfg.Dedup.Window()).Unix()
		valid, verr := s.clean.Client().ZCount(ctx, idKey, fmt.Sprintf("(%d", cutoff), "+inf").Result()
		if verr == nil {
			cacheLog.Info().Int64("id_cache_size", size).Int64("valid", valid).Int64("expired", size-valid).Msg("id cache state")
		}
	}

	st := &passState{seen: make(map[string]struct{}), mode: mode, now: now}

	const batch = 100
	batchSize := int64(s.cfg.BatchSize)
	if batchSize <= 0 {
		batchSize = batch
	}

	for offset := int64(0); offset < length; offset += batchSize {
		entries, err := s.raw.RangeBatch(ctx, rawKey, offset, batchSize)
		if err != nil {
			// Partial pass: publish what we have so far (§4.2
			// "Store errors inside the loop ... pass aborts with a
			// partial completion notification").
			n := fabric.NewNotification("clean_done", st.counts.Snapshot().AsMap())
			return n, fmt.Errorf("range %s: %w", rawKey, err)
		}
		for _, raw := range entries {
			s.processOne(ctx, raw, cleanKey, idKey, st)
		}
	}

	if err := s.trim(ctx, s.clean, cleanKey, extractCleanAge); err != nil {
		s.logger.Error().Err(err).Msg("clean_queue trim failed")
	}
	if err := s.trim(ctx, s.raw, rawKey, extractRawAge); err != nil {
		s.logger.Error().Err(err).Msg("raw_queue trim failed")
	}

	snap := st.counts.Snapshot()
	s.logger.Info().
		Int64("processed", snap.Processed).
		Int64("cleaned", snap.Cleaned).
		Int64("duplicate", snap.Duplicate).
		Int64("invalid", snap.Invalid).
		Msg("clean pass complete")

	n := fabric.NewNotification("clean_done", snap.AsMap())
	return n, nil
}

func (s *Stage) processOne(ctx context.Context, raw, cleanKey, idKey string, st *passState) {
	st.counts.IncProcessed()

	item, err := model.DecodeRaw([]byte(raw))
	if err != nil {
		st.counts.IncInvalid()
		return
	}

	if !validate(item) {
		st.counts.IncInvalid()
		return
	}

	fp, fpSource := model.Fingerprint(item)

	if _, ok := st.seen[fp]; ok {
		st.counts.IncDuplicate()
		return
	}

	dup, err := s.isDuplicate(ctx, idKey, fp, st)
	if err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("dedup check failed, treating as invalid")
		st.counts.IncInvalid()
		return
	}
	if dup {
		st.counts.IncDuplicate()
		return
	}

	clean := normalize(item, fp, fpSource, st.now)
	payload, err := model.EncodeClean(clean)
	if err != nil {
		st.counts.IncInvalid()
		return
	}
	if err := s.clean.PushHead(ctx, cleanKey, payload); err != nil {
		s.logger.Error().Err(err).Msg("push clean_queue failed")
		st.counts.IncInvalid()
		return
	}

	if err := s.addToIdCache(ctx, idKey, fp, st); err != nil {
		s.logger.Warn().Err(err).Msg("id cache update failed")
	}

	st.seen[fp] = struct{}{}
	st.counts.IncCleaned()
}

func (s *Stage) isDuplicate(ctx context.Context, idKey, fp string, st *passState) (bool, error) {
	if st.mode == store.DedupPermanent {
		return s.clean.IsDuplicatePermanent(ctx, idKey, fp)
	}
	return s.clean.IsDuplicateWindow(ctx, idKey, fp, st.now, s.cfg.Dedup.Window())
}

func (s *Stage) addToIdCache(ctx context.Context, idKey, fp string, st *passState) error {
	if st.mode == store.DedupPermanent {
		return s.clean.AddPermanent(ctx, idKey, fp)
	}
	if err := s.clean.AddWindow(ctx, idKey, fp, st.now); err != nil {
		return err
	}
	_, err := s.clean.ExpireWindow(ctx, idKey, st.now, s.cfg.Dedup.Window())
	return err
}

// trim applies the age-based tail trim (§4.2 step 11, §4.4) and the
// size-based backstop to key, against whichever store owns it.
func (s *Stage) trim(ctx context.Context, st *store.Store, key string, extract store.AgeExtractor) error {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention.Age())
	if _, err := st.TrimByAge(ctx, key, cutoff, extract); err != nil {
		return err
	}
	_, err := st.TrimToSize(ctx, key, s.cfg.Retention.MaxItems)
	return err
}

// extractCleanAge pulls the comparison instant out of a clean_queue
// entry, keeping the entry (returning ok=false) on any parse failure
// per §4.2's conservative rule.
func extractCleanAge(entry string) (time.Time, bool) {
	item, err := model.DecodeClean([]byte(entry))
	if err != nil {
		return time.Time{}, false
	}
	t, err := item.CreatedAtTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// extractRawAge pulls the comparison instant out of a raw_queue entry
// from its first populated timestamp field. Unlike normalize, which
// takes the first field that parses, it does not fall through to later
// fields when the first populated one fails to parse.
func extractRawAge(entry string) (time.Time, bool) {
	item, err := model.DecodeRaw([]byte(entry))
	if err != nil {
		return time.Time{}, false
	}
	return model.ParseFlexibleTime(firstRawTimestamp(item))
}

// firstRawTimestamp returns whichever timestamp-bearing field is
// populated first, for trim purposes only (DeriveCreatedAt always
// succeeds via the time.Now() fallback, which would defeat ok=false).
func firstRawTimestamp(item *model.RawItem) interface{} {
	for _, v := range []interface{}{
		item.CreatedAt, item.CreatedUTC, item.Published, item.PublishedAt,
		item.Timestamp, item.Time, item.DateTime, item.Date,
	} {
		if v != nil {
			return v
		}
	}
	return nil
}
