package analytics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/oracle"
	"github.com/marketpulse/pipeline/store"
)

// writeBackUpdate is one {id, sentiment} pair produced during fill,
// applied to clean_queue per the configured write-back mode (§4.3.1).
type writeBackUpdate struct {
	id        string
	sentiment oracle.Label
}

// fillSentiment passes every record missing a label through the
// oracle in batches, then applies the write-back (§4.3.1). Records
// are mutated in place so downstream keyword/news-feed computations
// see the filled labels within the same pass.
func fillSentiment(ctx context.Context, st *store.Store, key string, records []*record, cfg config.SentimentConfig, or oracle.SentimentOracle, logger zerolog.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	var updates []writeBackUpdate
	var missing []*record
	for _, r := range records {
		if !r.hasLabel {
			missing = append(missing, r)
		}
	}

	for start := 0; start < len(missing); start += batchSize {
		end := start + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]
		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.item.PrimaryText()
		}

		labels, err := or.Classify(ctx, texts)
		if err != nil {
			logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("sentiment oracle batch failed")
			continue
		}
		for i, r := range batch {
			if i >= len(labels) {
				break
			}
			r.sentiment = labels[i]
			r.hasLabel = true
			r.item.Sentiment = string(labels[i])
			updates = append(updates, writeBackUpdate{id: r.item.ID, sentiment: labels[i]})
		}

		if cfg.DeferWriteBack {
			continue
		}
		// Immediate mode: remove+append per update, right away
		// (§4.3.1 — correct but O(N*M) on queue length).
		for _, u := range updates[len(updates)-len(batch):] {
			if err := writeBackImmediate(ctx, st, key, u); err != nil {
				logger.Warn().Err(err).Str("id", u.id).Msg("immediate sentiment write-back failed")
			}
		}
	}

	if cfg.DeferWriteBack && len(updates) > 0 {
		return writeBackDeferred(ctx, st, key, updates)
	}
	return nil
}

// writeBackImmediate locates the record by id, removes one occurrence
// and re-appends the updated record to the tail (§4.3.1 immediate
// mode).
func writeBackImmediate(ctx context.Context, st *store.Store, key string, u writeBackUpdate) error {
	entries, err := st.RangeAll(ctx, key)
	if err != nil {
		return fmt.Errorf("range %s: %w", key, err)
	}
	for _, raw := range entries {
		item, err := model.DecodeClean([]byte(raw))
		if err != nil || item.ID != u.id {
			continue
		}
		if err := st.Client().LRem(ctx, key, 1, raw).Err(); err != nil {
			return fmt.Errorf("lrem %s: %w", key, err)
		}
		item.Sentiment = string(u.sentiment)
		payload, err := model.EncodeClean(item)
		if err != nil {
			return err
		}
		return st.PushTail(ctx, key, payload)
	}
	return nil
}

// writeBackDeferred performs a single linear scan building a
// remove-set and an append-set, issued through one non-transactional
// pipeline (§4.3.1 deferred mode, default; R3). Rewritten entries move
// to the tail, changing observable order but preserving the multiset
// of (id, sentiment) pairs.
func writeBackDeferred(ctx context.Context, st *store.Store, key string, updates []writeBackUpdate) error {
	byID := make(map[string]oracle.Label, len(updates))
	for _, u := range updates {
		byID[u.id] = u.sentiment
	}

	entries, err := st.RangeAll(ctx, key)
	if err != nil {
		return fmt.Errorf("range %s: %w", key, err)
	}

	var toRemove []string
	var toAppend [][]byte
	for _, raw := range entries {
		item, err := model.DecodeClean([]byte(raw))
		if err != nil {
			continue
		}
		label, needsRewrite := byID[item.ID]
		if !needsRewrite {
			continue
		}
		item.Sentiment = string(label)
		payload, err := model.EncodeClean(item)
		if err != nil {
			continue
		}
		toRemove = append(toRemove, raw)
		toAppend = append(toAppend, payload)
	}
	if len(toRemove) == 0 {
		return nil
	}
	return st.RewriteTail(ctx, key, toRemove, toAppend)
}
