package store

import (
	"context"
	"fmt"
	"time"
)

// PushHead appends a JSON record to the head of a list queue (LPUSH),
// the "head = left" convention (§6.1).
func (s *Store) PushHead(ctx context.Context, key string, payload []byte) error {
	if err := s.rdb.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

// PushTail appends a JSON record to the tail of a list queue (RPUSH),
// used by the sentiment write-back paths to re-append a rewritten
// entry (§4.3.1).
func (s *Store) PushTail(ctx context.Context, key string, payload []byte) error {
	if err := s.rdb.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

// RewriteTail removes each entry in remove (by value, one occurrence
// each) and appends each entry in append, all through a single
// non-transactional pipeline (§4.3.1 deferred write-back, §5 "without
// transaction"). remove and append must be the same length and
// pairwise correspond to the same logical record.
func (s *Store) RewriteTail(ctx context.Context, key string, remove []string, appendPayloads [][]byte) error {
	pipe := s.rdb.Pipeline()
	for _, raw := range remove {
		pipe.LRem(ctx, key, 1, raw)
	}
	for _, payload := range appendPayloads {
		pipe.RPush(ctx, key, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rewrite tail %s: %w", key, err)
	}
	return nil
}

// Len returns the current length of a list queue.
func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return n, nil
}

// RangeBatch reads count entries starting at offset, non-destructively
// (LRANGE), the read pattern every consumer uses against its upstream
// queue (§4.2 step 2, §4.3 ingress).
func (s *Store) RangeBatch(ctx context.Context, key string, offset, count int64) ([]string, error) {
	stop := offset + count - 1
	vals, err := s.rdb.LRange(ctx, key, offset, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s %d %d: %w", key, offset, stop, err)
	}
	return vals, nil
}

// RangeAll reads the full current contents of a list queue.
func (s *Store) RangeAll(ctx context.Context, key string) ([]string, error) {
	vals, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s 0 -1: %w", key, err)
	}
	return vals, nil
}

// AgeExtractor pulls the comparison instant out of one raw queue entry
// for trim purposes. Returning ok=false (e.g. missing timestamp) keeps
// the entry, per §4.2's "missing timestamp during trim: kept
// (conservative)" edge case.
type AgeExtractor func(entry string) (t time.Time, ok bool)

// TrimByAge scans a newest-at-head list from the tail, dropping
// contiguous entries older than cutoff and stopping at the first fresh
// (or unparseable) entry, per §4.4. It is idempotent (I7): a second
// call against an already-trimmed queue removes nothing.
func (s *Store) TrimByAge(ctx context.Context, key string, cutoff time.Time, extract AgeExtractor) (removed int64, err error) {
	length, err := s.Len(ctx, key)
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, nil
	}

	// Scan from the tail (highest index) backward.
	const scanBatch = 200
	agedCount := int64(0)
	for agedCount < length {
		lo := length - agedCount - scanBatch
		if lo < 0 {
			lo = 0
		}
		hi := length - agedCount - 1
		entries, err := s.rdb.LRange(ctx, key, lo, hi).Result()
		if err != nil {
			return agedCount, fmt.Errorf("lrange %s %d %d: %w", key, lo, hi, err)
		}
		stoppedEarly := false
		// entries[len-1] is the oldest element fetched in this
		// window (closest to the tail); walk it backward.
		for i := len(entries) - 1; i >= 0; i-- {
			t, ok := extract(entries[i])
			if !ok || !t.Before(cutoff) {
				stoppedEarly = true
				break
			}
			agedCount++
		}
		if stoppedEarly || lo == 0 {
			break
		}
	}

	if agedCount == 0 {
		return 0, nil
	}
	if agedCount >= length {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return 0, fmt.Errorf("del %s: %w", key, err)
		}
		return length, nil
	}

	keepTo := length - agedCount - 1
	if err := s.rdb.LTrim(ctx, key, 0, keepTo).Err(); err != nil {
		return 0, fmt.Errorf("ltrim %s 0 %d: %w", key, keepTo, err)
	}
	return agedCount, nil
}

// TrimToSize enforces the size-based backstop (§4.4): if the queue
// exceeds maxItems, trim to maxItems from the head end, preserving the
// newest entries.
func (s *Store) TrimToSize(ctx context.Context, key string, maxItems int64) (removed int64, err error) {
	length, err := s.Len(ctx, key)
	if err != nil {
		return 0, err
	}
	if length <= maxItems {
		return 0, nil
	}
	if err := s.rdb.LTrim(ctx, key, 0, maxItems-1).Err(); err != nil {
		return 0, fmt.Errorf("ltrim %s 0 %d: %w", key, maxItems-1, err)
	}
	return length - maxItems, nil
}
