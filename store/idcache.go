package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupMode selects the IdCache variant (§3).
type DedupMode string

const (
	DedupPermanent   DedupMode = "permanent"
	DedupTimeWindow  DedupMode = "time_window"
)

// DetectIdCacheMode inspects the stored data structure's type at
// startup to infer which dedup variant is in effect (§4.2 edge cases).
// An absent key ("none") defaults to time-window.
func (s *Store) DetectIdCacheMode(ctx context.Context, key string) (DedupMode, error) {
	typ, err := s.rdb.Type(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("type %s: %w", key, err)
	}
	switch typ {
	case "set":
		return DedupPermanent, nil
	case "zset":
		return DedupTimeWindow, nil
	case "none":
		return DedupTimeWindow, nil
	default:
		return "", fmt.Errorf("id cache %s has unexpected type %q", key, typ)
	}
}

// IsDuplicatePermanent is a membership test against the permanent
// fingerprint set.
func (s *Store) IsDuplicatePermanent(ctx context.Context, key, fingerprint string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, key, fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("sismember %s: %w", key, err)
	}
	return ok, nil
}

// AddPermanent records a fingerprint as seen, permanently.
func (s *Store) AddPermanent(ctx context.Context, key, fingerprint string) error {
	if err := s.rdb.SAdd(ctx, key, fingerprint).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	return nil
}

// IsDuplicateWindow reports whether fingerprint was seen within the
// configured window: duplicate iff a score exists and
// score > now-window (§4.2 step 6).
func (s *Store) IsDuplicateWindow(ctx context.Context, key, fingerprint string, now time.Time, window time.Duration) (bool, error) {
	score, err := s.rdb.ZScore(ctx, key, fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("zscore %s: %w", key, err)
	}
	cutoff := now.Add(-window).Unix()
	return int64(score) > cutoff, nil
}

// AddWindow records fingerprint with score = now (UNIX seconds).
func (s *Store) AddWindow(ctx context.Context, key, fingerprint string, now time.Time) error {
	err := s.rdb.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: fingerprint}).Err()
	if err != nil {
		return fmt.Errorf("zadd %s: %w", key, err)
	}
	return nil
}

// ExpireWindow removes entries with score <= now-window (§4.2 step 9).
func (s *Store) ExpireWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	cutoff := now.Add(-window).Unix()
	n, err := s.rdb.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff)).Result()
	if err != nil {
		return 0, fmt.Errorf("zremrangebyscore %s: %w", key, err)
	}
	return n, nil
}

// CardPermanent returns the size of the permanent fingerprint set.
func (s *Store) CardPermanent(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", key, err)
	}
	return n, nil
}

// CardWindow returns the size of the time-window sorted set.
func (s *Store) CardWindow(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", key, err)
	}
	return n, nil
}

// Reset deletes the IdCache key, used when a dedup mode switch is
// requested (§3: "mode switches require a reset").
func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
