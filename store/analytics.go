package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetJSONTTL writes a single JSON string key with a TTL (§4.3.7,
// §6.1): every processed_data:* key is a single-write string, which is
// what makes the Serve stage's single-key reads atomic.
func (s *Store) SetJSONTTL(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetJSON reads a single JSON string key. ok is false if the key is
// absent (expired or never written), letting callers fall back to the
// section's empty-shape default (§4.5).
func (s *Store) GetJSON(ctx context.Context, key string) (payload []byte, ok bool, err error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

// KeysWithPrefix lists every key matching prefix+"*", used by Serve to
// enumerate the per-keyword processed_data:history_data:<keyword> keys
// for the aggregate history_data section (§4.5). Uses SCAN rather than
// KEYS so it never blocks the store on a large keyspace.
func (s *Store) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s*: %w", prefix, err)
	}
	return keys, nil
}
