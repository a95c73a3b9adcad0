// Package store wraps the shared Redis key/value store that is the only
// communication channel between pipeline stages (§3 Ownership, §6.1).
// It exposes the three materialized logical databases, the list/sorted-set/string
// primitives each stage needs, and the pub/sub coordination fabric
// (§4.1).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// DB selects one of the pipeline's three materialized logical
// databases (§6.1).
type DB int

const (
	DBScrape    DB = 0
	DBClean     DB = 1
	DBAnalytics DB = 2
)

// Options configures the Redis connection for one logical database.
type Options struct {
	Addr     string
	Password string
	DB       DB
}

// Store is a thin, breaker-protected wrapper around a *redis.Client
// bound to one logical database. A stage that touches more than one DB
// holds one Store per DB (cmd/clean and cmd/analyze each hold two).
type Store struct {
	rdb    *redis.Client
	logger zerolog.Logger
	cb     *gobreaker.CircuitBreaker[any]
}

// New dials Redis for the given options. It does not ping — callers
// should call Ping explicitly so connect errors are handled as the
// fatal "Connect error" class from §7.
func New(opts Options, logger zerolog.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       int(opts.DB),
	})

	cbSettings := gobreaker.Settings{
		Name:        "redis-store",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Store{
		rdb:    rdb,
		logger: logger.With().Int("db", int(opts.DB)).Logger(),
		cb:     gobreaker.NewCircuitBreaker[any](cbSettings),
	}
}

// Ping verifies connectivity, tripping the breaker after repeated
// failures so a persistently unreachable store surfaces to the
// supervisor instead of retrying forever inside the hot loop (§7).
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.rdb.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Client exposes the underlying redis.Client for operations not
// wrapped by Store (used sparingly, mostly by tests).
func (s *Store) Client() *redis.Client { return s.rdb }

// Close tears down the connection without an unsubscribe round-trip —
// per §4.1/§9, the store cleans up any live subscriptions itself.
func (s *Store) Close() error { return s.rdb.Close() }
