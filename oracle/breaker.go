package oracle

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Guarded wraps a SentimentOracle with a circuit breaker (grounded on
// store.Store's same gobreaker usage) and the documented heuristic
// fallback (§7 "Oracle failure"). Once the breaker trips, calls fail
// fast onto the heuristic instead of hanging the pass on a dead
// backend.
type Guarded struct {
	inner    SentimentOracle
	fallback SentimentOracle
	useFallback bool
	cb       *gobreaker.CircuitBreaker[[]Label]
	logger   zerolog.Logger
}

// NewGuarded builds a breaker-wrapped oracle. fallbackEnabled mirrors
// sentiment.fallback_to_heuristic (§6.5); when false, a failed or
// open-circuit call returns an error instead of a heuristic guess.
func NewGuarded(inner SentimentOracle, fallbackEnabled bool, logger zerolog.Logger) *Guarded {
	settings := gobreaker.Settings{
		Name:        "sentiment-oracle",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Guarded{
		inner:       inner,
		fallback:    Heuristic{},
		useFallback: fallbackEnabled,
		cb:          gobreaker.NewCircuitBreaker[[]Label](settings),
		logger:      logger.With().Str("component", "sentiment_oracle").Logger(),
	}
}

// Classify calls the wrapped oracle through the breaker; on any
// failure (backend error or open circuit) it falls back to the
// heuristic when enabled, else propagates the error.
func (g *Guarded) Classify(ctx context.Context, texts []string) ([]Label, error) {
	labels, err := g.cb.Execute(func() ([]Label, error) {
		return g.inner.Classify(ctx, texts)
	})
	if err == nil {
		return labels, nil
	}
	if !g.useFallback {
		return nil, err
	}
	g.logger.Warn().Err(err).Int("batch_size", len(texts)).Msg("oracle failed, using heuristic fallback")
	return g.fallback.Classify(ctx, texts)
}
