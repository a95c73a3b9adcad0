package oracle

import "context"

// Cached wraps a SentimentOracle with a ResultCache so identical text
// seen in an earlier pass never makes a second classifier call.
type Cached struct {
	inner SentimentOracle
	cache *ResultCache
}

// NewCached builds a caching wrapper around inner.
func NewCached(inner SentimentOracle, cache *ResultCache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

// Classify looks up each text in the cache, classifies only the
// misses in one batch call to the wrapped oracle, then fills the
// results back into cache-hit order and stores the fresh labels.
func (c *Cached) Classify(ctx context.Context, texts []string) ([]Label, error) {
	labels := make([]Label, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, t := range texts {
		if l, ok := c.cache.Lookup(t); ok {
			labels[i] = l
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return labels, nil
	}

	fresh, err := c.inner.Classify(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		labels[idx] = fresh[j]
		c.cache.Store(missTexts[j], fresh[j])
	}
	return labels, nil
}
