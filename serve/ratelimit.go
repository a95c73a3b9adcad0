package serve

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketpulse/pipeline/middleware"
)

// clientLimiter is a token-bucket rate limiter per dashboard client,
// built on golang.org/x/time/rate (§6.5's serve.rate_limit_* tree).
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter builds a clientLimiter. rps<=0 disables limiting.
func NewRateLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (c *clientLimiter) limiterFor(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(c.rps, c.burst)
		c.limiters[key] = l
	}
	return l
}

// Handler returns rate-limiting middleware keyed by API key, falling
// back to remote address.
func (c *clientLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := middleware.GetAPIKey(r.Context())
		if key == "" {
			key, _, _ = net.SplitHostPort(r.RemoteAddr)
			if key == "" {
				key = r.RemoteAddr
			}
		}

		l := c.limiterFor(key)
		if !l.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"rate_limit_exceeded","message":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sweep bounds the per-client limiter map across the dashboard's
// lifetime: on each tick, if the map holds more than 10000 clients it
// is reset to empty as a whole (idle and active limiters alike).
// Callers run this in a goroutine bound to the server's shutdown
// context.
func (c *clientLimiter) sweep(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if len(c.limiters) > 10000 {
				c.limiters = make(map[string]*rate.Limiter)
			}
			c.mu.Unlock()
		}
	}
}
