package serve

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := limiter.Handler(next)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.RemoteAddr = "10.0.0.5:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterDisabledWhenRPSNonPositive(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := limiter.Handler(next)

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.RemoteAddr = "10.0.0.6:1234"

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterSeparatesByKey(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := limiter.Handler(next)

	reqA := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	reqA.RemoteAddr = "10.0.0.1:1111"
	reqB := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	reqB.RemoteAddr = "10.0.0.2:2222"

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, reqA)
	require.Equal(t, http.StatusOK, recA.Code)

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, reqB)
	require.Equal(t, http.StatusOK, recB.Code, "a different client's bucket must not be exhausted by A's request")
}
