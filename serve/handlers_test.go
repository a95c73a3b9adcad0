package serve_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/serve"
)

func TestHandlersSnapshotEmptyStore(t *testing.T) {
	st := newTestStore(t)
	h := serve.NewHandlers(st, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	rec := httptest.NewRecorder()
	h.Snapshot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "trending_keywords")
}

func TestHandlersSectionUnknown(t *testing.T) {
	st := newTestStore(t)
	h := serve.NewHandlers(st, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/section/{name}", h.Section)

	req := httptest.NewRequest(http.MethodGet, "/section/bogus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlersHealthz(t *testing.T) {
	st := newTestStore(t)
	h := serve.NewHandlers(st, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
