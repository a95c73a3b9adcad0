package serve

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/store"
)

// Handlers wires the §4.5 REST contract onto one DB-ANALYTICS store
// connection.
type Handlers struct {
	analytics *store.Store
	logger    zerolog.Logger
}

// NewHandlers builds Handlers over the given analytics-DB store.
func NewHandlers(analytics *store.Store, logger zerolog.Logger) *Handlers {
	return &Handlers{analytics: analytics, logger: logger.With().Str("component", "serve").Logger()}
}

// Snapshot handles GET snapshot.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	if span := observability.SpanFromContext(r.Context()); span != nil {
		span.AddEvent("store.read", map[string]string{"target": "snapshot"})
	}
	snapshot, err := FetchSnapshot(r.Context(), h.analytics)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "snapshot_read_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// Section handles GET section/<name>.
func (h *Handlers) Section(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if span := observability.SpanFromContext(r.Context()); span != nil {
		span.AddEvent("store.read", map[string]string{"target": name})
	}
	section, err := FetchSection(r.Context(), h.analytics, name)
	if errors.Is(err, ErrUnknownSection) {
		h.writeError(w, http.StatusNotFound, "unknown_section", err)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "section_read_failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, section)
}

// Healthz handles the ambient /healthz endpoint (§4 "Health endpoint").
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "store_unreachable", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "marketpulse-serve"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode response failed")
		http.Error(w, `{"error":"encode_failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code string, err error) {
	h.logger.Warn().Err(err).Str("code", code).Msg("request failed")
	h.writeJSON(w, status, map[string]string{"error": code, "message": err.Error()})
}
