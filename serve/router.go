package serve

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
	appmw "github.com/marketpulse/pipeline/middleware"
	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/store"
)

// NewRouter builds the Read API's chi router: CORS -> security headers
// -> request ID -> recoverer -> tracing -> request logger, then on the
// /api routes auth -> rate limit -> timeout (auth first, so the limiter
// can key on the presented API key), then the §4.5 routes.
func NewRouter(cfg *config.Config, analytics *store.Store, hub *Hub, limiter *clientLimiter, metrics *observability.Metrics, tracer *observability.Tracer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(appmw.CORSMiddleware(cfg.Serve.AllowedOrigins))
	r.Use(appmw.SecurityHeadersMiddleware)
	r.Use(appmw.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(observability.TracingMiddleware(tracer))
	r.Use(requestLogger(logger, metrics))

	authMW := appmw.NewAuthMiddleware(logger, cfg.Serve.AuthKey)
	timeoutMW := appmw.NewTimeoutMiddleware(logger, cfg.Serve.RequestTimeout)

	h := NewHandlers(analytics, logger)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMW.Handler)
		r.Use(limiter.Handler)
		r.Use(timeoutMW.Handler)

		r.Get("/snapshot", h.Snapshot)
		r.Get("/section/{name}", h.Section)
	})

	r.Get("/ws/subscribe", hub.Subscribe)

	return r
}

func requestLogger(logger zerolog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(start, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", start.Status()).
				Msg("request completed")
			metrics.HTTPRequests.WithLabelValues(r.URL.Path, statusClass(start.Status())).Inc()
		})
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
