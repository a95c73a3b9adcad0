// Package observability carries the pipeline's metrics and tracing
// instrumentation, decoupled from any single stage.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics is the pipeline's Prometheus metric set, registered once per
// process and shared across a stage's pass loop.
type Metrics struct {
	reg *prometheus.Registry

	PassesTotal   *prometheus.CounterVec
	PassDuration  *prometheus.HistogramVec
	ItemsTotal    *prometheus.CounterVec
	QueueDepth    *prometheus.GaugeVec
	SentimentHits *prometheus.CounterVec
	WSClients     prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
}

// NewMetrics builds a fresh registry with every pipeline metric
// registered. Each stage binary constructs its own; they never share
// a process.
func NewMetrics(stage string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		PassesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "pipeline_stage_passes_total",
			Help:        "Completed stage passes, by outcome.",
			ConstLabels: prometheus.Labels{"stage": stage},
		}, []string{"outcome"}),
		PassDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pipeline_stage_pass_duration_seconds",
			Help:        "Wall-clock duration of a single stage pass.",
			ConstLabels: prometheus.Labels{"stage": stage},
			Buckets:     prometheus.DefBuckets,
		}, []string{}),
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "pipeline_items_total",
			Help:        "Per-pass counts, by statistic name from the stage's completion notification (e.g. processed, cleaned, duplicate, invalid, pushed).",
			ConstLabels: prometheus.Labels{"stage": stage},
		}, []string{"disposition"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "pipeline_queue_depth",
			Help:        "Observed length of a store-backed queue after the last pass.",
			ConstLabels: prometheus.Labels{"stage": stage},
		}, []string{"queue"}),
		SentimentHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "pipeline_sentiment_cache_total",
			Help:        "Sentiment oracle lookups, by cache outcome (hit, miss, fallback).",
			ConstLabels: prometheus.Labels{"stage": stage},
		}, []string{"outcome"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "pipeline_ws_clients",
			Help:        "Currently connected websocket subscribers.",
			ConstLabels: prometheus.Labels{"stage": stage},
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "pipeline_http_requests_total",
			Help:        "Read API requests, by route and status class.",
			ConstLabels: prometheus.Labels{"stage": stage},
		}, []string{"route", "status"}),
	}
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve starts a background /metrics listener on addr. A blank addr is
// a no-op, since not every deployment wants a scrape endpoint per
// worker process.
func (m *Metrics) Serve(addr string, logger zerolog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
}
