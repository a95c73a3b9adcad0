// Lightweight trace spans for stage passes and the Read API, exported
// as structured log lines rather than shipped to a tracing backend —
// no collector is in scope for this pipeline. Every span here is a
// root span: scrape/clean/analyze are independent cron-like processes
// with no caller to inherit a trace from, and the Read API is a leaf
// HTTP service with no upstream that propagates W3C trace context into
// it, so there is no parent-span plumbing to carry.
package observability

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// TraceID is a 128-bit trace identifier.
type TraceID [16]byte

func (t TraceID) String() string { return hex.EncodeToString(t[:]) }

// SpanID is a 64-bit span identifier.
type SpanID [8]byte

func (s SpanID) String() string { return hex.EncodeToString(s[:]) }

func generateTraceID() TraceID {
	var id TraceID
	_, _ = rand.Read(id[:])
	return id
}

func generateSpanID() SpanID {
	var id SpanID
	_, _ = rand.Read(id[:])
	return id
}

// Span represents one traced unit of work: an HTTP request or one
// stage pass (§4.1 "one pass" for Scrape/Clean/Analyze).
type Span struct {
	mu         sync.Mutex
	Name       string
	TraceID    TraceID
	SpanID     SpanID
	Sampled    bool
	StartTime  time.Time
	EndTime    time.Time
	Attributes map[string]string
	Events     []SpanEvent
	StatusCode string // "OK", "ERROR", "UNSET"
	StatusMsg  string
	finished   bool
}

// SpanEvent is a time-stamped annotation on a span — e.g. a pass's
// item counts, or a handler's store round trip.
type SpanEvent struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]string
}

// SetAttribute adds a key-value attribute to the span.
func (s *Span) SetAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attributes[key] = value
}

// AddEvent adds a timestamped event to the span.
func (s *Span) AddEvent(name string, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, SpanEvent{Name: name, Timestamp: time.Now().UTC(), Attributes: attrs})
}

// SetStatus sets the span's status.
func (s *Span) SetStatus(code, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StatusCode = code
	s.StatusMsg = msg
}

// End marks the span as finished.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.EndTime = time.Now().UTC()
		s.finished = true
	}
}

// Duration returns the span duration.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// SpanExporter receives completed spans for export to a backend.
type SpanExporter interface {
	Export(spans []*Span) error
	Shutdown() error
}

// Tracer creates and manages trace spans, buffering them for periodic
// export.
type Tracer struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	exporter SpanExporter
	sampler  float64 // 0.0-1.0 sampling rate
	buffer   []*Span
	bufSize  int
	stopCh   chan struct{}
}

// NewTracer creates a Tracer. sampleRate <= 0 samples everything, which
// is the right default for a pipeline whose request/pass volume is low
// enough that head-based sampling buys nothing.
func NewTracer(logger zerolog.Logger, exporter SpanExporter, sampleRate float64) *Tracer {
	if sampleRate <= 0 {
		sampleRate = 1.0
	}
	t := &Tracer{
		logger:   logger.With().Str("component", "tracer").Logger(),
		exporter: exporter,
		sampler:  sampleRate,
		buffer:   make([]*Span, 0, 1000),
		bufSize:  1000,
		stopCh:   make(chan struct{}),
	}
	go t.periodicFlush()
	return t
}

// periodicFlush drains the span buffer every 10 seconds, so spans from
// a long-idle continuous-mode worker don't sit unexported indefinitely.
func (t *Tracer) periodicFlush() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.flush()
		case <-t.stopCh:
			return
		}
	}
}

// Stop shuts down the periodic flush goroutine and exports remaining spans.
func (t *Tracer) Stop() {
	close(t.stopCh)
	t.flush()
}

// StartSpan creates a new root span named after the operation it
// covers (e.g. "clean.pass", "GET /api/snapshot").
func (t *Tracer) StartSpan(name string) *Span {
	traceID := generateTraceID()
	return &Span{
		Name:       name,
		TraceID:    traceID,
		SpanID:     generateSpanID(),
		Sampled:    t.shouldSample(traceID),
		StartTime:  time.Now().UTC(),
		Attributes: make(map[string]string),
		StatusCode: "UNSET",
	}
}

// shouldSample applies the tracer's sampling rate deterministically
// off the trace ID's last 4 bytes, so repeated calls with the same ID
// (there are none here, but the method stays independent of call
// order) always land on the same decision.
func (t *Tracer) shouldSample(id TraceID) bool {
	if t.sampler >= 1.0 {
		return true
	}
	v := binary.BigEndian.Uint32(id[12:16])
	return float64(v)/float64(^uint32(0)) < t.sampler
}

// EndSpan finishes a span and buffers it for export.
func (t *Tracer) EndSpan(span *Span) {
	span.End()
	if !span.Sampled {
		return
	}

	t.mu.Lock()
	t.buffer = append(t.buffer, span)
	shouldFlush := len(t.buffer) >= t.bufSize
	t.mu.Unlock()

	if shouldFlush {
		t.flush()
	}
}

func (t *Tracer) flush() {
	t.mu.Lock()
	if len(t.buffer) == 0 {
		t.mu.Unlock()
		return
	}
	spans := t.buffer
	t.buffer = make([]*Span, 0, t.bufSize)
	t.mu.Unlock()

	if t.exporter != nil {
		if err := t.exporter.Export(spans); err != nil {
			t.logger.Error().Err(err).Int("spans", len(spans)).Msg("span export failed")
		}
	}
}

// Shutdown flushes remaining spans and closes the exporter.
func (t *Tracer) Shutdown() {
	t.flush()
	if t.exporter != nil {
		_ = t.exporter.Shutdown()
	}
}

// LogExporter writes spans as structured log entries. It's the only
// exporter this pipeline ships, since no tracing backend is in scope.
type LogExporter struct {
	logger zerolog.Logger
}

func NewLogExporter(logger zerolog.Logger) *LogExporter {
	return &LogExporter{logger: logger.With().Str("exporter", "log").Logger()}
}

func (e *LogExporter) Export(spans []*Span) error {
	for _, s := range spans {
		evt := e.logger.Debug().
			Str("name", s.Name).
			Str("trace_id", s.TraceID.String()).
			Str("span_id", s.SpanID.String()).
			Dur("duration", s.Duration()).
			Str("status", s.StatusCode)
		for k, v := range s.Attributes {
			evt = evt.Str("attr."+k, v)
		}
		evt.Int("events", len(s.Events)).Msg("span")
	}
	return nil
}

func (e *LogExporter) Shutdown() error { return nil }

type traceCtxKey struct{}

// SpanFromContext retrieves the current request's span from context,
// for handlers that want to annotate it (e.g. noting a store round
// trip) without threading the span through every function signature.
func SpanFromContext(ctx context.Context) *Span {
	if s, ok := ctx.Value(traceCtxKey{}).(*Span); ok {
		return s
	}
	return nil
}

// ContextWithSpan stores a span in context.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, traceCtxKey{}, span)
}

// TracingMiddleware starts one span per Read API request (§4.5) and
// records the standard HTTP attributes plus the final status.
func TracingMiddleware(tracer *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := tracer.StartSpan(fmt.Sprintf("%s %s", r.Method, r.URL.Path))
			span.SetAttribute("http.method", r.Method)
			span.SetAttribute("http.target", r.URL.Path)
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				span.SetAttribute("pipeline.request_id", reqID)
			}

			w.Header().Set("X-Trace-ID", span.TraceID.String())
			ctx := ContextWithSpan(r.Context(), span)

			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttribute("http.status_code", fmt.Sprintf("%d", rw.Status()))
			if rw.Status() >= 500 {
				span.SetStatus("ERROR", fmt.Sprintf("HTTP %d", rw.Status()))
			} else {
				span.SetStatus("OK", "")
			}
			tracer.EndSpan(span)
		})
	}
}

// StagePass records one finished stage pass as a span named
// "<stage>.pass", with the pass's error (if any) as the span status and
// its item counts as a single event — the same shape TracingMiddleware
// gives one HTTP request, applied to one Scrape/Clean/Analyze pass
// instead. The span is started and ended here, after the pass has
// returned, so its duration does not cover the pass itself.
func StagePass(tracer *Tracer, stage string, stats map[string]interface{}, passErr error) {
	span := tracer.StartSpan(stage + ".pass")
	attrs := make(map[string]string, len(stats))
	for k, v := range stats {
		attrs[k] = fmt.Sprintf("%v", v)
	}
	span.AddEvent("stats", attrs)
	if passErr != nil {
		span.SetStatus("ERROR", passErr.Error())
	} else {
		span.SetStatus("OK", "")
	}
	tracer.EndSpan(span)
}
