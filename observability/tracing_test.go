package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/pipeline/observability"
)

type recordingExporter struct {
	spans []*observability.Span
}

func (r *recordingExporter) Export(spans []*observability.Span) error {
	r.spans = append(r.spans, spans...)
	return nil
}

func (r *recordingExporter) Shutdown() error { return nil }

func TestStagePassRecordsStatsAndStatus(t *testing.T) {
	rec := &recordingExporter{}
	tracer := observability.NewTracer(zerolog.Nop(), rec, 1.0)

	observability.StagePass(tracer, "clean", map[string]interface{}{"processed": 3, "cleaned": 2}, nil)
	tracer.Stop()

	require.Len(t, rec.spans, 1)
	span := rec.spans[0]
	require.Equal(t, "clean.pass", span.Name)
	require.Equal(t, "OK", span.StatusCode)
	require.Len(t, span.Events, 1)
	require.Equal(t, "3", span.Events[0].Attributes["processed"])
}

func TestStagePassRecordsErrorStatus(t *testing.T) {
	rec := &recordingExporter{}
	tracer := observability.NewTracer(zerolog.Nop(), rec, 1.0)

	observability.StagePass(tracer, "scrape", nil, errors.New("raw store unreachable"))
	tracer.Stop()

	require.Len(t, rec.spans, 1)
	require.Equal(t, "ERROR", rec.spans[0].StatusCode)
	require.Equal(t, "raw store unreachable", rec.spans[0].StatusMsg)
}

func TestTracerFullSampleRateAlwaysSamples(t *testing.T) {
	rec := &recordingExporter{}
	tracer := observability.NewTracer(zerolog.Nop(), rec, 1.0)

	span := tracer.StartSpan("GET /api/snapshot")
	require.True(t, span.Sampled)
	tracer.EndSpan(span)
	tracer.Stop()

	require.Len(t, rec.spans, 1)
}

func TestNewTracerNonPositiveRateDefaultsToFullSampling(t *testing.T) {
	rec := &recordingExporter{}
	tracer := observability.NewTracer(zerolog.Nop(), rec, 0)

	span := tracer.StartSpan("clean.pass")
	require.True(t, span.Sampled, "a non-positive rate means \"sample everything\", not \"sample nothing\"")
	tracer.EndSpan(span)
	tracer.Stop()
}

func TestSpanFromContextRoundTrip(t *testing.T) {
	tracer := observability.NewTracer(zerolog.Nop(), observability.NewLogExporter(zerolog.Nop()), 1.0)
	span := tracer.StartSpan("test")

	ctx := observability.ContextWithSpan(context.Background(), span)
	require.Same(t, span, observability.SpanFromContext(ctx))
}
