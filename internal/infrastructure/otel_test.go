package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"buildtrack/internal/shared/testutil"
)

func newTestMetrics(t *testing.T) (*BusinessMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestInitializeOTel(t *testing.T) {
	logger, buf := testutil.NewTestLogger(t)
	cfg := DefaultOTelConfig()

	providers, err := InitializeOTel(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	require.NotNil(t, providers.PrometheusHTTP)
	assert.True(t, buf.ContainsMessage("OpenTelemetry initialized"))

	_, err = CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeOTelRejectsUnknownExporter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "jaeger"
	_, err := InitializeOTel(cfg, logger)
	assert.Error(t, err)

	cfg = DefaultOTelConfig()
	cfg.EnableTracing = false
	cfg.MetricExporter = "statsd"
	_, err = InitializeOTel(cfg, logger)
	assert.Error(t, err)
}

func TestBusinessMetricsRecorders(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestMetrics(t)

	m.RecordExport(ctx, "pdf", 2*time.Second, nil)
	m.RecordExport(ctx, "xlsx", time.Second, errors.New("disk full"))
	m.RecordSkipped(ctx, "photo", 3)
	m.RecordSkipped(ctx, "chart", 0)
	m.RecordReportSubmitted(ctx, "p1")
	m.RecordSanitizerProblems(ctx, 2)
	m.SessionOpened(ctx, 1)
	m.WebSocketConnected(ctx, 1)
	m.WebSocketConnected(ctx, -1)

	assert.Equal(t, int64(2), sumOf(t, reader, "exports_total"))
	assert.Equal(t, int64(3), sumOf(t, reader, "export_items_skipped_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "reports_submitted_total"))
	assert.Equal(t, int64(2), sumOf(t, reader, "sanitizer_problems_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "active_sessions"))
	assert.Equal(t, int64(0), sumOf(t, reader, "websocket_clients"))
}

func TestNilBusinessMetricsIsSafe(t *testing.T) {
	var m *BusinessMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordExport(ctx, "pdf", time.Second, nil)
		m.RecordSkipped(ctx, "photo", 1)
		m.RecordReportSubmitted(ctx, "p1")
		m.RecordSanitizerProblems(ctx, 1)
		m.SessionOpened(ctx, 1)
		m.WebSocketConnected(ctx, 1)
		m.RecordSystemError(ctx, "hub")
	})
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "export")
	assert.NotEmpty(t, TraceIDFromContext(ctx))

	AddSpanEvent(ctx, "rows.cleaned", map[string]interface{}{"rows": 4, "flagged": true})
	SetSpanAttributes(ctx, map[string]interface{}{"format": "pdf", "ratio": 0.5})
	RecordError(ctx, errors.New("font missing"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Events(), 2, "event plus recorded error")
	assert.Equal(t, "font missing", spans[0].Status().Description)

	assert.Empty(t, TraceIDFromContext(context.Background()))
}
