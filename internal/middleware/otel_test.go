package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"buildtrack/internal/infrastructure"
	"buildtrack/internal/shared/testutil"
)

func TestOTelMiddlewareRecordsRouteAndStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)
	logger, _ := testutil.NewTestLogger(t)

	r := chi.NewRouter()
	r.Use(NewOTelMiddleware(tp.Tracer("test"), metrics, logger).Handler)
	r.Get("/api/projects/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/p9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/projects/{id}", spans[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var requests int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http_requests_total" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					requests += dp.Value
					route, _ := dp.Attributes.Value("route")
					assert.Equal(t, "/api/projects/{id}", route.AsString())
				}
			}
		}
	}
	assert.Equal(t, int64(1), requests)
}

func TestOTelMiddlewareWithoutMetrics(t *testing.T) {
	h := NewOTelMiddleware(nil, nil, nil).Handler(okHandler)
	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBusinessMetricsContext(t *testing.T) {
	m := &infrastructure.BusinessMetrics{}
	var got *infrastructure.BusinessMetrics
	BusinessMetricsMiddleware(m)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetBusinessMetricsFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Same(t, m, got)
	assert.Nil(t, GetBusinessMetricsFromContext(context.Background()))
}

func TestTraceMiddlewareNamesSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	h := TraceMiddleware("export.render")(okHandler)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/exports/pdf", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "export.render", spans[0].Name())
}
