package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"buildtrack/internal/services"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status services.HealthStatus
		code   int
	}{
		{
			name:   "ok",
			status: services.HealthStatus{Status: "ok", Timestamp: time.Now(), Version: "1.0.0"},
			code:   http.StatusOK,
		},
		{
			name: "degraded",
			status: services.HealthStatus{Status: "degraded", Timestamp: time.Now(), Version: "1.0.0",
				Services: map[string]services.ServiceHealth{"store": {Status: "error", Message: "connection refused"}}},
			code: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.health.On("HealthCheck").Return(tt.status).Once()

			rec := env.do(t, http.MethodGet, "/api/health", "", nil)
			requireStatus(t, rec, tt.code)
			assert.Equal(t, tt.status.Status, decodeBody(t, rec)["status"])
			env.health.AssertExpectations(t)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("buildtrack_reports_submitted_total 3\n"))
	})
	rec := httptest.NewRecorder()
	NewMetricsHandler(exporter).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "buildtrack_reports_submitted_total")

	rec = httptest.NewRecorder()
	NewMetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
