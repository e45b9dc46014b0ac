package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorHelpers(t *testing.T) {
	bad := InvalidParameter("range", "2w")
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Equal(t, "INVALID_PARAMETER", bad.ErrorCode)
	assert.Contains(t, bad.Message, `"2w"`)

	inv := InvalidRequestWithError(stderrors.New("unexpected EOF"))
	assert.Equal(t, "unexpected EOF", inv.Details)

	v := ErrValidation("report_date", "report_date is required")
	details, ok := v.Details.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "report_date", details.Errors[0].Field)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewStorageError("list reports", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[STORAGE] list reports: connection reset", err.Error())
	assert.Equal(t, "list reports", err.Context["op"])

	var appErr *AppError
	require.True(t, stderrors.As(fmt.Errorf("build: %w", NewExportError("pdf", cause)), &appErr))
	assert.Equal(t, ErrTypeExport, appErr.Type)
	assert.Equal(t, "pdf", appErr.Context["format"])

	assert.Equal(t, "[CONFIG] bad driver", NewConfigError("bad driver", nil).Error())
}

func TestSanitizeRequestBody(t *testing.T) {
	got := sanitizeRequestBody(`{"token":"abc","name":"Tower A"}`)
	assert.Contains(t, got, `"token":"[REDACTED]"`)
	assert.Contains(t, got, `"name":"Tower A"`)

	assert.Equal(t, "plain text", sanitizeRequestBody("plain text"))
}

func TestErrorMiddlewareRecoversAndLogsBody(t *testing.T) {
	h, buf := newTestHandler(t)
	mw := NewErrorMiddleware(h, h.logger)

	panicking := mw.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	failing := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleError(w, r, ErrValidation("name", "required"))
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"name":"","password":"x"}`))
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	records := buf.FindRecords("http request")
	require.NotEmpty(t, records)
	found := false
	for _, rec := range records {
		if v, ok := rec.Attrs["request_body"]; ok {
			found = true
			assert.Contains(t, v, "[REDACTED]")
		}
	}
	assert.True(t, found, "failed request body is logged")
}

func TestErrorMiddlewareQuietPaths(t *testing.T) {
	h, buf := newTestHandler(t)
	mw := NewErrorMiddleware(h, h.logger, "/metrics").Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	records := buf.FindRecords("http request")
	require.Len(t, records, 2)
	assert.Equal(t, slog.LevelDebug, records[0].Level)
	assert.Equal(t, slog.LevelInfo, records[1].Level)
}
