package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"buildtrack/internal/infrastructure"
)

const (
	maxLoggedBody    = 64 * 1024
	maxLoggedBodyLen = 500
)

var sensitiveFields = []string{
	"password", "token", "access_token", "refresh_token", "secret",
	"api_key", "apiKey", "authorization",
}

// ErrorMiddleware recovers panics and writes one access log line per request.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
	quiet   map[string]bool
}

// NewErrorMiddleware creates the middleware. Successful requests to
// quietPaths, such as scrape and probe endpoints, are logged at debug.
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger, quietPaths ...string) *ErrorMiddleware {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
		quiet:   quiet,
	}
}

func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		var requestBody []byte
		if r.Body != nil && r.ContentLength > 0 && r.ContentLength < maxLoggedBody {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		start := time.Now()
		defer func() {
			if err := recover(); err != nil {
				m.handler.HandlePanic(ww, r, err)
			}
			m.logRequest(r, ww, time.Since(start), requestBody)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) logRequest(r *http.Request, ww middleware.WrapResponseWriter, duration time.Duration, body []byte) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("trace_id", infrastructure.GetTraceID(r.Context())),
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}
	// Bodies are logged for failed requests only, with secrets redacted.
	if status >= http.StatusBadRequest && len(body) > 0 {
		logged := sanitizeRequestBody(string(body))
		if len(logged) > maxLoggedBodyLen {
			logged = logged[:maxLoggedBodyLen] + "..."
		}
		attrs = append(attrs, slog.String("request_body", logged))
	}

	m.logger.LogAttrs(r.Context(), m.levelFor(r.URL.Path, status), "http request", attrs...)
}

func (m *ErrorMiddleware) levelFor(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case m.quiet[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// sanitizeRequestBody redacts sensitive top-level JSON fields. Non-JSON
// bodies are returned unchanged.
func sanitizeRequestBody(body string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body
	}
	for _, field := range sensitiveFields {
		if _, exists := data[field]; exists {
			data[field] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return string(sanitized)
}
