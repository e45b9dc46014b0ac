package session

import (
	"context"
	"net/http"
	"strings"

	"buildtrack/pkg/contracts/domain"
)

type contextKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*domain.Session)
	return s, ok && s != nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
