package middleware

import (
	"net/http"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/session"
	"buildtrack/pkg/contracts/domain"
)

// SessionResolver maps a bearer token to a live session.
type SessionResolver interface {
	Resolve(token string) (*domain.Session, error)
}

// RequireSession rejects requests without a live session and stores the
// resolved session in the request context.
func RequireSession(resolver SessionResolver, errorHandler *apierrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := resolver.Resolve(session.BearerToken(r))
			if err != nil {
				errorHandler.HandleError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}

// RequirePermission rejects requests whose session lacks permission.
// It must run after RequireSession.
func RequirePermission(permission string, errorHandler *apierrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := session.FromContext(r.Context())
			if err := session.Require(s, permission); err != nil {
				errorHandler.HandleError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
