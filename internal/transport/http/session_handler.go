package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/middleware"
	"buildtrack/internal/session"
)

// SessionHandler handles sign-in and sign-out.
type SessionHandler struct {
	sessions     SessionService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions SessionService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		logger:       logger.With(slog.String("handler", "session")),
		errorHandler: errorHandler,
	}
}

type signInRequest struct {
	AccessToken string `json:"access_token"`
}

// SignIn handles POST /api/session. The token comes from the Authorization
// header or, failing that, the access_token body field.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	token := session.BearerToken(r)
	if token == "" && r.ContentLength != 0 {
		var req signInRequest
		if !decode(w, r, h.errorHandler, &req) {
			return
		}
		token = strings.TrimSpace(req.AccessToken)
	}

	s, err := h.sessions.SignIn(r.Context(), token)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	middleware.GetBusinessMetricsFromContext(r.Context()).SessionOpened(r.Context(), 1)
	renderCreated(w, r, s)
}

// Current handles GET /api/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if s == nil {
		h.errorHandler.HandleError(w, r, session.ErrUnauthenticated)
		return
	}
	render.JSON(w, r, s)
}

// SignOut handles DELETE /api/session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if s == nil {
		h.errorHandler.HandleError(w, r, session.ErrUnauthenticated)
		return
	}
	if err := h.sessions.SignOut(s.ID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	middleware.GetBusinessMetricsFromContext(r.Context()).SessionOpened(r.Context(), -1)
	h.logger.InfoContext(r.Context(), "signed out", slog.String("user_id", s.UserID))
	w.WriteHeader(http.StatusNoContent)
}
