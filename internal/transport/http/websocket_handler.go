package http

import (
	"log/slog"
	"net/http"

	gws "github.com/gorilla/websocket"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/infrastructure"
	"buildtrack/internal/middleware"
	"buildtrack/internal/session"
	"buildtrack/internal/websocket"
)

// WebSocketHandler upgrades authenticated clients onto the notification hub.
type WebSocketHandler struct {
	hub          *websocket.Hub
	upgrader     *gws.Upgrader
	sessions     middleware.SessionResolver
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(hub *websocket.Hub, upgrader *gws.Upgrader, sessions middleware.SessionResolver, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		upgrader:     upgrader,
		sessions:     sessions,
		logger:       logger.With(slog.String("handler", "websocket")),
		errorHandler: errorHandler,
	}
}

// ServeHTTP handles GET /ws. Browsers cannot set headers on a websocket
// handshake, so the token may also come from the access_token query
// parameter.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := session.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}
	s, err := h.sessions.Resolve(token)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("user_id", s.UserID))
		return
	}

	client := websocket.ServeWS(h.hub, conn, infrastructure.GetTraceID(r.Context()))
	h.logger.InfoContext(r.Context(), "websocket connected",
		slog.String("client_id", client.ID()),
		slog.String("user_id", s.UserID))
}
