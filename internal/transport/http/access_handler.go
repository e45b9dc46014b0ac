package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/pkg/contracts/domain"
)

// AccessHandler serves role and project assignment management.
type AccessHandler struct {
	access       AccessService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAccessHandler creates an access handler.
func NewAccessHandler(access AccessService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AccessHandler {
	return &AccessHandler{
		access:       access,
		logger:       logger.With(slog.String("handler", "access")),
		errorHandler: errorHandler,
	}
}

// Routes returns the access routes
func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Overview)
	r.Get("/assignments", h.Assignments)
	r.Post("/assignments", h.Assign)
	r.Delete("/assignments/{id}", h.Remove)
	return r
}

// Overview handles GET /api/access
func (h *AccessHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.access.Overview(r.Context(), sessionFrom(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, overview)
}

// Assignments handles GET /api/access/assignments?user_id=
func (h *AccessHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.access.Assignments(r.Context(), sessionFrom(r), r.URL.Query().Get("user_id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderList(w, r, assignments, len(assignments))
}

// Assign handles POST /api/access/assignments
func (h *AccessHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var in domain.AssignmentInput
	if !decode(w, r, h.errorHandler, &in) {
		return
	}
	a, err := h.access.Assign(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "project assigned",
		slog.String("user_id", a.UserID),
		slog.String("project_id", a.ProjectID),
		slog.String("role_id", a.RoleID))
	renderCreated(w, r, a)
}

// Remove handles DELETE /api/access/assignments/{id}
func (h *AccessHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.access.Remove(r.Context(), sessionFrom(r), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
