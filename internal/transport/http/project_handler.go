package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/pkg/contracts/domain"
)

// ProjectHandler serves project CRUD and per-project progress.
type ProjectHandler struct {
	projects     ProjectService
	dashboard    DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewProjectHandler creates a project handler.
func NewProjectHandler(projects ProjectService, dashboard DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ProjectHandler {
	return &ProjectHandler{
		projects:     projects,
		dashboard:    dashboard,
		logger:       logger.With(slog.String("handler", "projects")),
		errorHandler: errorHandler,
	}
}

// Routes returns the project routes
func (h *ProjectHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/progress", h.Progress)
	})
	return r
}

// List handles GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderList(w, r, projects, len(projects))
}

// Get handles GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.ProjectInput
	if !decode(w, r, h.errorHandler, &in) {
		return
	}
	p, err := h.projects.Create(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderCreated(w, r, p)
}

// Update handles PUT /api/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in domain.ProjectInput
	if !decode(w, r, h.errorHandler, &in) {
		return
	}
	p, err := h.projects.Update(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

// Delete handles DELETE /api/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), sessionFrom(r), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Progress handles GET /api/projects/{id}/progress
func (h *ProjectHandler) Progress(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.Progress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}
