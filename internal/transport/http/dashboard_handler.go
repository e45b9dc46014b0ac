package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/financials"
)

// DashboardHandler serves the financial dashboard, notifications and search.
type DashboardHandler struct {
	dashboard    DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(dashboard DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		dashboard:    dashboard,
		logger:       logger.With(slog.String("handler", "dashboard")),
		errorHandler: errorHandler,
	}
}

// filterFromQuery reads project_id and range. An unknown range answers 400.
func filterFromQuery(w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler) (financials.Filter, bool) {
	q := r.URL.Query()
	rng, err := financials.ParseRange(q.Get("range"))
	if err != nil {
		eh.HandleError(w, r, apierrors.InvalidParameter("range", q.Get("range")))
		return financials.Filter{}, false
	}
	return financials.Filter{ProjectID: q.Get("project_id"), Range: rng}, true
}

// Financials handles GET /api/financials?project_id=&range=
func (h *DashboardHandler) Financials(w http.ResponseWriter, r *http.Request) {
	filter, ok := filterFromQuery(w, r, h.errorHandler)
	if !ok {
		return
	}
	render.JSON(w, r, h.dashboard.Financials(r.Context(), filter))
}

// Notifications handles GET /api/notifications
func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.dashboard.Notifications(r.Context()))
}

// Search handles GET /api/search?q=
func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	results := h.dashboard.Search(r.Context(), r.URL.Query().Get("q"))
	renderList(w, r, results, len(results))
}
