package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/pkg/contracts/domain"
)

// MaterialHandler serves the material inventory.
type MaterialHandler struct {
	materials    MaterialService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMaterialHandler creates a material handler.
func NewMaterialHandler(materials MaterialService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MaterialHandler {
	return &MaterialHandler{
		materials:    materials,
		logger:       logger.With(slog.String("handler", "materials")),
		errorHandler: errorHandler,
	}
}

// Routes returns the material routes
func (h *MaterialHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/summary", h.Summary)
	r.Get("/purchases", h.Purchases)
	r.Post("/purchases", h.RecordPurchase)
	r.Post("/usage", h.RecordUsage)
	return r
}

// List handles GET /api/materials
func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	materials, err := h.materials.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderList(w, r, materials, len(materials))
}

// Create handles POST /api/materials
func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.MaterialInput
	if !decode(w, r, h.errorHandler, &in) {
		return
	}
	m, err := h.materials.Create(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderCreated(w, r, m)
}

// Summary handles GET /api/materials/summary
func (h *MaterialHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.materials.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Purchases handles GET /api/materials/purchases
func (h *MaterialHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.materials.Purchases(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderList(w, r, purchases, len(purchases))
}

// RecordPurchase handles POST /api/materials/purchases
func (h *MaterialHandler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var in domain.PurchaseInput
	if !decode(w, r, h.errorHandler, &in) {
		return
	}
	p, err := h.materials.RecordPurchase(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderCreated(w, r, p)
}

// RecordUsage handles POST /api/materials/usage
func (h *MaterialHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var in domain.UsageInput
	if !decode(w, r, h.errorHandler, &in) {
		return
	}
	u, err := h.materials.RecordUsage(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderCreated(w, r, u)
}
