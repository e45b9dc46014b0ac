package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/services"
)

// ExportHandler streams report exports as downloads.
type ExportHandler struct {
	exports      ExportService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates an export handler.
func NewExportHandler(exports ExportService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		exports:      exports,
		logger:       logger.With(slog.String("handler", "exports")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/reports.{format}", h.Reports)
	return r
}

// Reports handles GET /api/exports/reports.{xlsx,pdf,csv}?project_id=&range=
func (h *ExportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	format, err := services.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filter, ok := filterFromQuery(w, r, h.errorHandler)
	if !ok {
		return
	}

	art, err := h.exports.Export(r.Context(), sessionFrom(r), services.ExportRequest{Format: format, Filter: filter})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", art.ContentType())
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	header.Set("Content-Length", strconv.Itoa(len(art.Data)))
	header.Set("X-Export-Rows", strconv.Itoa(art.Rows))
	header.Set("X-Export-Charts-Skipped", strconv.Itoa(art.ChartsSkipped))
	header.Set("X-Export-Photos-Skipped", strconv.Itoa(art.PhotosSkipped))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		h.logger.WarnContext(r.Context(), "export download interrupted",
			slog.String("file", art.FileName),
			slog.String("error", err.Error()))
	}
}
