package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/middleware"
	"buildtrack/internal/sanitizer"
	"buildtrack/pkg/contracts/domain"
)

const maxReportListLimit = 1000

// ReportHandler serves daily progress reports.
type ReportHandler struct {
	reports      ReportService
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler.
func NewReportHandler(reports ReportService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		reports:      reports,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("handler", "reports")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Submit)
	r.Get("/{id}", h.Get)
	return r
}

// reportRequest is the submission body. report_date is parsed with the same
// rules as stored dates, so "2024-03-04" and RFC 3339 both work.
type reportRequest struct {
	ProjectID       *string `json:"project_id,omitempty"`
	ProjectName     string  `json:"project_name"`
	ReportDate      string  `json:"report_date"`
	Stage           string  `json:"stage"`
	WorkCompleted   string  `json:"work_completed"`
	MaterialsUsed   string  `json:"materials_used"`
	Machinery       string  `json:"machinery"`
	SafetyIncidents string  `json:"safety_incidents"`
	Remarks         string  `json:"remarks"`
	Weather         string  `json:"weather"`
	Manpower        int     `json:"manpower"`
	Cost            float64 `json:"cost"`
}

func (req reportRequest) toNewReport() (domain.NewReport, error) {
	in := domain.NewReport{
		ProjectID:       req.ProjectID,
		ProjectName:     req.ProjectName,
		Stage:           req.Stage,
		WorkCompleted:   req.WorkCompleted,
		MaterialsUsed:   req.MaterialsUsed,
		Machinery:       req.Machinery,
		SafetyIncidents: req.SafetyIncidents,
		Remarks:         req.Remarks,
		Weather:         req.Weather,
		Manpower:        req.Manpower,
		Cost:            req.Cost,
	}
	if req.ReportDate == "" {
		return in, apierrors.ErrValidation("report_date", "report_date is required")
	}
	date, ok := sanitizer.Date(domain.Str(req.ReportDate))
	if !ok {
		return in, apierrors.ErrValidation("report_date", "report_date must be a date")
	}
	in.Date = date
	return in, nil
}

// Submit handles POST /api/reports
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decode(w, r, h.errorHandler, &req) {
		return
	}
	in, err := req.toNewReport()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.reports.Submit(r.Context(), sessionFrom(r), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	renderCreated(w, r, report)
}

type reportListResponse struct {
	Data     []domain.Report  `json:"data"`
	Problems []domain.Problem `json:"problems"`
	Count    int              `json:"count"`
}

// List handles GET /api/reports?project_id=&date_from=&date_to=&limit=
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ReportFilter{ProjectID: r.URL.Query().Get("project_id")}

	var ok bool
	if filter.DateFrom, ok = h.dateParam(w, r, "date_from"); !ok {
		return
	}
	if filter.DateTo, ok = h.dateParam(w, r, "date_to"); !ok {
		return
	}
	if filter.Limit, ok = h.query.ValidateInt(w, r, "limit", 0, maxReportListLimit, 0); !ok {
		return
	}

	result, err := h.reports.List(r.Context(), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, reportListResponse{Data: result.Cleaned, Problems: result.Problems, Count: len(result.Cleaned)})
}

func (h *ReportHandler) dateParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter(name, v))
		return nil, false
	}
	return &t, true
}

type reportDetail struct {
	domain.Report
	Photos []domain.PhotoRef `json:"photos"`
}

// Get handles GET /api/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, photos, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if photos == nil {
		photos = []domain.PhotoRef{}
	}
	render.JSON(w, r, reportDetail{Report: report, Photos: photos})
}
