package http

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/inventory"
	"buildtrack/internal/services"
	"buildtrack/internal/session"
	"buildtrack/pkg/contracts/domain"
)

// listResponse wraps collection payloads.
type listResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}

// RegisterErrorMappings maps the service and session sentinels to problem
// responses.
func RegisterErrorMappings(h *apierrors.ErrorHandler) *apierrors.ErrorHandler {
	return h.Register(
		apierrors.Mapping{Target: session.ErrUnauthenticated, Status: http.StatusUnauthorized, Type: apierrors.TypeUnauthorized, Title: "Unauthorized"},
		apierrors.Mapping{Target: session.ErrSessionNotFound, Status: http.StatusUnauthorized, Type: apierrors.TypeSessionNotFound, Title: "Session Not Found"},
		apierrors.Mapping{Target: session.ErrForbidden, Status: http.StatusForbidden, Type: apierrors.TypeForbidden, Title: "Forbidden"},

		apierrors.Mapping{Target: services.ErrProjectNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Project Not Found"},
		apierrors.Mapping{Target: services.ErrReportNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Report Not Found"},
		apierrors.Mapping{Target: services.ErrMaterialNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Material Not Found"},
		apierrors.Mapping{Target: services.ErrAssignmentNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Title: "Assignment Not Found"},

		apierrors.Mapping{Target: services.ErrNothingToExport, Status: http.StatusUnprocessableEntity, Type: apierrors.TypeNothingToExport, Title: "Nothing To Export"},
		apierrors.Mapping{Target: services.ErrUnsupportedFormat, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Unsupported Export Format"},
		apierrors.Mapping{Target: services.ErrInsufficientStock, Status: http.StatusConflict, Type: apierrors.TypeInsufficientStock, Title: "Insufficient Stock"},
		apierrors.Mapping{Target: services.ErrAssignmentConflict, Status: http.StatusConflict, Type: apierrors.TypeConflict, Title: "Assignment Exists"},
		apierrors.Mapping{Target: inventory.ErrUnknownCategory, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Unknown Material Category"},
		apierrors.Mapping{Target: inventory.ErrUnknownUnit, Status: http.StatusBadRequest, Type: apierrors.TypeValidation, Title: "Unknown Material Unit"},
	)
}

// sessionFrom returns the session placed by middleware.RequireSession, or
// nil. Services reject a nil session with session.ErrUnauthenticated.
func sessionFrom(r *http.Request) *domain.Session {
	s, _ := session.FromContext(r.Context())
	return s
}

// decode reads a JSON body into v and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		eh.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	return true
}

func renderList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, listResponse{Data: data, Count: count})
}

func renderCreated(w http.ResponseWriter, r *http.Request, v interface{}) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v)
}
