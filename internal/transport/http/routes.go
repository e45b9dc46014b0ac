package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/middleware"
)

// API groups the handlers mounted by Mount. Nil handlers are skipped.
type API struct {
	Health    *HealthHandler
	Metrics   http.Handler
	Sessions  *SessionHandler
	Projects  *ProjectHandler
	Reports   *ReportHandler
	Dashboard *DashboardHandler
	Materials *MaterialHandler
	Access    *AccessHandler
	Exports   *ExportHandler
	WebSocket http.Handler

	// Validation guards JSON bodies on write routes when set.
	Validation *middleware.ValidationMiddleware

	// RequestTimeout bounds the JSON routes. Exports carry their own timeout.
	RequestTimeout time.Duration
}

// Mount registers every route on r. Routes other than the health check, the
// metrics scrape and sign-in require a session resolved by resolver.
func (a *API) Mount(r chi.Router, resolver middleware.SessionResolver, eh *apierrors.ErrorHandler) {
	if a.Metrics != nil {
		r.Handle("/metrics", a.Metrics)
	}
	if a.WebSocket != nil {
		r.Handle("/ws", a.WebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		if a.Health != nil {
			r.Get("/health", a.Health.HealthCheck)
		}
		if a.Sessions != nil {
			r.Post("/session", a.Sessions.SignIn)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(resolver, eh))

			r.Group(func(r chi.Router) {
				if a.RequestTimeout > 0 {
					r.Use(middleware.Timeout(a.RequestTimeout))
				}
				if a.Validation != nil {
					r.Use(a.Validation.ValidateRequest)
					r.Use(a.Validation.RequireContentType("application/json"))
				}
				if a.Sessions != nil {
					r.Get("/session", a.Sessions.Current)
					r.Delete("/session", a.Sessions.SignOut)
				}
				if a.Projects != nil {
					r.Mount("/projects", a.Projects.Routes())
				}
				if a.Reports != nil {
					r.Mount("/reports", a.Reports.Routes())
				}
				if a.Dashboard != nil {
					r.Get("/financials", a.Dashboard.Financials)
					r.Get("/notifications", a.Dashboard.Notifications)
					r.Get("/search", a.Dashboard.Search)
				}
				if a.Materials != nil {
					r.Mount("/materials", a.Materials.Routes())
				}
				if a.Access != nil {
					r.Mount("/access", a.Access.Routes())
				}
			})

			if a.Exports != nil {
				r.With(middleware.TraceMiddleware("export.render")).Mount("/exports", a.Exports.Routes())
			}
		})
	})
}
