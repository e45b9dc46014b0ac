// Package http implements the HTTP handlers of the BuildTrack API.
//
// Handlers are thin: they decode the request, take the caller's session from
// the request context, call a service and render the result. Errors go
// through the shared errors.ErrorHandler and leave as RFC 7807 problems;
// RegisterErrorMappings teaches the handler the service sentinels.
//
// # Routes
//
//	GET    /api/health
//	POST   /api/session                  sign in with a bearer token
//	GET    /api/session
//	DELETE /api/session
//	GET    /api/projects                 POST, GET/PUT/DELETE /{id}
//	GET    /api/projects/{id}/progress
//	GET    /api/reports                  POST, GET /{id}
//	GET    /api/financials?project_id=&range=
//	GET    /api/materials                POST, /summary, /purchases, /usage
//	GET    /api/access                   /assignments
//	GET    /api/search?q=
//	GET    /api/notifications
//	GET    /api/exports/reports.{xlsx,pdf,csv}
//	GET    /ws
//
// Everything except /api/health, /metrics and POST /api/session runs behind
// middleware.RequireSession.
package http
