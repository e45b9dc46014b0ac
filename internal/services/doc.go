// Package services implements the application layer of BuildTrack. Services
// sit between the HTTP handlers and the data-access collaborator and run the
// core modules (sanitizer, progress engine, financial aggregator, export
// assembler) over store snapshots.
//
// # Service Pattern
//
// Services take their collaborators by injection and the caller's session as
// an explicit argument:
//
//	svc := NewReportService(store, validator, hub, metrics, logger)
//	report, err := svc.Submit(ctx, sess, input)
//
// Operations that change data or produce exports check the session's
// permissions before touching the store.
//
// # Available Services
//
//	- ProjectService: project CRUD with validation
//	- ReportService: DPR submission and sanitized listing
//	- MaterialService: inventory, purchases and usage
//	- AccessService: roles, users and project assignments
//	- ExportService: xlsx, pdf and csv export pipeline
//	- DashboardService: financial stats, stage progress, notifications, search
//	- HealthService: liveness and dependency checks
//
// # Error Handling
//
// Services return the sentinels in errors.go, or wrap store and session
// sentinels, so handlers can map them with errors.Is:
//
//	- ErrProjectNotFound, ErrReportNotFound, ErrMaterialNotFound
//	- ErrInsufficientStock when a usage exceeds current stock
//	- ErrNothingToExport when an export has no records
//	- session.ErrUnauthenticated and session.ErrForbidden for access checks
//
// Dashboard reads never fail on an upstream query error. They return an
// empty view with a warning instead.
package services
