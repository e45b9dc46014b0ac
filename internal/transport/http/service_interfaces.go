package http

import (
	"context"

	"buildtrack/internal/financials"
	"buildtrack/internal/services"
	"buildtrack/pkg/contracts/domain"
)

// HealthChecker reports service health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
}

// SessionService signs users in and out.
type SessionService interface {
	SignIn(ctx context.Context, token string) (*domain.Session, error)
	SignOut(id string) error
}

// ProjectService manages projects.
type ProjectService interface {
	List(ctx context.Context) ([]domain.Project, error)
	Get(ctx context.Context, id string) (domain.Project, error)
	Create(ctx context.Context, sess *domain.Session, in domain.ProjectInput) (domain.Project, error)
	Update(ctx context.Context, sess *domain.Session, id string, in domain.ProjectInput) (domain.Project, error)
	Delete(ctx context.Context, sess *domain.Session, id string) error
}

// ReportService submits and lists daily progress reports.
type ReportService interface {
	Submit(ctx context.Context, sess *domain.Session, in domain.NewReport) (domain.Report, error)
	List(ctx context.Context, filter domain.ReportFilter) (domain.SanitizeResult, error)
	Get(ctx context.Context, id string) (domain.Report, []domain.PhotoRef, error)
}

// MaterialService manages the material inventory.
type MaterialService interface {
	List(ctx context.Context) ([]domain.Material, error)
	Create(ctx context.Context, sess *domain.Session, in domain.MaterialInput) (domain.Material, error)
	Purchases(ctx context.Context) ([]domain.MaterialPurchase, error)
	RecordPurchase(ctx context.Context, sess *domain.Session, in domain.PurchaseInput) (domain.MaterialPurchase, error)
	RecordUsage(ctx context.Context, sess *domain.Session, in domain.UsageInput) (domain.MaterialUsage, error)
	Summary(ctx context.Context) (domain.InventorySummary, error)
}

// AccessService manages roles and project assignments.
type AccessService interface {
	Overview(ctx context.Context, sess *domain.Session) (services.AccessOverview, error)
	Assignments(ctx context.Context, sess *domain.Session, userID string) ([]domain.ProjectAssignment, error)
	Assign(ctx context.Context, sess *domain.Session, in domain.AssignmentInput) (domain.ProjectAssignment, error)
	Remove(ctx context.Context, sess *domain.Session, id string) error
}

// DashboardService serves the read-only dashboard views.
type DashboardService interface {
	Financials(ctx context.Context, filter financials.Filter) services.FinancialsView
	Progress(ctx context.Context, projectID string) (services.ProgressView, error)
	Notifications(ctx context.Context) services.NotificationsView
	Search(ctx context.Context, query string) []domain.SearchResult
}

// ExportService builds report exports.
type ExportService interface {
	Export(ctx context.Context, sess *domain.Session, req services.ExportRequest) (*services.Artifact, error)
}
