package services

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"buildtrack/internal/financials"
	"buildtrack/internal/progress"
	"buildtrack/internal/sanitizer"
	"buildtrack/internal/search"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

const (
	// NotificationLimit is the number of recent reports shown as
	// notifications.
	NotificationLimit = 5

	notificationSummaryRunes = 80
	upstreamWarning          = "Some data could not be loaded. Showing what is available."
)

// FinancialsView is the financial dashboard payload.
type FinancialsView struct {
	ProjectID string               `json:"project_id,omitempty"`
	Range     financials.TimeRange `json:"range"`
	Stats     domain.StatsSnapshot `json:"stats"`
	Warning   string               `json:"warning,omitempty"`
}

// ProgressView is the stage progress of one project.
type ProgressView struct {
	ProjectID string                 `json:"project_id"`
	Stages    []domain.Stage         `json:"stages"`
	Summary   domain.ProgressSummary `json:"summary"`
	Warning   string                 `json:"warning,omitempty"`
}

// NotificationsView lists the most recent reports.
type NotificationsView struct {
	Notifications []domain.Notification `json:"notifications"`
	Warning       string                `json:"warning,omitempty"`
}

// DashboardService serves the read-only dashboard views. An upstream query
// failure degrades to an empty view carrying a warning.
type DashboardService struct {
	store      store.Store
	engine     *progress.Engine
	catalog    []domain.Stage
	aggregator *financials.Aggregator
	searcher   *search.Searcher
	now        Clock
	logger     *slog.Logger
}

// NewDashboardService creates a dashboard service. A nil engine uses the
// default engine and an empty catalog the default stage catalog.
func NewDashboardService(s store.Store, engine *progress.Engine, catalog []domain.Stage, fallbackBudget float64, logger *slog.Logger) *DashboardService {
	logger = serviceLogger(logger, "dashboard_service")
	if engine == nil {
		engine = progress.NewEngine(progress.WithLogger(logger))
	}
	if len(catalog) == 0 {
		catalog = progress.DefaultCatalog()
	}
	return &DashboardService{
		store:      s,
		engine:     engine,
		catalog:    catalog,
		aggregator: financials.NewAggregator(fallbackBudget),
		searcher:   search.New(s, logger, search.DefaultLimit),
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock replaces the time source used for range filters.
func (s *DashboardService) WithClock(now Clock) *DashboardService {
	s.now = now
	return s
}

// Financials aggregates the reports that pass filter.
func (s *DashboardService) Financials(ctx context.Context, filter financials.Filter) FinancialsView {
	view := FinancialsView{ProjectID: filter.ProjectID, Range: filter.Range}
	if view.Range == "" {
		view.Range = financials.RangeAll
	}

	raw, err := s.store.ListReports(ctx, domain.ReportFilter{ProjectID: filter.ProjectID})
	if err != nil {
		s.upstreamFailed(ctx, "reports", err)
		view.Stats = s.aggregator.Aggregate(nil, nil, nil)
		view.Warning = upstreamWarning
		return view
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.upstreamFailed(ctx, "projects", err)
		view.Warning = upstreamWarning
	}

	now := s.now()
	reports, projects := filter.Apply(sanitizer.New(sanitizer.WithClock(s.now)).Sanitize(raw).Cleaned, projects, now)

	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.ID)
	}
	var entries []domain.CostEntry
	if len(ids) > 0 {
		if entries, err = s.store.CostEntries(ctx, ids); err != nil {
			s.upstreamFailed(ctx, "cost_entries", err)
			view.Warning = upstreamWarning
		}
	}

	view.Stats = s.aggregator.Aggregate(reports, projects, entries)
	return view
}

// Progress computes the stage progress of a project. It returns
// ErrProjectNotFound for an unknown project.
func (s *DashboardService) Progress(ctx context.Context, projectID string) (ProgressView, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return ProgressView{}, notFound(err, ErrProjectNotFound, projectID)
	}

	view := ProgressView{ProjectID: projectID}
	raw, err := s.store.ListReports(ctx, domain.ReportFilter{ProjectID: projectID})
	if err != nil {
		s.upstreamFailed(ctx, "reports", err)
		view.Warning = upstreamWarning
		raw = nil
	}

	reports := sanitizer.New(sanitizer.WithClock(s.now)).Sanitize(raw).Cleaned
	view.Stages = s.engine.Compute(s.catalog, reports)
	view.Summary = progress.Summarize(view.Stages)
	return view, nil
}

// Notifications lists the most recent reports by report date.
func (s *DashboardService) Notifications(ctx context.Context) NotificationsView {
	view := NotificationsView{Notifications: []domain.Notification{}}

	raw, err := s.store.LatestReports(ctx, NotificationLimit)
	if err != nil {
		s.upstreamFailed(ctx, "latest_reports", err)
		view.Warning = upstreamWarning
		return view
	}
	for _, r := range sanitizer.New(sanitizer.WithClock(s.now)).Sanitize(raw).Cleaned {
		view.Notifications = append(view.Notifications, domain.Notification{
			ReportID:    r.ID,
			ProjectName: r.ProjectName,
			Stage:       r.Stage,
			Date:        r.Date,
			Summary:     summarize(r.WorkCompleted, notificationSummaryRunes),
		})
	}
	return view
}

// Search runs the global search.
func (s *DashboardService) Search(ctx context.Context, query string) []domain.SearchResult {
	return s.searcher.Search(ctx, query)
}

func (s *DashboardService) upstreamFailed(ctx context.Context, source string, err error) {
	s.logger.ErrorContext(ctx, "upstream query failed",
		slog.String("source", source),
		slog.String("error", err.Error()))
}

func summarize(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-3]) + "..."
}
