package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"buildtrack/internal/infrastructure"
	"buildtrack/internal/sanitizer"
	"buildtrack/internal/session"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
	"buildtrack/pkg/contracts/events"
)

// ReportService accepts DPR submissions and serves sanitized report lists.
type ReportService struct {
	store     store.Store
	validator Validator
	publisher Publisher
	metrics   *infrastructure.BusinessMetrics
	sanitizer *sanitizer.Sanitizer
	now       Clock
	logger    *slog.Logger
}

// NewReportService creates a report service. publisher and metrics may be nil.
func NewReportService(s store.Store, v Validator, p Publisher, m *infrastructure.BusinessMetrics, logger *slog.Logger) *ReportService {
	if v == nil {
		v = nopValidator{}
	}
	if p == nil {
		p = nopPublisher{}
	}
	logger = serviceLogger(logger, "report_service")
	return &ReportService{
		store:     s,
		validator: v,
		publisher: p,
		metrics:   m,
		sanitizer: sanitizer.New(sanitizer.WithLogger(logger)),
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the submission timestamp source.
func (s *ReportService) WithClock(now Clock) *ReportService {
	s.now = now
	s.sanitizer = sanitizer.New(sanitizer.WithLogger(s.logger), sanitizer.WithClock(now))
	return s
}

// Submit validates a new report, stores it and broadcasts report:submitted.
func (s *ReportService) Submit(ctx context.Context, sess *domain.Session, in domain.NewReport) (domain.Report, error) {
	if err := session.Require(sess, domain.PermissionSubmitReports); err != nil {
		return domain.Report{}, err
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return domain.Report{}, err
	}

	projectName := in.ProjectName
	if in.ProjectID != nil {
		p, err := s.store.GetProject(ctx, *in.ProjectID)
		if err != nil {
			return domain.Report{}, notFound(err, ErrProjectNotFound, *in.ProjectID)
		}
		projectName = p.Name
	}

	submittedAt := s.now().UTC()
	raw := domain.RawReport{
		ProjectID:       in.ProjectID,
		ProjectName:     projectName,
		Date:            domain.Str(in.Date.Format("2006-01-02")),
		Stage:           in.Stage,
		Cost:            domain.Num(in.Cost),
		Manpower:        domain.Num(float64(in.Manpower)),
		WorkCompleted:   in.WorkCompleted,
		MaterialsUsed:   in.MaterialsUsed,
		Remarks:         in.Remarks,
		Weather:         in.Weather,
		Machinery:       in.Machinery,
		SafetyIncidents: in.SafetyIncidents,
		CreatedAt:       &submittedAt,
	}
	created, err := s.store.CreateReport(ctx, raw)
	if err != nil {
		return domain.Report{}, fmt.Errorf("create report: %w", err)
	}
	if created.ProjectName == "" {
		created.ProjectName = projectName
	}

	report := s.sanitizer.Sanitize([]domain.RawReport{created}).Cleaned[0]
	s.metrics.RecordReportSubmitted(ctx, report.ProjectKey())
	s.logger.InfoContext(ctx, "report submitted",
		slog.String("report_id", report.ID),
		slog.String("project_id", report.ProjectKey()),
		slog.String("user_id", sess.UserID))

	publish(ctx, s.publisher, s.logger, events.MessageTypeReportSubmitted, events.ReportSubmitted{
		ReportID:    report.ID,
		ProjectID:   report.ProjectKey(),
		ProjectName: report.ProjectName,
		ReportDate:  report.Date.Format("2006-01-02"),
		Stage:       report.Stage,
		SubmittedBy: sess.Email,
		SubmittedAt: submittedAt,
	})
	return report, nil
}

// List reads matching reports and sanitizes them. Problem indices refer to
// positions in the returned Cleaned slice.
func (s *ReportService) List(ctx context.Context, filter domain.ReportFilter) (domain.SanitizeResult, error) {
	raw, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return domain.SanitizeResult{}, fmt.Errorf("list reports: %w", err)
	}
	return s.sanitize(ctx, raw), nil
}

// Get returns one sanitized report and its photos.
func (s *ReportService) Get(ctx context.Context, id string) (domain.Report, []domain.PhotoRef, error) {
	raw, err := s.store.GetReport(ctx, id)
	if err != nil {
		return domain.Report{}, nil, notFound(err, ErrReportNotFound, id)
	}
	report := s.sanitizer.Sanitize([]domain.RawReport{raw}).Cleaned[0]

	photos, err := s.store.Photos(ctx, []string{id})
	if err != nil {
		s.logger.WarnContext(ctx, "photos unavailable",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
		photos = nil
	}
	return report, photos, nil
}

func (s *ReportService) sanitize(ctx context.Context, raw []domain.RawReport) domain.SanitizeResult {
	result := s.sanitizer.Sanitize(raw)
	if n := len(result.Problems); n > 0 {
		s.metrics.RecordSanitizerProblems(ctx, n)
	}
	return result
}
