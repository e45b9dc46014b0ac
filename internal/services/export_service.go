package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"buildtrack/internal/charts"
	"buildtrack/internal/config"
	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/exporter"
	"buildtrack/internal/financials"
	"buildtrack/internal/infrastructure"
	"buildtrack/internal/photos"
	"buildtrack/internal/sanitizer"
	"buildtrack/internal/session"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
	"buildtrack/pkg/contracts/events"
)

// ExportFormat is an export artifact type.
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
	FormatCSV  ExportFormat = "csv"
)

// ParseFormat parses an export format name.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatPDF, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// Snapshot is the record set one export is built from. Later changes to the
// store are not reflected in an export that already took its snapshot.
type Snapshot struct {
	Reports     []domain.RawReport `json:"reports"`
	Projects    []domain.Project   `json:"projects"`
	CostEntries []domain.CostEntry `json:"cost_entries"`
	Photos      []domain.PhotoRef  `json:"photos"`
}

// ExportRequest selects the format and the records to export.
type ExportRequest struct {
	Format ExportFormat
	Filter financials.Filter
}

// Artifact is a finished export.
type Artifact struct {
	Format        ExportFormat
	FileName      string
	Data          []byte
	Charts        []charts.Image
	Rows          int
	Flagged       int
	ChartsSkipped int
	// PhotosSkipped counts photos left out of a PDF because they could not
	// be fetched, decoded or embedded.
	PhotosSkipped int
}

// ContentType returns the MIME type of the artifact.
func (a *Artifact) ContentType() string { return a.Format.ContentType() }

// ExportService runs the export pipeline: snapshot, sanitize, aggregate,
// render charts, fetch photos, build the artifact. Steps run one after
// another; chart and photo failures leave that piece out.
type ExportService struct {
	store      store.Store
	renderer   charts.Renderer
	fetcher    photos.Fetcher
	publisher  Publisher
	metrics    *infrastructure.BusinessMetrics
	aggregator *financials.Aggregator
	cfg        config.ExportConfig
	now        Clock
	logger     *slog.Logger
}

// NewExportService creates an export service. renderer and fetcher may be
// nil, in which case exports carry no charts or no photos.
func NewExportService(s store.Store, r charts.Renderer, f photos.Fetcher, p Publisher, m *infrastructure.BusinessMetrics, cfg config.ExportConfig, logger *slog.Logger) *ExportService {
	if p == nil {
		p = nopPublisher{}
	}
	if cfg.Title == "" {
		cfg.Title = "Daily Progress Report"
	}
	return &ExportService{
		store:      s,
		renderer:   r,
		fetcher:    f,
		publisher:  p,
		metrics:    m,
		aggregator: financials.NewAggregator(cfg.FallbackBudget),
		cfg:        cfg,
		now:        time.Now,
		logger:     serviceLogger(logger, "export_service"),
	}
}

// WithClock replaces the time source used for range filters and artifact
// timestamps.
func (s *ExportService) WithClock(now Clock) *ExportService {
	s.now = now
	return s
}

// Export snapshots the store and builds the requested artifact. It requires
// the reports:export permission.
func (s *ExportService) Export(ctx context.Context, sess *domain.Session, req ExportRequest) (*Artifact, error) {
	if err := session.Require(sess, domain.PermissionExportReports); err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := s.snapshot(ctx, req.Filter.ProjectID)
	if err != nil {
		s.metrics.RecordExport(ctx, string(req.Format), time.Since(start), err)
		return nil, err
	}
	art, err := s.Build(ctx, req, snap)
	s.metrics.RecordExport(ctx, string(req.Format), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSkipped(ctx, "chart", art.ChartsSkipped)
	s.metrics.RecordSkipped(ctx, "photo", art.PhotosSkipped)
	s.logger.InfoContext(ctx, "export completed",
		slog.String("format", string(art.Format)),
		slog.Int("rows", art.Rows),
		slog.Int("bytes", len(art.Data)),
		slog.Int("charts_skipped", art.ChartsSkipped),
		slog.Int("photos_skipped", art.PhotosSkipped),
		slog.Duration("duration", time.Since(start)),
		slog.String("user_id", sess.UserID))

	publish(ctx, s.publisher, s.logger, events.MessageTypeExportCompleted, events.ExportCompleted{
		Format:        string(art.Format),
		Rows:          art.Rows,
		PhotosSkipped: art.PhotosSkipped,
		ChartsSkipped: art.ChartsSkipped,
		RequestedBy:   sess.Email,
	})
	return art, nil
}

func (s *ExportService) snapshot(ctx context.Context, projectID string) (Snapshot, error) {
	raw, err := s.store.ListReports(ctx, domain.ReportFilter{ProjectID: projectID})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot reports: %w", err)
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot projects: %w", err)
	}

	snap := Snapshot{Reports: raw, Projects: projects}
	if len(raw) == 0 {
		return snap, nil
	}
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		ids = append(ids, r.ID)
	}

	// The breakdown falls back to Misc and the gallery to no photos.
	if snap.CostEntries, err = s.store.CostEntries(ctx, ids); err != nil {
		s.logger.WarnContext(ctx, "cost entries unavailable", slog.String("error", err.Error()))
	}
	if snap.Photos, err = s.store.Photos(ctx, ids); err != nil {
		s.logger.WarnContext(ctx, "photo list unavailable", slog.String("error", err.Error()))
	}
	return snap, nil
}

// Build assembles an artifact from a snapshot. It does not check
// permissions; Export does.
func (s *ExportService) Build(ctx context.Context, req ExportRequest, snap Snapshot) (*Artifact, error) {
	if _, err := ParseFormat(string(req.Format)); err != nil {
		return nil, err
	}
	now := s.now()

	reports := withProjectNames(snap.Reports, snap.Projects)
	result := sanitizer.New(sanitizer.WithLogger(s.logger), sanitizer.WithClock(s.now)).Sanitize(reports)
	result = req.Filter.ApplyResult(result, now)
	if len(result.Cleaned) == 0 {
		return nil, ErrNothingToExport
	}
	if n := len(result.Problems); n > 0 {
		s.metrics.RecordSanitizerProblems(ctx, n)
	}
	_, projects := req.Filter.Apply(nil, snap.Projects, now)

	stats := s.aggregator.Aggregate(result.Cleaned, projects, snap.CostEntries)

	art := &Artifact{
		Format:   req.Format,
		FileName: fmt.Sprintf("DPR_Report_%s.%s", now.Format("2006-01-02"), req.Format),
		Flagged:  len(result.Problems),
	}

	if req.Format != FormatCSV {
		art.Charts = s.renderCharts(ctx, stats, art)
	}

	var err error
	switch req.Format {
	case FormatXLSX:
		art.Rows = len(result.Cleaned)
		art.Data, err = exporter.BuildSpreadsheet(result, stats, art.Charts, exporter.SpreadsheetOptions{
			Title:       s.cfg.Title,
			GeneratedAt: now,
			Logger:      s.logger,
		})
	case FormatPDF:
		art.Rows = len(exporter.DetailRows(result, s.cfg.IncludeFlaggedInPDF))
		art.Data, err = exporter.NewPDFBuilder(s.fetcher, s.logger, exporter.PDFOptions{
			Title:          s.cfg.Title,
			IncludeFlagged: s.cfg.IncludeFlaggedInPDF,
			MaxPhotos:      s.cfg.MaxPhotos,
			GeneratedAt:    now,
			OnPhotoSkipped: func(domain.PhotoRef, error) { art.PhotosSkipped++ },
		}).Build(ctx, exporter.PDFInput{
			Result: result,
			Stats:  stats,
			Charts: art.Charts,
			Photos: snap.Photos,
		})
	case FormatCSV:
		rows := exporter.DetailRows(result, true)
		art.Rows = len(rows)
		var buf bytes.Buffer
		if err = exporter.WriteReportsTo(&buf, rows); err == nil {
			art.Data = buf.Bytes()
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "export failed",
			slog.String("format", string(req.Format)),
			slog.String("error", err.Error()))
		return nil, apierrors.NewExportError(string(req.Format), err)
	}
	return art, nil
}

// withProjectNames fills missing project names from projects. Snapshots read
// from a store already carry them; snapshots from files may not.
func withProjectNames(reports []domain.RawReport, projects []domain.Project) []domain.RawReport {
	if len(projects) == 0 {
		return reports
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	out := make([]domain.RawReport, len(reports))
	copy(out, reports)
	for i := range out {
		if out[i].ProjectName == "" && out[i].ProjectID != nil {
			out[i].ProjectName = names[*out[i].ProjectID]
		}
	}
	return out
}

func (s *ExportService) renderCharts(ctx context.Context, stats domain.StatsSnapshot, art *Artifact) []charts.Image {
	if s.renderer == nil {
		return nil
	}
	return charts.RenderAll(ctx, s.renderer, charts.StandardCharts(stats), func(spec charts.Spec, err error) {
		art.ChartsSkipped++
		s.logger.WarnContext(ctx, "chart skipped",
			slog.String("chart", spec.ID),
			slog.String("error", err.Error()))
	})
}
