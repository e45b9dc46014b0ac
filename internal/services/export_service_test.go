package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"buildtrack/internal/charts"
	"buildtrack/internal/config"
	"buildtrack/internal/exporter"
	"buildtrack/internal/financials"
	"buildtrack/internal/session"
	"buildtrack/internal/shared/testutil"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
	"buildtrack/pkg/contracts/events"
)

type exportFixture struct {
	svc      *ExportService
	pub      *recordingPublisher
	fetcher  *stubFetcher
	renderer *stubRenderer
	logs     *testutil.BufferedSlogHandler
}

func newExportFixture(t *testing.T, s store.Store) *exportFixture {
	t.Helper()
	logger, buf := testutil.NewTestLogger(t)
	pub := &recordingPublisher{}
	fetcher := &stubFetcher{photos: map[string][]byte{"ph1": testPNG(t, 64, 48)}}
	renderer := &stubRenderer{png: testPNG(t, 400, 240), fail: map[string]bool{}}

	cfg := config.Default().Export
	svc := NewExportService(s, renderer, fetcher, pub, nil, cfg, logger).WithClock(testClock)
	return &exportFixture{svc: svc, pub: pub, fetcher: fetcher, renderer: renderer, logs: buf}
}

func TestExportServiceSpreadsheet(t *testing.T) {
	fx := newExportFixture(t, newTestStore())
	metrics, reader := newTestMetrics(t)
	fx.svc.metrics = metrics

	art, err := fx.svc.Export(context.Background(), adminSession(), ExportRequest{Format: FormatXLSX})
	require.NoError(t, err)

	assert.Equal(t, "DPR_Report_2024-03-05.xlsx", art.FileName)
	assert.Equal(t, 4, art.Rows, "the spreadsheet keeps flagged rows")
	assert.Equal(t, 2, art.Flagged)
	assert.Len(t, art.Charts, 2)
	assert.Zero(t, art.ChartsSkipped)

	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{exporter.SheetSummary, exporter.SheetReports, exporter.SheetBreakdown}, f.GetSheetList())

	rows, err := f.GetRows(exporter.SheetReports)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 5)

	assert.Empty(t, fx.fetcher.fetched, "spreadsheets carry no photos")
	assert.Equal(t, int64(1), counterTotal(t, reader, "exports_total"))

	published := fx.pub.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.MessageTypeExportCompleted, published[0].Type)
	done, ok := published[0].Data.(events.ExportCompleted)
	require.True(t, ok)
	assert.Equal(t, "xlsx", done.Format)
	assert.Equal(t, "site@buildtrack.test", done.RequestedBy)
}

func TestExportServicePDFSkipsFailedPhotosAndCharts(t *testing.T) {
	fx := newExportFixture(t, newTestStore())
	fx.renderer.fail[charts.ChartDailyTrend] = true

	art, err := fx.svc.Export(context.Background(), adminSession(), ExportRequest{Format: FormatPDF})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", art.ContentType())
	assert.Equal(t, 2, art.Rows, "flagged rows stay out of the pdf")
	assert.Equal(t, 1, art.ChartsSkipped)
	assert.Len(t, art.Charts, 1)
	assert.Equal(t, 1, art.PhotosSkipped)
	assert.ElementsMatch(t, []string{"ph1", "ph2"}, fx.fetcher.fetched)
	assert.True(t, fx.logs.ContainsMessage("chart skipped"))
}

func TestExportServicePDFCountsUndecodablePhotos(t *testing.T) {
	fx := newExportFixture(t, newTestStore())
	fx.fetcher.photos["ph2"] = []byte("not an image")

	art, err := fx.svc.Export(context.Background(), adminSession(), ExportRequest{Format: FormatPDF})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ph1", "ph2"}, fx.fetcher.fetched)
	assert.Equal(t, 1, art.PhotosSkipped, "a fetched photo that fails to decode is still skipped")
	assert.True(t, fx.logs.ContainsMessage("skipping photo: decode failed"))
}

func TestExportServiceCSVWithFilter(t *testing.T) {
	fx := newExportFixture(t, newTestStore())

	art, err := fx.svc.Export(context.Background(), adminSession(), ExportRequest{
		Format: FormatCSV,
		Filter: financials.Filter{ProjectID: "p2", Range: financials.RangeAll},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, art.Rows)
	assert.Nil(t, art.Charts)
	text := string(art.Data)
	assert.Contains(t, text, strings.Join(exporter.ReportHeaders, ","))
	assert.Contains(t, text, "Villa Phase 2")
	assert.NotContains(t, text, "Tower A")
}

func TestExportServiceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("permission", func(t *testing.T) {
		fx := newExportFixture(t, newTestStore())
		_, err := fx.svc.Export(ctx, viewerSession(), ExportRequest{Format: FormatPDF})
		assert.ErrorIs(t, err, session.ErrForbidden)
	})

	t.Run("nothing to export", func(t *testing.T) {
		fx := newExportFixture(t, newTestStore())
		metrics, reader := newTestMetrics(t)
		fx.svc.metrics = metrics

		_, err := fx.svc.Export(ctx, adminSession(), ExportRequest{
			Format: FormatXLSX,
			Filter: financials.Filter{Range: financials.Range7Days, ProjectID: "p404"},
		})
		assert.ErrorIs(t, err, ErrNothingToExport)
		assert.Equal(t, int64(1), counterTotal(t, reader, "exports_total"))
		assert.Empty(t, fx.pub.Events())
	})

	t.Run("unsupported format", func(t *testing.T) {
		fx := newExportFixture(t, newTestStore())
		_, err := fx.svc.Export(ctx, adminSession(), ExportRequest{Format: "docx"})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("snapshot failure", func(t *testing.T) {
		fx := newExportFixture(t, &failingStore{Store: newTestStore(), fail: map[string]bool{"reports": true}})
		_, err := fx.svc.Export(ctx, adminSession(), ExportRequest{Format: FormatPDF})
		assert.ErrorIs(t, err, errUpstream)
	})

	t.Run("photo list failure degrades", func(t *testing.T) {
		fx := newExportFixture(t, &failingStore{Store: newTestStore(), fail: map[string]bool{"photos": true}})
		art, err := fx.svc.Export(ctx, adminSession(), ExportRequest{Format: FormatPDF})
		require.NoError(t, err)
		assert.Empty(t, fx.fetcher.fetched)
		assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))
		assert.True(t, fx.logs.ContainsMessage("photo list unavailable"))
	})
}

func TestExportServiceBuildFromSnapshot(t *testing.T) {
	fx := newExportFixture(t, nil)

	snap := Snapshot{
		Reports: []domain.RawReport{
			{ID: "x1", ProjectName: "Warehouse", Date: domain.Str("2024-02-20"), Cost: domain.Num(900), WorkCompleted: "Roof sheeting"},
		},
	}
	art, err := fx.svc.Build(context.Background(), ExportRequest{Format: FormatXLSX}, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, art.Rows)

	_, err = fx.svc.Build(context.Background(), ExportRequest{Format: FormatXLSX}, Snapshot{})
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]ExportFormat{"xlsx": FormatXLSX, " PDF ": FormatPDF, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportServiceJoinsSnapshotProjectNames(t *testing.T) {
	fx := newExportFixture(t, nil)
	snap := Snapshot{
		Reports: []domain.RawReport{
			{ID: "x1", ProjectID: ptr("w1"), Date: domain.Str("2024-02-20"), Cost: domain.Num(900), WorkCompleted: "Roof sheeting"},
		},
		Projects: []domain.Project{{ID: "w1", Name: "Warehouse"}},
	}
	art, err := fx.svc.Build(context.Background(), ExportRequest{Format: FormatCSV}, snap)
	require.NoError(t, err)
	assert.Contains(t, string(art.Data), "Warehouse")
	assert.Empty(t, snap.Reports[0].ProjectName, "the snapshot is not modified")
}
