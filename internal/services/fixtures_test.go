package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"buildtrack/internal/charts"
	"buildtrack/internal/infrastructure"
	"buildtrack/internal/middleware"
	"buildtrack/internal/shared/testutil"
	"buildtrack/internal/store"
	"buildtrack/internal/store/memory"
	"buildtrack/pkg/contracts/domain"
	"buildtrack/pkg/contracts/events"
)

var testNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func ptr(s string) *string { return &s }

func adminSession() *domain.Session {
	return &domain.Session{ID: "s1", UserID: "u1", Email: "site@buildtrack.test", Permissions: []string{domain.PermissionAll}}
}

func viewerSession() *domain.Session {
	return &domain.Session{ID: "s2", UserID: "u2", Permissions: []string{domain.PermissionSubmitReports}}
}

func testSeed() memory.Seed {
	return memory.Seed{
		Projects: []domain.Project{
			{ID: "p1", Name: "Tower A", TotalCost: 100000, Status: domain.ProjectInProgress},
			{ID: "p2", Name: "Villa Phase 2", Status: domain.ProjectNotStarted},
		},
		Reports: []domain.RawReport{
			{ID: "r1", ProjectID: ptr("p1"), Date: domain.Str("2024-03-01"), Stage: "Foundation Work",
				Cost: domain.Num(1200), Manpower: domain.Num(10), WorkCompleted: "Excavation and PCC for footings"},
			{ID: "r2", ProjectID: ptr("p1"), Date: domain.Str("2024-03-02"), Stage: "Plinth Work",
				Cost: domain.Str("Rs 2,500"), Manpower: domain.Num(12), WorkCompleted: "Plinth beam shuttering"},
			{ID: "r3", ProjectID: ptr("p2"), Date: domain.Str("2024-03-03"), Stage: "Site Preparation",
				Cost: domain.Str("abc"), Manpower: domain.Num(4), WorkCompleted: "Site cleaning"},
			{ID: "r4", ProjectID: ptr("p1"), Date: domain.Str("garbage"), Stage: "Foundation Work",
				Cost: domain.Num(300), Manpower: domain.Num(2), WorkCompleted: "Curing"},
		},
		CostEntries: []domain.CostEntry{
			{ReportID: "r1", Category: domain.CostMaterial, Amount: 800},
			{ReportID: "r1", Category: domain.CostLabor, Amount: 400},
		},
		Photos: []domain.PhotoRef{
			{ID: "ph1", ReportID: "r1", FileName: "footing.png", PublicURL: "http://photos.test/ph1.png"},
			{ID: "ph2", ReportID: "r2", FileName: "plinth.png", PublicURL: "http://photos.test/ph2.png"},
		},
		Materials: []domain.Material{
			{ID: "m1", Name: "OPC Cement", Category: "Cement & Concrete", Unit: "bags",
				CostPerUnit: 400, SupplierName: "Ambuja Dealers", MinStockLevel: 5, CurrentStock: 10},
		},
		Roles: []domain.Role{
			{ID: "admin", Name: "Admin", Permissions: []string{domain.PermissionAll}},
			{ID: "engineer", Name: "Site Engineer", Permissions: []string{domain.PermissionSubmitReports}},
		},
		Users: []domain.User{
			{ID: "u1", Email: "site@buildtrack.test"},
			{ID: "u2", Email: "engineer@buildtrack.test"},
		},
		Assignments: []domain.ProjectAssignment{
			{ID: "a1", UserID: "u1", ProjectID: "p1", RoleID: "admin"},
		},
	}
}

func newTestStore() *memory.Store {
	n := 0
	return memory.New(testSeed(),
		memory.WithClock(testClock),
		memory.WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

func newTestValidator(t *testing.T) Validator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return middleware.NewValidationMiddleware(logger, nil)
}

func newTestMetrics(t *testing.T) (*infrastructure.BusinessMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

type publishedEvent struct {
	Type events.MessageType
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, typ events.MessageType, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: typ, Data: data})
	return p.err
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 58, B: 138, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// stubRenderer returns a solid PNG for every spec except the failing ones.
type stubRenderer struct {
	png  []byte
	fail map[string]bool
}

func (r *stubRenderer) Render(_ context.Context, spec charts.Spec) (charts.Image, error) {
	if r.fail[spec.ID] {
		return charts.Image{}, charts.ErrEmptyChart
	}
	return charts.Image{ID: spec.ID, Title: spec.Title, PNG: r.png, Width: 400, Height: 240}, nil
}

// stubFetcher serves photos by id and fails for any id it does not know.
type stubFetcher struct {
	mu      sync.Mutex
	photos  map[string][]byte
	fetched []string
}

func (f *stubFetcher) Fetch(_ context.Context, ref domain.PhotoRef) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, ref.ID)
	data, ok := f.photos[ref.ID]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return data, nil
}

// failingStore wraps a store and fails the listed operations.
type failingStore struct {
	store.Store
	fail map[string]bool
}

var errUpstream = errors.New("connection refused")

func (s *failingStore) ListReports(ctx context.Context, f domain.ReportFilter) ([]domain.RawReport, error) {
	if s.fail["reports"] {
		return nil, errUpstream
	}
	return s.Store.ListReports(ctx, f)
}

func (s *failingStore) LatestReports(ctx context.Context, n int) ([]domain.RawReport, error) {
	if s.fail["reports"] {
		return nil, errUpstream
	}
	return s.Store.LatestReports(ctx, n)
}

func (s *failingStore) CostEntries(ctx context.Context, ids []string) ([]domain.CostEntry, error) {
	if s.fail["cost_entries"] {
		return nil, errUpstream
	}
	return s.Store.CostEntries(ctx, ids)
}

func (s *failingStore) Photos(ctx context.Context, ids []string) ([]domain.PhotoRef, error) {
	if s.fail["photos"] {
		return nil, errUpstream
	}
	return s.Store.Photos(ctx, ids)
}

func (s *failingStore) Ping(ctx context.Context) error {
	if s.fail["ping"] {
		return errUpstream
	}
	return s.Store.Ping(ctx)
}
