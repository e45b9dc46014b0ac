package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "buildtrack/internal/errors"
	"buildtrack/internal/middleware"
	"buildtrack/internal/services"
	"buildtrack/internal/session"
	"buildtrack/internal/shared/testutil"
	"buildtrack/internal/store/memory"
	"buildtrack/pkg/contracts/domain"
)

const testSecret = "handler-test-secret"

func strPtr(s string) *string { return &s }

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, sess *domain.Session, req services.ExportRequest) (*services.Artifact, error) {
	args := m.Called(sess.UserID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Artifact), args.Error(1)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

type testEnv struct {
	router   chi.Router
	sessions *session.Manager
	store    *memory.Store
	exports  *MockExportService
	health   *MockHealthChecker
	logs     *testutil.BufferedSlogHandler
}

func handlerSeed() memory.Seed {
	return memory.Seed{
		Projects: []domain.Project{
			{ID: "p1", Name: "Tower A", TotalCost: 100000, Status: domain.ProjectInProgress},
		},
		Reports: []domain.RawReport{
			{ID: "r1", ProjectID: strPtr("p1"), Date: domain.Str("2024-03-01"), Stage: "Foundation Work",
				Cost: domain.Num(1200), Manpower: domain.Num(10), WorkCompleted: "Footing excavation"},
			{ID: "r2", ProjectID: strPtr("p1"), Date: domain.Str("2024-03-02"), Stage: "Plinth Work",
				Cost: domain.Str("n/a"), Manpower: domain.Num(8), WorkCompleted: "Plinth beam"},
		},
		Materials: []domain.Material{
			{ID: "m1", Name: "OPC Cement", Category: "Cement & Concrete", Unit: "bags", CostPerUnit: 400, MinStockLevel: 5, CurrentStock: 10},
		},
		Roles: []domain.Role{
			{ID: "admin", Name: "Admin", Permissions: []string{domain.PermissionAll}},
			{ID: "engineer", Name: "Site Engineer", Permissions: []string{domain.PermissionSubmitReports}},
		},
		Users: []domain.User{
			{ID: "u1", Email: "admin@buildtrack.test"},
			{ID: "u2", Email: "engineer@buildtrack.test"},
		},
		Assignments: []domain.ProjectAssignment{
			{ID: "a1", UserID: "u1", ProjectID: "p1", RoleID: "admin"},
			{ID: "a2", UserID: "u2", ProjectID: "p1", RoleID: "engineer"},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, buf := testutil.NewTestLogger(t)
	eh := RegisterErrorMappings(apierrors.NewErrorHandler(logger, false))
	validator := middleware.NewValidationMiddleware(logger, eh)

	st := memory.New(handlerSeed())
	sessions := session.NewManager(session.Config{Secret: testSecret, Audience: "authenticated", TTL: time.Hour}, st, logger)
	dashboard := services.NewDashboardService(st, nil, nil, 0, logger)

	env := &testEnv{
		sessions: sessions,
		store:    st,
		exports:  &MockExportService{},
		health:   &MockHealthChecker{},
		logs:     buf,
	}
	api := &API{
		Health:    NewHealthHandler(env.health, logger),
		Sessions:  NewSessionHandler(sessions, logger, eh),
		Projects:  NewProjectHandler(services.NewProjectService(st, validator, logger), dashboard, logger, eh),
		Reports:   NewReportHandler(services.NewReportService(st, validator, nil, nil, logger), logger, eh),
		Dashboard: NewDashboardHandler(dashboard, logger, eh),
		Materials: NewMaterialHandler(services.NewMaterialService(st, validator, nil, logger), logger, eh),
		Access:    NewAccessHandler(services.NewAccessService(st, validator, logger), logger, eh),
		Exports:   NewExportHandler(env.exports, logger, eh),

		Validation:     validator,
		RequestTimeout: 5 * time.Second,
	}
	r := chi.NewRouter()
	api.Mount(r, sessions, eh)
	env.router = r
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	claims := session.Claims{
		SessionID: "sess-" + userID,
		Email:     userID + "@buildtrack.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// signIn opens a session and returns its bearer token.
func (e *testEnv) signIn(t *testing.T, userID string) string {
	t.Helper()
	token := e.token(t, userID)
	_, err := e.sessions.SignIn(context.Background(), token)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

var _ http.Handler = (*MetricsHandler)(nil)
