package session

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/internal/shared/testutil"
	"buildtrack/internal/store/memory"
	"buildtrack/pkg/contracts/domain"
)

const testSecret = "test-secret"

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *testClock) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	clock := &testClock{now: baseTime}
	access := memory.New(memory.Seed{
		Roles: []domain.Role{
			{ID: "eng", Name: "Site Engineer", Permissions: []string{domain.PermissionSubmitReports, domain.PermissionExportReports}},
			{ID: "pm", Name: "Project Manager", Permissions: []string{domain.PermissionExportReports, domain.PermissionManageProjects}},
		},
		Assignments: []domain.ProjectAssignment{
			{ID: "a1", UserID: "u1", ProjectID: "p1", RoleID: "eng"},
			{ID: "a2", UserID: "u1", ProjectID: "p2", RoleID: "pm"},
		},
	})
	m := NewManager(Config{Secret: testSecret, Issuer: "auth", Audience: "authenticated", TTL: ttl}, access, logger, WithClock(clock.Now))
	return m, clock
}

func sign(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		SessionID: "s1",
		Email:     "eng@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "auth",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(baseTime.Add(time.Hour)),
		},
	}
}

func TestSignInResolvesPermissions(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	token := sign(t, validClaims(), testSecret)

	s, err := m.SignIn(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, []string{"Project Manager", "Site Engineer"}, s.Roles)
	assert.Equal(t, []string{domain.PermissionSubmitReports, domain.PermissionExportReports, domain.PermissionManageProjects}, s.Permissions)
	assert.True(t, s.Can(domain.PermissionManageProjects))
	assert.False(t, s.Can(domain.PermissionManageUsers))
	assert.Equal(t, baseTime.Add(time.Hour), s.ExpiresAt)
}

func TestResolveRequiresSignIn(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	token := sign(t, validClaims(), testSecret)

	_, err := m.Resolve(token)
	assert.ErrorIs(t, err, ErrSessionNotFound, "a verified token alone is not a session")

	_, err = m.SignIn(context.Background(), token)
	require.NoError(t, err)

	s, err := m.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
}

func TestSignOutEndsSession(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	token := sign(t, validClaims(), testSecret)
	_, err := m.SignIn(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, m.SignOut("s1"))
	_, err = m.Resolve(token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.SignOut("s1"), ErrSessionNotFound)
}

func TestSessionExpiry(t *testing.T) {
	m, clock := newTestManager(t, 10*time.Minute)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(baseTime.Add(24 * time.Hour))
	token := sign(t, claims, testSecret)

	_, err := m.SignIn(context.Background(), token)
	require.NoError(t, err)

	clock.now = baseTime.Add(11 * time.Minute)
	_, err = m.Resolve(token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Count())
}

func TestSweepRemovesExpired(t *testing.T) {
	m, clock := newTestManager(t, time.Minute)
	_, err := m.SignIn(context.Background(), sign(t, validClaims(), testSecret))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Sweep())
	clock.now = baseTime.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Count())
}

func TestVerifyRejects(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(baseTime.Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", sign(t, validClaims(), "other")},
		{"expired", sign(t, expired, testSecret)},
		{"wrong issuer", sign(t, wrongIssuer, testSecret)},
		{"wrong audience", sign(t, wrongAudience, testSecret)},
		{"no expiry", sign(t, noExpiry, testSecret)},
		{"no subject", sign(t, noSubject, testSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestClaimsKeyFallback(t *testing.T) {
	c := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}
	assert.Equal(t, "u1", c.Key())
	c.ID = "jti-1"
	assert.Equal(t, "jti-1", c.Key())
	c.SessionID = "s1"
	assert.Equal(t, "s1", c.Key())
}

func TestRequire(t *testing.T) {
	s := &domain.Session{Permissions: []string{domain.PermissionExportReports}}
	assert.NoError(t, Require(s, domain.PermissionExportReports))
	assert.ErrorIs(t, Require(s, domain.PermissionManageUsers), ErrForbidden)
	assert.ErrorIs(t, Require(nil, domain.PermissionExportReports), ErrUnauthenticated)

	admin := &domain.Session{Permissions: []string{domain.PermissionAll}}
	assert.NoError(t, Require(admin, domain.PermissionManageUsers))
}

func TestContextHelpers(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &domain.Session{ID: "s1"}
	got, ok := FromContext(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)

	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", BearerToken(r))
	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))
	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(r))
}
