// Package session owns the lifecycle of signed-in users: verifying the bearer
// token issued by the hosted auth service, resolving role permissions once at
// sign-in, and discarding the session at sign-out or expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

var (
	// ErrUnauthenticated is returned when the bearer token is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a session lacks a required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrSessionNotFound is returned for a valid token that was never signed in,
	// or whose session has ended.
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultTTL applies when the configured TTL is not positive.
const DefaultTTL = 12 * time.Hour

// Claims are the token claims issued by the hosted auth service.
type Claims struct {
	SessionID string `json:"session_id,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Key returns the identifier a session is registered under.
func (c *Claims) Key() string {
	switch {
	case c.SessionID != "":
		return c.SessionID
	case c.ID != "":
		return c.ID
	default:
		return c.Subject
	}
}

// Config controls token verification and session lifetime.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager verifies tokens and keeps the set of live sessions.
type Manager struct {
	cfg    Config
	access store.AccessStore
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewManager creates a session manager.
func NewManager(cfg Config, access store.AccessStore, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		access:   access,
		logger:   logger.With(slog.String("component", "session")),
		now:      time.Now,
		sessions: make(map[string]*domain.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Verify checks the token signature, expiry, issuer and audience and returns
// its claims.
func (m *Manager) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if m.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(m.cfg.Secret), nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return claims, nil
}

// SignIn verifies the token, resolves the user's roles and registers a new
// session. Signing in again with the same key replaces the previous session.
func (m *Manager) SignIn(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := m.Verify(token)
	if err != nil {
		return nil, err
	}

	roles, err := m.access.RolesForUser(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	sort.Strings(names)

	now := m.now()
	s := &domain.Session{
		ID:          claims.Key(),
		UserID:      claims.Subject,
		Email:       claims.Email,
		Roles:       names,
		Permissions: domain.Permissions(roles),
		IssuedAt:    now,
		ExpiresAt:   now.Add(m.cfg.TTL),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session started",
		slog.String("session_id", s.ID),
		slog.String("user_id", s.UserID),
		slog.Int("permissions", len(s.Permissions)),
	)
	return copySession(s), nil
}

// Resolve returns the live session for a token.
func (m *Manager) Resolve(token string) (*domain.Session, error) {
	claims, err := m.Verify(token)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	s, ok := m.sessions[claims.Key()]
	m.mu.RUnlock()
	if !ok || s.UserID != claims.Subject {
		return nil, ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		m.drop(s.ID)
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// SignOut ends a session.
func (m *Manager) SignOut(id string) error {
	if !m.drop(id) {
		return ErrSessionNotFound
	}
	m.logger.Info("session ended", slog.String("session_id", id))
	return nil
}

// Sweep removes expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.DebugContext(ctx, "expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) drop(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func copySession(s *domain.Session) *domain.Session {
	out := *s
	out.Roles = append([]string(nil), s.Roles...)
	out.Permissions = append([]string(nil), s.Permissions...)
	return &out
}

// Require returns ErrForbidden unless the session holds the permission.
func Require(s *domain.Session, permission string) error {
	if s == nil {
		return ErrUnauthenticated
	}
	if !s.Can(permission) {
		return fmt.Errorf("%w: missing %s", ErrForbidden, permission)
	}
	return nil
}
