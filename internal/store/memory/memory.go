// Package memory is an in-process store.Store. Every read returns copies, so
// callers work on a snapshot that later writes do not touch.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

// Seed is the initial content of a store. It decodes from JSON using the
// same field names as the hosted schema.
type Seed struct {
	Projects    []domain.Project           `json:"projects"`
	Reports     []domain.RawReport         `json:"reports"`
	CostEntries []domain.CostEntry         `json:"cost_entries"`
	Photos      []domain.PhotoRef          `json:"photos"`
	Materials   []domain.Material          `json:"materials"`
	Purchases   []domain.MaterialPurchase  `json:"purchases"`
	Usage       []domain.MaterialUsage     `json:"usage"`
	Roles       []domain.Role              `json:"roles"`
	Users       []domain.User              `json:"users"`
	Assignments []domain.ProjectAssignment `json:"assignments"`
}

// LoadSeedFile reads a JSON seed file.
func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return seed, nil
}

// Store keeps everything in mutex-guarded slices, in insertion order.
type Store struct {
	mu sync.RWMutex

	projects    []domain.Project
	reports     []domain.RawReport
	costs       []domain.CostEntry
	photos      []domain.PhotoRef
	materials   []domain.Material
	purchases   []domain.MaterialPurchase
	usage       []domain.MaterialUsage
	roles       []domain.Role
	users       []domain.User
	assignments []domain.ProjectAssignment

	now   func() time.Time
	newID func() string
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs sets the identifier generator.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates a store holding a copy of seed.
func New(seed Seed, opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.projects = append(s.projects, seed.Projects...)
	for _, r := range seed.Reports {
		s.reports = append(s.reports, cloneRaw(r))
	}
	s.costs = append(s.costs, seed.CostEntries...)
	s.photos = append(s.photos, seed.Photos...)
	s.materials = append(s.materials, seed.Materials...)
	s.purchases = append(s.purchases, seed.Purchases...)
	s.usage = append(s.usage, seed.Usage...)
	for _, r := range seed.Roles {
		r.Permissions = append([]string(nil), r.Permissions...)
		s.roles = append(s.roles, r)
	}
	s.users = append(s.users, seed.Users...)
	s.assignments = append(s.assignments, seed.Assignments...)
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneRaw(r domain.RawReport) domain.RawReport {
	if r.ProjectID != nil {
		id := *r.ProjectID
		r.ProjectID = &id
	}
	if r.CreatedAt != nil {
		ts := *r.CreatedAt
		r.CreatedAt = &ts
	}
	r.Extensions = r.Extensions.Clone()
	return r
}

func cloneRole(r domain.Role) domain.Role {
	r.Permissions = append([]string(nil), r.Permissions...)
	return r
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func within(limit, n int) bool {
	return limit <= 0 || n < limit
}

// Projects

func (s *Store) ListProjects(context.Context) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]domain.Project(nil), s.projects...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProject(_ context.Context, id string) (domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, store.ErrNotFound
}

func (s *Store) CreateProject(_ context.Context, p domain.Project) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.projects = append(s.projects, p)
	return p, nil
}

func (s *Store) UpdateProject(_ context.Context, p domain.Project) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.projects {
		if existing.ID == p.ID {
			p.CreatedAt = existing.CreatedAt
			s.projects[i] = p
			return p, nil
		}
	}
	return domain.Project{}, store.ErrNotFound
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.projects {
		if p.ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Reports

// reportDate reads the calendar day of a stored report. Unparseable dates
// sort last and never match a date filter.
func reportDate(r domain.RawReport) (time.Time, bool) {
	text := r.Date.String()
	if len(text) >= 10 {
		text = text[:10]
	}
	t, err := time.Parse("2006-01-02", text)
	return t, err == nil
}

func (s *Store) withProjectName(r domain.RawReport) domain.RawReport {
	if r.ProjectName != "" || r.ProjectID == nil {
		return r
	}
	for _, p := range s.projects {
		if p.ID == *r.ProjectID {
			r.ProjectName = p.Name
			break
		}
	}
	return r
}

func matchesFilter(r domain.RawReport, f domain.ReportFilter) bool {
	if f.ProjectID != "" && (r.ProjectID == nil || *r.ProjectID != f.ProjectID) {
		return false
	}
	if f.DateFrom == nil && f.DateTo == nil {
		return true
	}
	d, ok := reportDate(r)
	if !ok {
		return false
	}
	if f.DateFrom != nil && d.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && d.After(*f.DateTo) {
		return false
	}
	return true
}

// ListReports returns matching reports, newest report date first.
func (s *Store) ListReports(_ context.Context, filter domain.ReportFilter) ([]domain.RawReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RawReport
	for _, r := range s.reports {
		if matchesFilter(r, filter) {
			out = append(out, cloneRaw(s.withProjectName(r)))
		}
	}
	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func sortNewestFirst(reports []domain.RawReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, aok := reportDate(reports[i])
		b, bok := reportDate(reports[j])
		if aok != bok {
			return aok
		}
		return a.After(b)
	})
}

func (s *Store) GetReport(_ context.Context, id string) (domain.RawReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return cloneRaw(s.withProjectName(r)), nil
		}
	}
	return domain.RawReport{}, store.ErrNotFound
}

func (s *Store) LatestReports(ctx context.Context, n int) ([]domain.RawReport, error) {
	return s.ListReports(ctx, domain.ReportFilter{Limit: n})
}

func (s *Store) CreateReport(_ context.Context, r domain.RawReport) (domain.RawReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r = cloneRaw(r)
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt == nil {
		ts := s.now().UTC()
		r.CreatedAt = &ts
	}
	s.reports = append(s.reports, r)
	return cloneRaw(r), nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s *Store) CostEntries(_ context.Context, reportIDs []string) ([]domain.CostEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := idSet(reportIDs)
	var out []domain.CostEntry
	for _, c := range s.costs {
		if want[c.ReportID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) Photos(_ context.Context, reportIDs []string) ([]domain.PhotoRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := idSet(reportIDs)
	var out []domain.PhotoRef
	for _, p := range s.photos {
		if want[p.ReportID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// Materials

func (s *Store) ListMaterials(context.Context) ([]domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]domain.Material(nil), s.materials...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetMaterial(_ context.Context, id string) (domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.materials {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Material{}, store.ErrNotFound
}

func (s *Store) CreateMaterial(_ context.Context, m domain.Material) (domain.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	s.materials = append(s.materials, m)
	return m, nil
}

func (s *Store) ListPurchases(context.Context) ([]domain.MaterialPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]domain.MaterialPurchase(nil), s.purchases...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	return out, nil
}

func (s *Store) materialIndex(id string) int {
	for i, m := range s.materials {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreatePurchase(_ context.Context, p domain.MaterialPurchase) (domain.MaterialPurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.materialIndex(p.MaterialID)
	if i < 0 {
		return domain.MaterialPurchase{}, store.ErrNotFound
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	s.materials[i].CurrentStock += p.Quantity
	s.purchases = append(s.purchases, p)
	return p, nil
}

func (s *Store) CreateUsage(_ context.Context, u domain.MaterialUsage) (domain.MaterialUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.materialIndex(u.MaterialID)
	if i < 0 {
		return domain.MaterialUsage{}, store.ErrNotFound
	}
	if s.materials[i].CurrentStock < u.Quantity {
		return domain.MaterialUsage{}, store.ErrConflict
	}
	if u.ID == "" {
		u.ID = s.newID()
	}
	s.materials[i].CurrentStock -= u.Quantity
	s.usage = append(s.usage, u)
	return u, nil
}

// Access

func (s *Store) ListRoles(context.Context) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, cloneRole(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListUsers(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		u.Roles = append([]string(nil), u.Roles...)
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) RolesForUser(_ context.Context, userID string) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	granted := make(map[string]bool)
	for _, a := range s.assignments {
		if a.UserID == userID {
			granted[a.RoleID] = true
		}
	}
	var out []domain.Role
	for _, r := range s.roles {
		if granted[r.ID] {
			out = append(out, cloneRole(r))
		}
	}
	return out, nil
}

func (s *Store) ListAssignments(_ context.Context, userID string) ([]domain.ProjectAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ProjectAssignment
	for _, a := range s.assignments {
		if userID == "" || a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

func (s *Store) CreateAssignment(_ context.Context, a domain.ProjectAssignment) (domain.ProjectAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.assignments {
		if existing.UserID == a.UserID && existing.ProjectID == a.ProjectID && existing.RoleID == a.RoleID {
			return domain.ProjectAssignment{}, store.ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = s.now().UTC()
	}
	s.assignments = append(s.assignments, a)
	return a, nil
}

func (s *Store) DeleteAssignment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.assignments {
		if a.ID == id {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Search

func (s *Store) SearchProjects(_ context.Context, query string, limit int) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Project
	for _, p := range s.projects {
		if !within(limit, len(out)) {
			break
		}
		if contains(p.Name, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SearchReports(_ context.Context, query string, limit int) ([]domain.RawReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RawReport
	for _, r := range s.reports {
		if !within(limit, len(out)) {
			break
		}
		r = s.withProjectName(r)
		if contains(r.WorkCompleted, query) || contains(r.ProjectName, query) {
			out = append(out, cloneRaw(r))
		}
	}
	return out, nil
}

func (s *Store) SearchMaterials(_ context.Context, query string, limit int) ([]domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Material
	for _, m := range s.materials {
		if !within(limit, len(out)) {
			break
		}
		if contains(m.Name, query) {
			out = append(out, m)
		}
	}
	return out, nil
}
