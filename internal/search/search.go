// Package search implements the global search across projects, reports and
// materials.
package search

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"buildtrack/internal/sanitizer"
	"buildtrack/internal/store"
	"buildtrack/pkg/contracts/domain"
)

const (
	// MinQueryLength is the shortest query, in runes, that is searched.
	MinQueryLength = 2
	// DefaultLimit caps the hits per kind.
	DefaultLimit = 10

	descriptionRunes = 120
)

// Searcher runs one query against each entity kind in turn.
type Searcher struct {
	store  store.SearchStore
	logger *slog.Logger
	limit  int
}

// New creates a Searcher. A limit of zero uses DefaultLimit.
func New(s store.SearchStore, logger *slog.Logger, limit int) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Searcher{store: s, logger: logger.With(slog.String("component", "search")), limit: limit}
}

// Search returns projects, then reports, then materials matching query.
// A kind whose lookup fails is logged and left out.
func (s *Searcher) Search(ctx context.Context, query string) []domain.SearchResult {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []domain.SearchResult{}
	}

	results := []domain.SearchResult{}

	if projects, err := s.store.SearchProjects(ctx, query, s.limit); err != nil {
		s.failed(ctx, domain.SearchProject, err)
	} else {
		for _, p := range projects {
			results = append(results, domain.SearchResult{
				ID:          p.ID,
				Kind:        domain.SearchProject,
				Title:       p.Name,
				Description: excerpt(p.Description),
				CreatedAt:   p.CreatedAt,
			})
		}
	}

	if reports, err := s.store.SearchReports(ctx, query, s.limit); err != nil {
		s.failed(ctx, domain.SearchReport, err)
	} else {
		for _, r := range reports {
			hit := domain.SearchResult{
				ID:          r.ID,
				Kind:        domain.SearchReport,
				Title:       reportTitle(r),
				Description: excerpt(r.WorkCompleted),
			}
			if r.CreatedAt != nil {
				hit.CreatedAt = *r.CreatedAt
			}
			results = append(results, hit)
		}
	}

	if materials, err := s.store.SearchMaterials(ctx, query, s.limit); err != nil {
		s.failed(ctx, domain.SearchMaterial, err)
	} else {
		for _, m := range materials {
			results = append(results, domain.SearchResult{
				ID:          m.ID,
				Kind:        domain.SearchMaterial,
				Title:       m.Name,
				Description: m.Category,
				CreatedAt:   m.CreatedAt,
			})
		}
	}

	return results
}

func (s *Searcher) failed(ctx context.Context, kind domain.SearchKind, err error) {
	s.logger.WarnContext(ctx, "search kind failed",
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))
}

func reportTitle(r domain.RawReport) string {
	name := sanitizer.Text(r.ProjectName)
	if name == "" {
		name = "Daily report"
	}
	if d, ok := sanitizer.Date(r.Date); ok {
		return name + " - " + d.Format("02 Jan 2006")
	}
	return name
}

func excerpt(s string) string {
	s = sanitizer.Text(s)
	if utf8.RuneCountInString(s) <= descriptionRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:descriptionRunes])) + "..."
}
