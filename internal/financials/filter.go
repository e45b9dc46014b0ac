package financials

import (
	"fmt"
	"time"

	"buildtrack/pkg/contracts/domain"
)

// TimeRange limits reports to a trailing window.
type TimeRange string

const (
	Range7Days   TimeRange = "7d"
	Range30Days  TimeRange = "30d"
	Range90Days  TimeRange = "90d"
	Range365Days TimeRange = "365d"
	RangeAll     TimeRange = "all"
)

var rangeDays = map[TimeRange]int{
	Range7Days:   7,
	Range30Days:  30,
	Range90Days:  90,
	Range365Days: 365,
}

// ParseRange parses a range name. The empty string means RangeAll.
func ParseRange(s string) (TimeRange, error) {
	r := TimeRange(s)
	if s == "" || r == RangeAll {
		return RangeAll, nil
	}
	if _, ok := rangeDays[r]; !ok {
		return "", fmt.Errorf("unknown time range %q", s)
	}
	return r, nil
}

// Since returns the first calendar date inside the range, or false for
// RangeAll.
func (r TimeRange) Since(now time.Time) (time.Time, bool) {
	days, ok := rangeDays[r]
	if !ok {
		return time.Time{}, false
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days), true
}

// Filter narrows the dashboard to one project and a trailing window.
type Filter struct {
	ProjectID string
	Range     TimeRange
}

// Match reports whether r passes the filter.
func (f Filter) Match(r domain.Report, now time.Time) bool {
	if f.ProjectID != "" && r.ProjectKey() != f.ProjectID {
		return false
	}
	if since, windowed := f.Range.Since(now); windowed && r.Date.Before(since) {
		return false
	}
	return true
}

// Apply returns the reports and projects that pass the filter.
func (f Filter) Apply(reports []domain.Report, projects []domain.Project, now time.Time) ([]domain.Report, []domain.Project) {
	outReports := make([]domain.Report, 0, len(reports))
	for _, r := range reports {
		if f.Match(r, now) {
			outReports = append(outReports, r)
		}
	}
	return outReports, f.projects(projects)
}

// ApplyResult filters a sanitize result, renumbering problem indices so they
// keep pointing at the same records.
func (f Filter) ApplyResult(result domain.SanitizeResult, now time.Time) domain.SanitizeResult {
	issues := make(map[int][]string, len(result.Problems))
	for _, p := range result.Problems {
		issues[p.Index] = p.Issues
	}

	out := domain.SanitizeResult{
		Cleaned:  make([]domain.Report, 0, len(result.Cleaned)),
		Problems: []domain.Problem{},
	}
	for i, r := range result.Cleaned {
		if !f.Match(r, now) {
			continue
		}
		if list, ok := issues[i]; ok {
			out.Problems = append(out.Problems, domain.Problem{Index: len(out.Cleaned), Issues: list})
		}
		out.Cleaned = append(out.Cleaned, r)
	}
	return out
}

func (f Filter) projects(projects []domain.Project) []domain.Project {
	if f.ProjectID == "" {
		return projects
	}
	out := make([]domain.Project, 0, 1)
	for _, p := range projects {
		if p.ID == f.ProjectID {
			out = append(out, p)
		}
	}
	return out
}
