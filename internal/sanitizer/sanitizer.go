package sanitizer

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"buildtrack/pkg/contracts/domain"
)

// Issue strings recorded in problem entries.
const (
	IssueInvalidDate        = "invalid date"
	IssueManpowerNotNumeric = "manpower not numeric"
	IssueCostNotNumeric     = "cost not numeric"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// Sanitizer turns raw records into canonical ones.
type Sanitizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithClock sets the clock used to substitute missing dates.
func WithClock(now func() time.Time) Option {
	return func(s *Sanitizer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sanitizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Sanitizer.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "sanitizer"))
	return s
}

// Sanitize cleans every record. The output has one cleaned record per input,
// in input order.
func (s *Sanitizer) Sanitize(raw []domain.RawReport) domain.SanitizeResult {
	result := domain.SanitizeResult{
		Cleaned:  make([]domain.Report, 0, len(raw)),
		Problems: []domain.Problem{},
	}
	today := calendarDate(s.now())

	for i, r := range raw {
		report, issues := s.clean(r, today)
		result.Cleaned = append(result.Cleaned, report)
		if len(issues) > 0 {
			result.Problems = append(result.Problems, domain.Problem{Index: i, Issues: issues})
		}
	}

	if len(result.Problems) > 0 {
		s.logger.Debug("sanitized records with problems",
			slog.Int("records", len(raw)),
			slog.Int("flagged", len(result.Problems)))
	}
	return result
}

func (s *Sanitizer) clean(r domain.RawReport, today time.Time) (domain.Report, []string) {
	var issues []string

	date, ok := Date(r.Date)
	if !ok {
		date = today
		issues = append(issues, IssueInvalidDate)
	}

	manpower, ok := number(r.Manpower)
	if !ok {
		issues = append(issues, IssueManpowerNotNumeric)
	}

	cost, ok := number(r.Cost)
	if !ok {
		issues = append(issues, IssueCostNotNumeric)
	}

	var projectID *string
	if r.ProjectID != nil {
		id := strings.TrimSpace(*r.ProjectID)
		if id != "" {
			projectID = &id
		}
	}

	return domain.Report{
		ID:              strings.TrimSpace(r.ID),
		Date:            date,
		ProjectID:       projectID,
		ProjectName:     Text(r.ProjectName),
		Stage:           Text(r.Stage),
		Cost:            cost,
		Manpower:        manpower,
		WorkCompleted:   Text(r.WorkCompleted),
		MaterialsUsed:   Text(r.MaterialsUsed),
		Remarks:         Text(r.Remarks),
		Weather:         Text(r.Weather),
		Machinery:       Text(r.Machinery),
		SafetyIncidents: Text(r.SafetyIncidents),
		Extensions:      cleanExtensions(r.Extensions),
	}, issues
}

// Number coerces a source value to a float. Missing values and values with no
// parsable digits give 0.
func Number(v domain.SourceValue) float64 {
	n, _ := number(v)
	return n
}

// number returns false only when the field was present, not number-typed and
// could not be coerced.
func number(v domain.SourceValue) (float64, bool) {
	switch {
	case v.IsMissing():
		return 0, true
	case v.IsNumeric():
		return v.Number, true
	}
	n, err := ParseNumeric(v.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseNumeric keeps only digits, '.' and '-' and parses the remainder.
func ParseNumeric(s string) (float64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strconv.ParseFloat(b.String(), 64)
}

// Date parses a source date into a UTC calendar date.
func Date(v domain.SourceValue) (time.Time, bool) {
	switch v.Kind {
	case domain.SourceString:
		s := strings.TrimSpace(v.Text)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return calendarDate(t), true
			}
		}
	case domain.SourceNumber:
		if v.Number > 0 {
			return calendarDate(time.UnixMilli(int64(v.Number)).UTC()), true
		}
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Text reduces free text to printable Latin-1. Tab, newline and the other
// whitespace controls become spaces; every other control character, every
// '&' and every rune above U+00FF is removed. Whitespace runs collapse to a
// single space and the ends are trimmed.
func Text(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\v' || r == '\f' || r == '\r':
			b.WriteByte(' ')
		case r < 0x20 || (r >= 0x7f && r <= 0x9f):
		case r == '&':
		case r > 0xff:
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.FieldsFunc(b.String(), unicode.IsSpace), " ")
}

func cleanExtensions(ext domain.Extensions) domain.Extensions {
	if len(ext) == 0 {
		return nil
	}
	out := make(domain.Extensions, len(ext))
	for k, v := range ext {
		if v.Kind == domain.ExtensionText {
			v.Text = Text(v.Text)
		}
		out[k] = v
	}
	return out
}
