package sanitizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/pkg/contracts/domain"
)

var fixedNow = time.Date(2024, 3, 15, 17, 45, 0, 0, time.UTC)

func newTestSanitizer() *Sanitizer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name  string
		value domain.SourceValue
		want  float64
	}{
		{name: "thousands separator", value: domain.Str("1,200"), want: 1200},
		{name: "currency symbol", value: domain.Str("₹ 3,450.75"), want: 3450.75},
		{name: "negative", value: domain.Str("-42.5"), want: -42.5},
		{name: "plain number", value: domain.Num(500), want: 500},
		{name: "garbage", value: domain.Str("bad"), want: 0},
		{name: "two minus signs", value: domain.Str("1-2"), want: 0},
		{name: "null", value: domain.Null(), want: 0},
		{name: "absent", value: domain.SourceValue{}, want: 0},
		{name: "bool", value: domain.SourceValue{Kind: domain.SourceBool, Bool: true}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.value))
		})
	}
}

func TestNumberMatchesDigitSubsequence(t *testing.T) {
	inputs := map[string]float64{
		"-0.5 bags":       -0.5,
		"total: 99.01":    99.01,
		"12,34,567.25 Rs": 1234567.25,
	}
	for in, want := range inputs {
		assert.Equal(t, want, Number(domain.Str(in)), in)
	}
	assert.Equal(t, 0.0, Number(domain.Str("Rs.12.50")), "a stray dot makes the digits unparsable")
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "control characters", in: "slab\x00 cast\x07", want: "slab cast"},
		{name: "c1 controls", in: "beam\u0085\u009fwork", want: "beamwork"},
		{name: "ampersand", in: "doors & windows", want: "doors windows"},
		{name: "non latin1", in: "plaster ✓ done 😀", want: "plaster done"},
		{name: "latin1 kept", in: "café état", want: "café état"},
		{name: "whitespace collapse", in: "  line one\n\n\tline   two  ", want: "line one line two"},
		{name: "whitespace controls separate words", in: "line1\nline2\r\nline3\vline4", want: "line1 line2 line3 line4"},
		{name: "other controls are dropped", in: "ab\x00c\x1bd\u0085e", want: "abcde"},
		{name: "nbsp collapses", in: "a\u00a0\u00a0b", want: "a b"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Text(got), "cleaning must be a fixed point")
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		value domain.SourceValue
		want  time.Time
		ok    bool
	}{
		{name: "iso date", value: domain.Str("2024-01-01"), want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "rfc3339 keeps local calendar day", value: domain.Str("2024-01-01T23:30:00+05:30"), want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "day first", value: domain.Str("28/02/2024"), want: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "garbage", value: domain.Str("not-a-date"), ok: false},
		{name: "missing", value: domain.Null(), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestSanitizeEndToEnd(t *testing.T) {
	input := `[
		{"id": "r1", "report_date": "2024-01-01", "cost": "1,200", "manpower": "bad"},
		{"id": "r2", "report_date": "not-a-date", "cost": 500, "manpower": 5}
	]`
	var raw []domain.RawReport
	require.NoError(t, json.Unmarshal([]byte(input), &raw))

	res := newTestSanitizer().Sanitize(raw)

	require.Len(t, res.Cleaned, 2)
	first, second := res.Cleaned[0], res.Cleaned[1]

	assert.Equal(t, 1200.0, first.Cost)
	assert.Equal(t, 0.0, first.Manpower)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)

	assert.Equal(t, 500.0, second.Cost)
	assert.Equal(t, 5.0, second.Manpower)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), second.Date)

	assert.Equal(t, []domain.Problem{
		{Index: 0, Issues: []string{IssueManpowerNotNumeric}},
		{Index: 1, Issues: []string{IssueInvalidDate}},
	}, res.Problems)
}

func TestSanitizeNullNumbersRaiseNoProblem(t *testing.T) {
	raw := []domain.RawReport{
		{ID: "r1", Date: domain.Str("2024-02-02"), Cost: domain.Null(), Manpower: domain.SourceValue{}},
	}

	res := newTestSanitizer().Sanitize(raw)

	assert.Empty(t, res.Problems)
	assert.Equal(t, 0.0, res.Cleaned[0].Cost)
	assert.Equal(t, 0.0, res.Cleaned[0].Manpower)
}

func TestSanitizeMissingDateIsFlagged(t *testing.T) {
	res := newTestSanitizer().Sanitize([]domain.RawReport{{ID: "r1", Cost: domain.Num(10)}})

	require.Len(t, res.Problems, 1)
	assert.Equal(t, []string{IssueInvalidDate}, res.Problems[0].Issues)
	assert.True(t, res.Flagged(0))
}

func TestSanitizeCleansTextAndExtensions(t *testing.T) {
	projectID := " p1 "
	raw := []domain.RawReport{{
		ID:            "r1",
		ProjectID:     &projectID,
		Date:          domain.Str("2024-01-05"),
		WorkCompleted: "Columns\tC1 & C2\x00 cast",
		Weather:       "  sunny ",
		Extensions: domain.Extensions{
			"supervisor": {Kind: domain.ExtensionText, Text: "R&D\nteam"},
			"crane":      {Kind: domain.ExtensionNumber, Number: 2},
		},
	}}

	res := newTestSanitizer().Sanitize(raw)
	got := res.Cleaned[0]

	require.NotNil(t, got.ProjectID)
	assert.Equal(t, "p1", *got.ProjectID)
	assert.Equal(t, "Columns C1 C2 cast", got.WorkCompleted)
	assert.Equal(t, "sunny", got.Weather)
	assert.Equal(t, "RD team", got.Extensions["supervisor"].Text)
	assert.Equal(t, 2.0, got.Extensions["crane"].Number)
	assert.Equal(t, "R&D\nteam", raw[0].Extensions["supervisor"].Text, "source record must not change")
}

func TestSanitizeIsIdempotent(t *testing.T) {
	projectID := "p9"
	raw := []domain.RawReport{
		{ID: "a", ProjectID: &projectID, Date: domain.Str("2024-01-01"), Cost: domain.Str("₹1,000.50"), Manpower: domain.Str("12"),
			WorkCompleted: "Brick  work\n&  plaster ✓", Remarks: "\x1b[31mred\x1b[0m"},
		{ID: "b", Date: domain.Str("garbage"), Cost: domain.Num(75), Manpower: domain.Null(), Stage: "Roof Work"},
	}

	s := newTestSanitizer()
	first := s.Sanitize(raw)

	again := make([]domain.RawReport, len(first.Cleaned))
	for i, r := range first.Cleaned {
		again[i] = r.Raw()
	}
	second := s.Sanitize(again)

	a, err := json.Marshal(first.Cleaned)
	require.NoError(t, err)
	b, err := json.Marshal(second.Cleaned)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Empty(t, second.Problems)
}
