package financials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/pkg/contracts/domain"
)

func TestParseRange(t *testing.T) {
	for _, s := range []string{"", "all", "7d", "30d", "90d", "365d"} {
		_, err := ParseRange(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseRange("14d")
	assert.Error(t, err)
}

func TestFilterApply(t *testing.T) {
	now := time.Date(2024, 2, 12, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		filter       Filter
		wantReports  []string
		wantProjects int
	}{
		{name: "everything", filter: Filter{Range: RangeAll}, wantReports: []string{"r1", "r2", "r3", "r4"}, wantProjects: 2},
		{name: "one project", filter: Filter{ProjectID: "p2", Range: RangeAll}, wantReports: []string{"r3"}, wantProjects: 1},
		{name: "last 7 days", filter: Filter{Range: Range7Days}, wantReports: []string{"r3"}, wantProjects: 2},
		{name: "last 90 days of p1", filter: Filter{ProjectID: "p1", Range: Range90Days}, wantReports: []string{"r1", "r2", "r4"}, wantProjects: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports, projects := tt.filter.Apply(createTestReports(), createTestProjects(), now)

			ids := make([]string, 0, len(reports))
			for _, r := range reports {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantReports, ids)
			require.Len(t, projects, tt.wantProjects)
		})
	}
}

func TestFilterApplyResultRenumbersProblems(t *testing.T) {
	now := time.Date(2024, 2, 12, 15, 0, 0, 0, time.UTC)
	result := domain.SanitizeResult{
		Cleaned: createTestReports(),
		Problems: []domain.Problem{
			{Index: 2, Issues: []string{"Invalid cost"}},
			{Index: 3, Issues: []string{"Missing date"}},
		},
	}

	got := Filter{ProjectID: "p1", Range: RangeAll}.ApplyResult(result, now)

	require.Len(t, got.Cleaned, 3)
	assert.Equal(t, "r4", got.Cleaned[2].ID)
	require.Len(t, got.Problems, 1)
	assert.Equal(t, 2, got.Problems[0].Index)
	assert.Equal(t, []string{"Missing date"}, got.Problems[0].Issues)
	assert.True(t, got.Flagged(2))
}
