package exporter

import (
	"sort"
	"strings"

	"buildtrack/pkg/contracts/domain"
)

// Row is one detail line of an export, with the source index preserved so
// the record can be matched to its problem entry.
type Row struct {
	Index  int
	Report domain.Report
	Issues []string
}

// DetailRows orders the cleaned records by date, oldest first, keeping input
// order for equal dates. Flagged records are dropped unless includeFlagged
// is set.
func DetailRows(result domain.SanitizeResult, includeFlagged bool) []Row {
	issues := make(map[int][]string, len(result.Problems))
	for _, p := range result.Problems {
		issues[p.Index] = append(issues[p.Index], p.Issues...)
	}

	rows := make([]Row, 0, len(result.Cleaned))
	for i, r := range result.Cleaned {
		if len(issues[i]) > 0 && !includeFlagged {
			continue
		}
		rows = append(rows, Row{Index: i, Report: r, Issues: issues[i]})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Report.Date.Before(rows[b].Report.Date)
	})
	return rows
}

// Totals sums manpower and cost over rows.
func Totals(rows []Row) (manpower, cost float64) {
	for _, r := range rows {
		manpower += r.Report.Manpower
		cost += r.Report.Cost
	}
	return manpower, cost
}

func issueText(issues []string) string {
	return strings.Join(issues, "; ")
}
