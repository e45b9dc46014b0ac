package financials

import (
	"sort"
	"time"

	"buildtrack/pkg/contracts/domain"
)

// DefaultFallbackBudget replaces a zero total budget.
const DefaultFallbackBudget = 10_000_000

// Utilization thresholds, in percent.
const (
	WarningThreshold  = 75.0
	CriticalThreshold = 90.0
)

// UnassignedProject labels reports that belong to no project.
const UnassignedProject = "Unassigned"

// Aggregator computes stats snapshots.
type Aggregator struct {
	fallbackBudget float64
}

// NewAggregator creates an Aggregator. A non-positive fallback uses
// DefaultFallbackBudget.
func NewAggregator(fallbackBudget float64) *Aggregator {
	if fallbackBudget <= 0 {
		fallbackBudget = DefaultFallbackBudget
	}
	return &Aggregator{fallbackBudget: fallbackBudget}
}

// FallbackBudget returns the budget used when projects declare none.
func (a *Aggregator) FallbackBudget() float64 {
	return a.fallbackBudget
}

// Aggregate folds reports, projects and cost entries into a snapshot.
func (a *Aggregator) Aggregate(reports []domain.Report, projects []domain.Project, entries []domain.CostEntry) domain.StatsSnapshot {
	snap := domain.StatsSnapshot{ReportCount: len(reports)}

	for _, r := range reports {
		snap.TotalSpent += r.Cost
		snap.TotalManpower += r.Manpower
	}
	for _, p := range projects {
		snap.TotalBudget += p.TotalCost
	}
	if snap.TotalBudget == 0 {
		snap.TotalBudget = a.fallbackBudget
		snap.BudgetIsFallback = true
	}

	if snap.ReportCount > 0 {
		snap.AverageDailyCost = snap.TotalSpent / float64(snap.ReportCount)
	}
	snap.Remaining = snap.TotalBudget - snap.TotalSpent
	snap.Utilization = Utilization(snap.TotalSpent, snap.TotalBudget)
	snap.UtilizationLevel = Level(snap.Utilization)

	snap.Categories = Categories(reports, entries)
	snap.ProjectSeries = ProjectSeries(reports, projects)
	snap.Daily = Daily(reports)
	snap.DailyCumulative = Cumulative(snap.Daily)
	snap.Monthly = Monthly(reports)
	snap.MonthlyCumulative = Cumulative(snap.Monthly)
	return snap
}

// Utilization is spent as a percentage of budget, or 0 without a budget.
func Utilization(spent, budget float64) float64 {
	if budget == 0 {
		return 0
	}
	return spent / budget * 100
}

// Level buckets a utilization percentage.
func Level(utilization float64) domain.UtilizationLevel {
	switch {
	case utilization > CriticalThreshold:
		return domain.UtilizationCritical
	case utilization > WarningThreshold:
		return domain.UtilizationWarning
	default:
		return domain.UtilizationHealthy
	}
}

// Categories sums cost entries per category. A report without entries puts
// its whole cost under Misc. Every category is present, in display order.
func Categories(reports []domain.Report, entries []domain.CostEntry) []domain.CategoryAmount {
	byReport := make(map[string][]domain.CostEntry, len(entries))
	for _, e := range entries {
		byReport[e.ReportID] = append(byReport[e.ReportID], e)
	}

	sums := make(map[domain.CostCategory]float64, len(domain.CostCategories))
	for _, r := range reports {
		split, ok := byReport[r.ID]
		if !ok || r.ID == "" {
			sums[domain.CostMisc] += r.Cost
			continue
		}
		for _, e := range split {
			sums[domain.ParseCostCategory(string(e.Category))] += e.Amount
		}
	}

	out := make([]domain.CategoryAmount, 0, len(domain.CostCategories))
	for _, c := range domain.CostCategories {
		out = append(out, domain.CategoryAmount{Category: c, Amount: sums[c]})
	}
	return out
}

// ProjectSeries computes budget utilization per project. Declared projects
// come first in input order, then project references with no project record
// sorted by id, then orphaned reports under UnassignedProject.
func ProjectSeries(reports []domain.Report, projects []domain.Project) []domain.ProjectSpend {
	spent := make(map[string]float64)
	names := make(map[string]string)
	orphaned := false
	orphanSpent := 0.0
	for _, r := range reports {
		key := r.ProjectKey()
		if key == "" {
			orphaned = true
			orphanSpent += r.Cost
			continue
		}
		spent[key] += r.Cost
		if names[key] == "" {
			names[key] = r.ProjectName
		}
	}

	out := make([]domain.ProjectSpend, 0, len(projects)+len(spent))
	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.ID] = true
		out = append(out, spend(p.ID, p.Name, p.TotalCost, spent[p.ID]))
	}

	var unknown []string
	for id := range spent {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		name := names[id]
		if name == "" {
			name = id
		}
		out = append(out, spend(id, name, 0, spent[id]))
	}

	if orphaned {
		out = append(out, spend("", UnassignedProject, 0, orphanSpent))
	}
	return out
}

func spend(id, name string, budget, spent float64) domain.ProjectSpend {
	u := Utilization(spent, budget)
	return domain.ProjectSpend{
		ProjectID:   id,
		Name:        name,
		Budget:      budget,
		Spent:       spent,
		Remaining:   budget - spent,
		Utilization: u,
		Level:       Level(u),
	}
}

// Daily buckets reports by calendar date, oldest first.
func Daily(reports []domain.Report) []domain.TimeBucket {
	return bucket(reports, func(t time.Time) (time.Time, string) {
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006-01-02")
	})
}

// Monthly buckets reports by calendar month, oldest first. Labels look like
// "Jan 2024".
func Monthly(reports []domain.Report) []domain.TimeBucket {
	return bucket(reports, func(t time.Time) (time.Time, string) {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("Jan 2006")
	})
}

func bucket(reports []domain.Report, key func(time.Time) (time.Time, string)) []domain.TimeBucket {
	index := make(map[time.Time]int)
	var out []domain.TimeBucket
	for _, r := range reports {
		start, label := key(r.Date)
		i, ok := index[start]
		if !ok {
			i = len(out)
			index[start] = i
			out = append(out, domain.TimeBucket{Label: label, Start: start})
		}
		out[i].Cost += r.Cost
		out[i].Manpower += r.Manpower
		out[i].Reports++
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Start.Before(out[b].Start) })
	return out
}

// Cumulative returns the running prefix sum of buckets.
func Cumulative(buckets []domain.TimeBucket) []domain.TimeBucket {
	out := make([]domain.TimeBucket, len(buckets))
	var running domain.TimeBucket
	for i, b := range buckets {
		running.Cost += b.Cost
		running.Manpower += b.Manpower
		running.Reports += b.Reports
		out[i] = domain.TimeBucket{
			Label:    b.Label,
			Start:    b.Start,
			Cost:     running.Cost,
			Manpower: running.Manpower,
			Reports:  running.Reports,
		}
	}
	return out
}
