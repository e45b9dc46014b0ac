package domain

import (
	"time"
)

// UtilizationLevel buckets budget utilization for display.
type UtilizationLevel string

const (
	UtilizationHealthy  UtilizationLevel = "healthy"
	UtilizationWarning  UtilizationLevel = "warning"
	UtilizationCritical UtilizationLevel = "critical"
)

// StatsSnapshot is a full fold over the current report set. It is never
// updated in place.
type StatsSnapshot struct {
	ReportCount       int              `json:"report_count"`
	TotalSpent        float64          `json:"total_spent"`
	TotalBudget       float64          `json:"total_budget"`
	BudgetIsFallback  bool             `json:"budget_is_fallback"`
	Remaining         float64          `json:"remaining"`
	Utilization       float64          `json:"utilization"`
	UtilizationLevel  UtilizationLevel `json:"utilization_level"`
	TotalManpower     float64          `json:"total_manpower"`
	AverageDailyCost  float64          `json:"average_daily_cost"`
	Categories        []CategoryAmount `json:"categories"`
	ProjectSeries     []ProjectSpend   `json:"project_series"`
	Daily             []TimeBucket     `json:"daily"`
	DailyCumulative   []TimeBucket     `json:"daily_cumulative"`
	Monthly           []TimeBucket     `json:"monthly"`
	MonthlyCumulative []TimeBucket     `json:"monthly_cumulative"`
}

// CategoryAmount is the spending total for one cost category.
type CategoryAmount struct {
	Category CostCategory `json:"category"`
	Amount   float64      `json:"amount"`
}

// ProjectSpend is budget against spending for one project.
type ProjectSpend struct {
	ProjectID   string           `json:"project_id"`
	Name        string           `json:"name"`
	Budget      float64          `json:"budget"`
	Spent       float64          `json:"spent"`
	Remaining   float64          `json:"remaining"`
	Utilization float64          `json:"utilization"`
	Level       UtilizationLevel `json:"level"`
}

// TimeBucket is one point of a time series.
type TimeBucket struct {
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	Cost     float64   `json:"cost"`
	Manpower float64   `json:"manpower"`
	Reports  int       `json:"reports"`
}
