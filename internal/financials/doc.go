// Package financials folds sanitized reports and projects into a stats
// snapshot: spending against budget, manpower, per-project utilization,
// cost-category breakdown and daily and monthly series with running totals.
//
// Every call recomputes the full snapshot from its inputs.
package financials
