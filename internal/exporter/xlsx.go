package exporter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"buildtrack/internal/charts"
	"buildtrack/pkg/contracts/domain"
)

// Sheet names, in workbook order.
const (
	SheetSummary   = "Summary"
	SheetReports   = "Reports"
	SheetBreakdown = "Breakdown"
)

// SpreadsheetOptions configures BuildSpreadsheet.
type SpreadsheetOptions struct {
	Title       string
	GeneratedAt time.Time
	Logger      *slog.Logger
}

func (o SpreadsheetOptions) withDefaults() SpreadsheetOptions {
	if o.Title == "" {
		o.Title = "Daily Progress Report"
	}
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type sheetStyles struct {
	title    int
	label    int
	header   int
	currency int
	count    int
	percent  int
	date     int
	text     int
	flagged  int
	total    int
	totalAmt int
}

// BuildSpreadsheet renders every cleaned record, flagged ones included, into
// an xlsx workbook. Charts are placed on the Summary sheet.
func BuildSpreadsheet(result domain.SanitizeResult, stats domain.StatsSnapshot, images []charts.Image, opts SpreadsheetOptions) ([]byte, error) {
	rows := DetailRows(result, true)
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetReports, SheetBreakdown} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeSummarySheet(f, styles, stats, len(result.Problems), opts); err != nil {
		return nil, err
	}
	placeCharts(f, images, opts.Logger)
	if err := writeReportsSheet(f, styles, rows); err != nil {
		return nil, err
	}
	if err := writeBreakdownSheet(f, styles, stats); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	currency, count, percent, date := currencyNumFmt, countNumFmt, percentNumFmt, dateNumFmt
	headerFill := excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1}
	flaggedFill := excelize.Fill{Type: "pattern", Color: []string{"#FEF3C7"}, Pattern: 1}
	totalFill := excelize.Fill{Type: "pattern", Color: []string{"#F1F5F9"}, Pattern: 1}

	var out sheetStyles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&out.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16, Color: "#1E3A8A"}}},
		{&out.label, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&out.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      headerFill,
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&out.currency, &excelize.Style{CustomNumFmt: &currency}},
		{&out.count, &excelize.Style{CustomNumFmt: &count}},
		{&out.percent, &excelize.Style{CustomNumFmt: &percent}},
		{&out.date, &excelize.Style{CustomNumFmt: &date, Alignment: &excelize.Alignment{Horizontal: "left"}}},
		{&out.text, &excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}}},
		{&out.flagged, &excelize.Style{Fill: flaggedFill, Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}}},
		{&out.total, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: totalFill}},
		{&out.totalAmt, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: totalFill, CustomNumFmt: &currency}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return sheetStyles{}, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return out, nil
}

// setRow writes values starting at column A of row and applies styleIDs
// cell by cell. A zero style leaves the cell unstyled.
func setRow(f *excelize.File, sheet string, row int, values []any, styleIDs []int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
		if i < len(styleIDs) && styleIDs[i] != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, styleIDs[i]); err != nil {
				return fmt.Errorf("style %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func headerRow(f *excelize.File, s sheetStyles, sheet string, row int, headers []string) error {
	values := make([]any, len(headers))
	ids := make([]int, len(headers))
	for i, h := range headers {
		values[i] = h
		ids[i] = s.header
	}
	return setRow(f, sheet, row, values, ids)
}

func writeSummarySheet(f *excelize.File, s sheetStyles, stats domain.StatsSnapshot, flagged int, opts SpreadsheetOptions) error {
	sheet := SheetSummary
	if err := setRow(f, sheet, 1, []any{opts.Title}, []int{s.title}); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "B1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	if err := setRow(f, sheet, 2, []any{"Generated", opts.GeneratedAt.Format(displayDate + " 15:04")}, []int{s.label}); err != nil {
		return err
	}

	budgetNote := ""
	if stats.BudgetIsFallback {
		budgetNote = "default budget"
	}
	lines := []struct {
		label string
		value any
		style int
		note  string
	}{
		{"Reports", stats.ReportCount, s.count, ""},
		{"Flagged records", flagged, s.count, ""},
		{"Total spent", stats.TotalSpent, s.currency, ""},
		{"Total budget", stats.TotalBudget, s.currency, budgetNote},
		{"Remaining", stats.Remaining, s.currency, ""},
		{"Budget utilization", stats.Utilization, s.percent, string(stats.UtilizationLevel)},
		{"Total manpower", stats.TotalManpower, s.count, ""},
		{"Average daily cost", stats.AverageDailyCost, s.currency, ""},
	}
	for i, l := range lines {
		values := []any{l.label, l.value}
		if l.note != "" {
			values = append(values, l.note)
		}
		if err := setRow(f, sheet, 4+i, values, []int{s.label, l.style}); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "C", 20)
}

// placeCharts anchors the chart images on the Summary sheet, one below the
// other. Images are rendered supersampled, so they are scaled back down.
func placeCharts(f *excelize.File, images []charts.Image, logger *slog.Logger) {
	row := 4
	for _, img := range images {
		if len(img.PNG) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(5, row)
		err := f.AddPictureFromBytes(SheetSummary, cell, &excelize.Picture{
			Extension: ".png",
			File:      img.PNG,
			Format: &excelize.GraphicOptions{
				AltText: img.Title,
				ScaleX:  0.5,
				ScaleY:  0.5,
			},
		})
		if err != nil {
			logger.Warn("skipping chart in workbook",
				slog.String("chart", img.ID),
				slog.String("error", err.Error()))
			continue
		}
		// Default row height is 20 px.
		row += img.Height/2/20 + 2
	}
}

func writeReportsSheet(f *excelize.File, s sheetStyles, rows []Row) error {
	sheet := SheetReports
	if err := headerRow(f, s, sheet, 1, ReportHeaders); err != nil {
		return err
	}

	for i, row := range rows {
		r := row.Report
		text := s.text
		if len(row.Issues) > 0 {
			text = s.flagged
		}
		values := []any{
			r.Date, r.ProjectName, r.Stage, r.WorkCompleted, r.MaterialsUsed,
			r.Manpower, r.Cost, r.Weather, r.Remarks, issueText(row.Issues),
		}
		ids := []int{s.date, text, text, text, text, s.count, s.currency, text, text, text}
		if err := setRow(f, sheet, i+2, values, ids); err != nil {
			return err
		}
	}

	manpower, cost := Totals(rows)
	totalRow := len(rows) + 2
	totals := []any{"Total", "", "", "", "", manpower, cost}
	if err := setRow(f, sheet, totalRow, totals, []int{s.total, s.total, s.total, s.total, s.total, s.total, s.totalAmt}); err != nil {
		return err
	}

	widths := []float64{14, 24, 22, 40, 30, 11, 16, 10, 30, 24}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	lastCell, _ := excelize.CoordinatesToCellName(len(ReportHeaders), len(rows)+1)
	if err := f.AutoFilter(sheet, "A1:"+lastCell, nil); err != nil {
		return fmt.Errorf("set filter: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeBreakdownSheet(f *excelize.File, s sheetStyles, stats domain.StatsSnapshot) error {
	sheet := SheetBreakdown
	row := 1

	section := func(title string, headers []string) error {
		if err := setRow(f, sheet, row, []any{title}, []int{s.label}); err != nil {
			return err
		}
		if err := headerRow(f, s, sheet, row+1, headers); err != nil {
			return err
		}
		row += 2
		return nil
	}

	if err := section("Spending by Category", []string{"Category", "Amount", "Share"}); err != nil {
		return err
	}
	var categoryTotal float64
	for _, c := range stats.Categories {
		categoryTotal += c.Amount
	}
	for _, c := range stats.Categories {
		share := 0.0
		if categoryTotal > 0 {
			share = c.Amount / categoryTotal * 100
		}
		if err := setRow(f, sheet, row, []any{string(c.Category), c.Amount, share}, []int{0, s.currency, s.percent}); err != nil {
			return err
		}
		row++
	}

	row++
	if err := section("Spending by Project", []string{"Project", "Budget", "Spent", "Remaining", "Utilization"}); err != nil {
		return err
	}
	for _, p := range stats.ProjectSeries {
		values := []any{p.Name, p.Budget, p.Spent, p.Remaining, p.Utilization}
		if err := setRow(f, sheet, row, values, []int{0, s.currency, s.currency, s.currency, s.percent}); err != nil {
			return err
		}
		row++
	}

	row++
	if err := section("Monthly", []string{"Month", "Cost", "Cumulative", "Manpower", "Reports"}); err != nil {
		return err
	}
	for i, m := range stats.Monthly {
		cumulative := m.Cost
		if i < len(stats.MonthlyCumulative) {
			cumulative = stats.MonthlyCumulative[i].Cost
		}
		values := []any{m.Label, m.Cost, cumulative, m.Manpower, m.Reports}
		if err := setRow(f, sheet, row, values, []int{0, s.currency, s.currency, s.count, s.count}); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "A", 26); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "E", 16)
}
