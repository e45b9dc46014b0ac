package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReportHeaders are the detail columns shared by the CSV and spreadsheet
// exports.
var ReportHeaders = []string{
	"Date", "Project", "Stage", "Work Completed", "Materials Used",
	"Manpower", "Cost", "Weather", "Remarks", "Issues",
}

// CSVWriter writes CSV files below a base directory.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes a CSV file. Relative names resolve against the writer's
// directory.
func (w *CSVWriter) WriteCSV(name string, options WriteOptions) error {
	fullPath := w.resolvePath(name)

	slog.Info("Writing CSV file",
		slog.String("file_path", name),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return writeCSV(file, options)
}

// WriteReports writes the detail rows as CSV with a BOM.
func (w *CSVWriter) WriteReports(name string, rows []Row) error {
	return w.WriteCSV(name, WriteOptions{
		Headers:   ReportHeaders,
		Records:   ReportRecords(rows),
		BOMPrefix: true,
	})
}

// WriteReportsTo streams the detail rows as CSV to out.
func WriteReportsTo(out io.Writer, rows []Row) error {
	return writeCSV(out, WriteOptions{
		Headers:   ReportHeaders,
		Records:   ReportRecords(rows),
		BOMPrefix: true,
	})
}

// ReportRecords flattens rows into CSV records in ReportHeaders order.
func ReportRecords(rows []Row) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		r := row.Report
		records = append(records, []string{
			r.Date.Format("2006-01-02"),
			r.ProjectName,
			r.Stage,
			r.WorkCompleted,
			r.MaterialsUsed,
			strconv.FormatFloat(r.Manpower, 'f', -1, 64),
			strconv.FormatFloat(r.Cost, 'f', 2, 64),
			r.Weather,
			r.Remarks,
			issueText(row.Issues),
		})
	}
	return records
}

func writeCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (w *CSVWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) || w.dir == "" {
		return name
	}
	return filepath.Join(w.dir, name)
}
