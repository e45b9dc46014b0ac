package exporter

import (
	"errors"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrNothingToExport is returned when there are no records to export.
var ErrNothingToExport = errors.New("nothing to export")

// Spreadsheet number formats. The currency format groups digits the Indian
// way (12,34,567.00) through conditional sections.
const (
	currencyNumFmt = `[>=10000000]"₹"##\,##\,##\,##0.00;[>=100000]"₹"##\,##\,##0.00;"₹"#,##0.00`
	countNumFmt    = `#,##0`
	percentNumFmt  = `0.0"%"`
	dateNumFmt     = `dd-mmm-yyyy`
)

// Dates in document text.
const displayDate = "02 Jan 2006"

var printer = message.NewPrinter(language.MustParse("en-IN"))

// formatCurrency renders an amount for PDF text. The core PDF fonts have no
// rupee glyph, so the amount is prefixed with "Rs.".
func formatCurrency(v float64) string {
	return printer.Sprintf("Rs. %.2f", v)
}

// formatCount renders a manpower count, keeping one decimal only when the
// value is fractional.
func formatCount(v float64) string {
	if v == math.Trunc(v) {
		return printer.Sprintf("%.0f", v)
	}
	return printer.Sprintf("%.1f", v)
}

// formatPercent renders a utilization percentage.
func formatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}
