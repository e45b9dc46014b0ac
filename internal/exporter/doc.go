// Package exporter assembles downloadable documents from sanitized daily
// progress reports.
//
// It produces three formats:
//
// Spreadsheet (BuildSpreadsheet): a workbook with a Summary cover sheet, a
// Reports detail sheet holding every cleaned record in date order with real
// date cells, and a Breakdown sheet with category, project and monthly
// tables. Flagged records are included and their issues listed.
//
// PDF (BuildPDF): a paginated A4 document with a title band, three summary
// boxes, up to two charts side by side, a detail table with a totals row and a
// photo gallery grouped by report. Flagged records are left out unless
// PDFOptions.IncludeFlagged is set.
//
// CSV (CSVWriter): the detail rows with a UTF-8 BOM for Excel.
//
// Chart and photo problems never abort a document; the image is skipped and
// logged. An empty record set returns ErrNothingToExport.
//
// Example usage:
//
//	data, err := exporter.BuildSpreadsheet(result, stats, images, exporter.SpreadsheetOptions{})
//	pdf, err := exporter.NewPDFBuilder(fetcher, logger).Build(ctx, exporter.PDFInput{
//		Result: result,
//		Stats:  stats,
//		Charts: images,
//		Photos: refs,
//	})
package exporter
