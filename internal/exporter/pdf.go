package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-pdf/fpdf"

	"buildtrack/internal/charts"
	"buildtrack/internal/photos"
	"buildtrack/pkg/contracts/domain"
)

var errImageRejected = errors.New("image rejected")

// DefaultMaxPhotos caps the number of photos embedded in one PDF.
const DefaultMaxPhotos = 12

// A4 portrait layout, in millimetres.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	pageMargin   = 15.0
	contentWidth = pageWidth - 2*pageMargin
	bottomLimit  = pageHeight - 18.0
	rowHeight    = 6.5
	galleryBoxH  = 60.0
	galleryGap   = 6.0
	chartGap     = 6.0
	maxChartH    = 70.0
)

type column struct {
	title string
	width float64
	align string
}

var detailColumns = []column{
	{"Date", 22, "L"},
	{"Project", 34, "L"},
	{"Stage", 30, "L"},
	{"Work Completed", 56, "L"},
	{"Manpower", 16, "R"},
	{"Cost", 22, "R"},
}

// PDFOptions configures the PDF builder.
type PDFOptions struct {
	Title string
	// IncludeFlagged keeps records with sanitizer problems in the detail
	// table and gallery.
	IncludeFlagged     bool
	MaxPhotos          int
	DisableCompression bool
	GeneratedAt        time.Time
	// OnPhotoSkipped is called for every photo left out of the gallery
	// because it could not be fetched, decoded or embedded.
	OnPhotoSkipped func(ref domain.PhotoRef, err error)
}

// PDFInput is everything one PDF document is built from.
type PDFInput struct {
	Result domain.SanitizeResult
	Stats  domain.StatsSnapshot
	Charts []charts.Image
	Photos []domain.PhotoRef
}

// PDFBuilder renders report PDFs. Photos are fetched through the configured
// fetcher one at a time.
type PDFBuilder struct {
	fetcher photos.Fetcher
	logger  *slog.Logger
	opts    PDFOptions
}

// NewPDFBuilder creates a builder. A nil fetcher disables the photo gallery.
func NewPDFBuilder(fetcher photos.Fetcher, logger *slog.Logger, opts PDFOptions) *PDFBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Title == "" {
		opts.Title = "Daily Progress Report"
	}
	if opts.MaxPhotos <= 0 {
		opts.MaxPhotos = DefaultMaxPhotos
	}
	return &PDFBuilder{fetcher: fetcher, logger: logger, opts: opts}
}

type galleryImage struct {
	name    string
	caption string
	width   int
	height  int
}

type galleryGroup struct {
	heading string
	images  []galleryImage
}

type pdfDoc struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	images int
}

// Build renders the document. Chart and photo failures are logged and the
// image is left out; only an empty record set or a failure to write the
// document itself returns an error.
func (b *PDFBuilder) Build(ctx context.Context, in PDFInput) ([]byte, error) {
	if len(in.Result.Cleaned) == 0 {
		return nil, ErrNothingToExport
	}
	rows := DetailRows(in.Result, b.opts.IncludeFlagged)

	generated := b.opts.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!b.opts.DisableCompression)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(b.opts.Title, false)
	pdf.SetCreator("buildtrack", false)
	pdf.AliasNbPages("")

	doc := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(contentWidth/2, 6, doc.tr(b.opts.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth/2, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	doc.titleBand(b.opts.Title, generated)
	doc.summaryBoxes(in.Stats, rows, len(in.Result.Cleaned)-len(rows))
	b.drawCharts(doc, in.Charts)
	doc.detailTable(rows)

	groups := b.collectGallery(ctx, doc, rows, in.Photos)
	doc.gallery(groups)

	if pdf.Err() {
		return nil, fmt.Errorf("render pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *pdfDoc) ensureSpace(h float64) bool {
	if d.pdf.GetY()+h <= bottomLimit {
		return false
	}
	d.pdf.AddPage()
	return true
}

func (d *pdfDoc) titleBand(title string, generated time.Time) {
	p := d.pdf
	p.SetFillColor(30, 58, 138)
	p.Rect(0, 0, pageWidth, 28, "F")

	p.SetTextColor(255, 255, 255)
	p.SetXY(pageMargin, 7)
	p.SetFont("Helvetica", "B", 18)
	p.CellFormat(contentWidth, 9, d.tr(title), "", 1, "L", false, 0, "")
	p.SetX(pageMargin)
	p.SetFont("Helvetica", "", 9)
	p.CellFormat(contentWidth, 6, d.tr("Generated "+generated.Format(displayDate+" 15:04")), "", 1, "L", false, 0, "")

	p.SetTextColor(15, 23, 42)
	p.SetY(36)
}

// summaryBoxes shows count, spend and manpower over the rows in the detail
// table, so the boxes agree with its totals row.
func (d *pdfDoc) summaryBoxes(stats domain.StatsSnapshot, rows []Row, excluded int) {
	p := d.pdf
	manpower, cost := Totals(rows)

	countNote := "all records listed"
	switch {
	case excluded == 1:
		countNote = "1 flagged record excluded"
	case excluded > 1:
		countNote = fmt.Sprintf("%d flagged records excluded", excluded)
	}
	spentNote := "no budget set"
	if stats.TotalBudget > 0 {
		spentNote = formatPercent(cost/stats.TotalBudget*100) + " of " + formatCurrency(stats.TotalBudget) + " budget"
	}

	boxes := []struct {
		label, value, note string
	}{
		{"Reports", formatCount(float64(len(rows))), countNote},
		{"Total Spent", formatCurrency(cost), spentNote},
		{"Total Manpower", formatCount(manpower), "workers in total"},
	}

	const gap, h = 4.0, 24.0
	w := (contentWidth - 2*gap) / 3
	top := p.GetY()
	for i, box := range boxes {
		x := pageMargin + float64(i)*(w+gap)
		p.SetFillColor(241, 245, 249)
		p.SetDrawColor(203, 213, 225)
		p.Rect(x, top, w, h, "FD")

		p.SetXY(x+3, top+3)
		p.SetFont("Helvetica", "", 8)
		p.SetTextColor(100, 116, 139)
		p.CellFormat(w-6, 4, d.tr(box.label), "", 2, "L", false, 0, "")
		p.SetFont("Helvetica", "B", 13)
		p.SetTextColor(15, 23, 42)
		p.CellFormat(w-6, 8, d.tr(box.value), "", 2, "L", false, 0, "")
		p.SetFont("Helvetica", "", 7.5)
		p.SetTextColor(100, 116, 139)
		p.CellFormat(w-6, 4, d.tr(box.note), "", 0, "L", false, 0, "")
	}
	p.SetTextColor(15, 23, 42)
	p.SetY(top + h + 6)
}

// drawCharts places at most two charts side by side.
func (b *PDFBuilder) drawCharts(d *pdfDoc, images []charts.Image) {
	p := d.pdf
	w := (contentWidth - chartGap) / 2
	top := p.GetY()
	tallest := 0.0
	placed := 0

	for _, img := range images {
		if placed == 2 {
			break
		}
		norm, err := photos.Normalize(img.PNG)
		if err != nil {
			b.logger.Warn("skipping chart in pdf", slog.String("chart", img.ID), slog.String("error", err.Error()))
			continue
		}
		name, ok := d.register("chart", norm.JPEG)
		if !ok {
			b.logger.Warn("skipping chart in pdf", slog.String("chart", img.ID), slog.String("error", "image rejected"))
			continue
		}

		h := w * float64(norm.Height) / float64(norm.Width)
		if h > maxChartH {
			h = maxChartH
		}
		x := pageMargin + float64(placed)*(w+chartGap)
		p.SetXY(x, top)
		p.SetFont("Helvetica", "B", 9)
		p.CellFormat(w, 5, d.tr(img.Title), "", 0, "L", false, 0, "")
		p.ImageOptions(name, x, top+6, w, h, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		if h > tallest {
			tallest = h
		}
		placed++
	}
	if placed > 0 {
		p.SetY(top + 6 + tallest + 6)
	}
}

// register adds a JPEG to the document under a name unique to this call. The
// error state is cleared only when this image caused it; a document that had
// already failed rejects every image.
func (d *pdfDoc) register(prefix string, jpegData []byte) (string, bool) {
	if d.pdf.Err() {
		return "", false
	}
	d.images++
	name := fmt.Sprintf("%s-%d", prefix, d.images)
	d.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(jpegData))
	if d.pdf.Err() {
		d.pdf.ClearError()
		return "", false
	}
	return name, true
}

func (d *pdfDoc) tableHeader() {
	p := d.pdf
	p.SetFont("Helvetica", "B", 8.5)
	p.SetFillColor(226, 232, 240)
	p.SetDrawColor(203, 213, 225)
	for _, c := range detailColumns {
		p.CellFormat(c.width, rowHeight+1, d.tr(c.title), "1", 0, c.align, true, 0, "")
	}
	p.Ln(rowHeight + 1)
}

func (d *pdfDoc) detailTable(rows []Row) {
	p := d.pdf
	d.ensureSpace(14 + 2*rowHeight)
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(contentWidth, 8, d.tr("Report Details"), "", 1, "L", false, 0, "")
	d.tableHeader()

	if len(rows) == 0 {
		p.SetFont("Helvetica", "I", 8.5)
		p.CellFormat(contentWidth, rowHeight, d.tr("No records to display."), "1", 1, "C", false, 0, "")
		p.Ln(4)
		return
	}

	p.SetFont("Helvetica", "", 8)
	for i, row := range rows {
		if d.ensureSpace(rowHeight) {
			d.tableHeader()
			p.SetFont("Helvetica", "", 8)
		}
		r := row.Report
		cells := []string{
			r.Date.Format(displayDate),
			r.ProjectName,
			r.Stage,
			r.WorkCompleted,
			formatCount(r.Manpower),
			formatCurrency(r.Cost),
		}
		fill := i%2 == 1
		p.SetFillColor(248, 250, 252)
		for j, c := range detailColumns {
			p.CellFormat(c.width, rowHeight, d.fit(cells[j], c.width-2), "1", 0, c.align, fill, 0, "")
		}
		p.Ln(rowHeight)
	}

	if d.ensureSpace(rowHeight) {
		d.tableHeader()
	}
	manpower, cost := Totals(rows)
	p.SetFont("Helvetica", "B", 8.5)
	p.SetFillColor(241, 245, 249)
	labelWidth := 0.0
	for _, c := range detailColumns[:4] {
		labelWidth += c.width
	}
	p.CellFormat(labelWidth, rowHeight+1, d.tr(fmt.Sprintf("Total: %d reports", len(rows))), "1", 0, "L", true, 0, "")
	p.CellFormat(detailColumns[4].width, rowHeight+1, formatCount(manpower), "1", 0, "R", true, 0, "")
	p.CellFormat(detailColumns[5].width, rowHeight+1, d.fit(formatCurrency(cost), detailColumns[5].width-1), "1", 1, "R", true, 0, "")
	p.Ln(6)
}

// fit translates s and shortens it with an ellipsis until it fits width.
func (d *pdfDoc) fit(s string, width float64) string {
	text := d.tr(s)
	if d.pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		text = d.tr(string(runes)) + "..."
		if d.pdf.GetStringWidth(text) <= width {
			return text
		}
	}
	return ""
}

// collectGallery fetches and registers photos for the listed rows, in row
// order, until the cap is reached. Each failed photo is logged and skipped.
func (b *PDFBuilder) collectGallery(ctx context.Context, d *pdfDoc, rows []Row, refs []domain.PhotoRef) []galleryGroup {
	if b.fetcher == nil || len(refs) == 0 {
		return nil
	}
	byReport := make(map[string][]domain.PhotoRef)
	for _, ref := range refs {
		byReport[ref.ReportID] = append(byReport[ref.ReportID], ref)
	}

	var groups []galleryGroup
	embedded := 0
	for _, row := range rows {
		group := galleryGroup{heading: row.Report.Date.Format(displayDate) + " - " + row.Report.ProjectName}
		if row.Report.Stage != "" {
			group.heading += " (" + row.Report.Stage + ")"
		}
		for _, ref := range byReport[row.Report.ID] {
			if embedded == b.opts.MaxPhotos || ctx.Err() != nil {
				break
			}
			img, ok := b.embedPhoto(ctx, d, ref)
			if !ok {
				continue
			}
			group.images = append(group.images, img)
			embedded++
		}
		if len(group.images) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

func (b *PDFBuilder) embedPhoto(ctx context.Context, d *pdfDoc, ref domain.PhotoRef) (galleryImage, bool) {
	log := b.logger.With(slog.String("photo_id", ref.ID), slog.String("report_id", ref.ReportID))
	skip := func(msg string, err error) (galleryImage, bool) {
		log.Warn(msg, slog.String("error", err.Error()))
		if b.opts.OnPhotoSkipped != nil {
			b.opts.OnPhotoSkipped(ref, err)
		}
		return galleryImage{}, false
	}

	data, err := b.fetcher.Fetch(ctx, ref)
	if err != nil {
		return skip("skipping photo: fetch failed", err)
	}
	norm, err := photos.Normalize(data)
	if err != nil {
		return skip("skipping photo: decode failed", err)
	}
	name, ok := d.register("photo", norm.JPEG)
	if !ok {
		return skip("skipping photo: image rejected", errImageRejected)
	}
	caption := ref.Description
	if caption == "" {
		caption = ref.FileName
	}
	return galleryImage{name: name, caption: caption, width: norm.Width, height: norm.Height}, true
}

// gallery lays photos out two per row under a heading per report.
func (d *pdfDoc) gallery(groups []galleryGroup) {
	if len(groups) == 0 {
		return
	}
	p := d.pdf
	cellW := (contentWidth - galleryGap) / 2
	blockH := galleryBoxH + 6 + galleryGap

	d.ensureSpace(10 + 7 + blockH)
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(contentWidth, 8, d.tr("Site Photos"), "", 1, "L", false, 0, "")

	for _, g := range groups {
		d.ensureSpace(7 + blockH)
		p.SetFont("Helvetica", "B", 9)
		p.CellFormat(contentWidth, 7, d.fit(g.heading, contentWidth), "", 1, "L", false, 0, "")

		for i := 0; i < len(g.images); i += 2 {
			if d.ensureSpace(blockH) {
				p.SetFont("Helvetica", "B", 9)
				p.CellFormat(contentWidth, 7, d.fit(g.heading+" (continued)", contentWidth), "", 1, "L", false, 0, "")
			}
			top := p.GetY()
			for j := i; j < i+2 && j < len(g.images); j++ {
				x := pageMargin + float64(j-i)*(cellW+galleryGap)
				d.photoCell(g.images[j], x, top, cellW)
			}
			p.SetY(top + blockH)
		}
	}
}

func (d *pdfDoc) photoCell(img galleryImage, x, top, cellW float64) {
	p := d.pdf
	w, h := cellW, cellW*float64(img.height)/float64(img.width)
	if h > galleryBoxH {
		h = galleryBoxH
		w = h * float64(img.width) / float64(img.height)
	}
	p.SetDrawColor(203, 213, 225)
	p.Rect(x, top, cellW, galleryBoxH, "D")
	p.ImageOptions(img.name, x+(cellW-w)/2, top+(galleryBoxH-h)/2, w, h, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")

	p.SetXY(x, top+galleryBoxH+1)
	p.SetFont("Helvetica", "", 7.5)
	p.SetTextColor(71, 85, 105)
	p.CellFormat(cellW, 5, d.fit(img.caption, cellW-1), "", 0, "L", false, 0, "")
	p.SetTextColor(15, 23, 42)
}
