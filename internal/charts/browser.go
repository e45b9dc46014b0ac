package charts

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const chartSelector = "#chart"

// BrowserConfig configures the headless browser rasterizer.
type BrowserConfig struct {
	Headless bool
	Scale    int
	Timeout  time.Duration
}

// BrowserRasterizer renders the SVG form of a chart in headless Chrome and
// captures the chart element at a device scale factor of Scale.
type BrowserRasterizer struct {
	cfg     BrowserConfig
	logger  *slog.Logger
	mu      sync.Mutex
	browser context.Context
	cancel  func()
}

// NewBrowserRasterizer starts a browser allocator. Close releases it.
func NewBrowserRasterizer(cfg BrowserConfig, logger *slog.Logger) *BrowserRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &BrowserRasterizer{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "charts.browser")),
		browser: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}
}

// Render captures spec as a PNG.
func (b *BrowserRasterizer) Render(ctx context.Context, spec Spec) (Image, error) {
	svg, err := SVG(spec)
	if err != nil {
		return Image{}, err
	}
	width, height := spec.size()

	// One tab at a time; exports render their charts sequentially.
	b.mu.Lock()
	defer b.mu.Unlock()

	tabCtx, cancelTab := chromedp.NewContext(b.browser)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	start := time.Now()
	var shot []byte
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(width), int64(height), chromedp.EmulateScale(float64(b.cfg.Scale))),
		chromedp.Navigate(chartPage(svg)),
		chromedp.WaitVisible(chartSelector, chromedp.ByQuery),
		chromedp.Screenshot(chartSelector, &shot, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return Image{}, fmt.Errorf("%s: capture chart: %w", spec.ID, err)
	}
	if len(shot) == 0 {
		return Image{}, fmt.Errorf("%s: %w", spec.ID, ErrEmptyChart)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(shot))
	if err != nil {
		return Image{}, fmt.Errorf("%s: decode screenshot: %w", spec.ID, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Image{}, fmt.Errorf("%s: %w", spec.ID, ErrEmptyChart)
	}

	b.logger.DebugContext(ctx, "chart captured",
		slog.String("chart", spec.ID),
		slog.Int("width", cfg.Width),
		slog.Int("height", cfg.Height),
		slog.Duration("duration", time.Since(start)))

	return Image{ID: spec.ID, Title: spec.Title, PNG: shot, Width: cfg.Width, Height: cfg.Height}, nil
}

// Close shuts the browser down.
func (b *BrowserRasterizer) Close() {
	b.cancel()
}

func chartPage(svg []byte) string {
	var html bytes.Buffer
	html.WriteString(`<!DOCTYPE html><html><head><style>html,body{margin:0;padding:0;background:#fff}` +
		`#chart{display:inline-block;line-height:0}</style></head><body><div id="chart">`)
	html.Write(svg)
	html.WriteString(`</div></body></html>`)
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString(html.Bytes())
}
