package charts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildtrack/pkg/contracts/domain"
)

// DefaultScale is the supersampling factor applied to logical chart sizes.
const DefaultScale = 2

// Logical chart size in pixels before supersampling.
const (
	DefaultWidth  = 480
	DefaultHeight = 280
)

// Standard chart identifiers.
const (
	ChartDailyTrend = "daily-trend"
	ChartCategories = "categories"
)

// ErrEmptyChart is returned when a chart has no drawable data or the
// rasterized image is empty.
var ErrEmptyChart = errors.New("chart is empty")

// Kind selects the chart form.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
	KindPie  Kind = "pie"
)

// Spec describes one chart independent of the renderer.
type Spec struct {
	ID     string
	Title  string
	Kind   Kind
	Labels []string
	Times  []time.Time
	Values []float64
	Width  int
	Height int
}

// Validate checks that the spec can be drawn.
func (s Spec) Validate() error {
	if len(s.Values) == 0 {
		return fmt.Errorf("%s: %w", s.ID, ErrEmptyChart)
	}
	if len(s.Labels) != len(s.Values) {
		return fmt.Errorf("%s: %d labels for %d values", s.ID, len(s.Labels), len(s.Values))
	}
	if s.Kind == KindLine && len(s.Times) != len(s.Values) {
		return fmt.Errorf("%s: line chart needs one time per value", s.ID)
	}
	return nil
}

func (s Spec) size() (int, int) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Image is a rasterized chart.
type Image struct {
	ID     string
	Title  string
	PNG    []byte
	Width  int
	Height int
}

// Renderer rasterizes chart specs.
type Renderer interface {
	Render(ctx context.Context, spec Spec) (Image, error)
}

// StandardCharts builds the charts shown on exported reports: the daily
// spending trend and the spending split by cost category.
func StandardCharts(stats domain.StatsSnapshot) []Spec {
	var specs []Spec

	if len(stats.Daily) > 0 {
		trend := Spec{ID: ChartDailyTrend, Title: "Daily Spending", Kind: KindLine}
		for _, b := range stats.Daily {
			trend.Labels = append(trend.Labels, b.Label)
			trend.Times = append(trend.Times, b.Start)
			trend.Values = append(trend.Values, b.Cost)
		}
		if len(trend.Values) < 2 {
			trend.Kind = KindBar
			trend.Times = nil
		}
		specs = append(specs, trend)
	}

	categories := Spec{ID: ChartCategories, Title: "Spending by Category", Kind: KindPie}
	total := 0.0
	for _, c := range stats.Categories {
		categories.Labels = append(categories.Labels, string(c.Category))
		categories.Values = append(categories.Values, c.Amount)
		total += c.Amount
	}
	if len(categories.Values) > 0 {
		if total <= 0 {
			categories.Kind = KindBar
		}
		specs = append(specs, categories)
	}
	return specs
}

// RenderAll renders specs in order, one at a time. A failed chart is
// reported through onError and skipped.
func RenderAll(ctx context.Context, r Renderer, specs []Spec, onError func(Spec, error)) []Image {
	images := make([]Image, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			if onError != nil {
				onError(spec, err)
			}
			continue
		}
		img, err := r.Render(ctx, spec)
		if err == nil && len(img.PNG) == 0 {
			err = ErrEmptyChart
		}
		if err != nil {
			if onError != nil {
				onError(spec, err)
			}
			continue
		}
		images = append(images, img)
	}
	return images
}
