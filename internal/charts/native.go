package charts

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("8884d8"),
	drawing.ColorFromHex("82ca9d"),
	drawing.ColorFromHex("ffc658"),
	drawing.ColorFromHex("ff7300"),
	drawing.ColorFromHex("0088fe"),
}

// NativeRenderer draws charts with go-chart.
type NativeRenderer struct {
	Scale int
}

// NewNativeRenderer creates a renderer with the given supersampling scale.
func NewNativeRenderer(scale int) *NativeRenderer {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &NativeRenderer{Scale: scale}
}

// Render draws spec as a PNG at Scale times its logical size.
func (n *NativeRenderer) Render(ctx context.Context, spec Spec) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	var buf bytes.Buffer
	if err := draw(spec, n.Scale, chart.PNG, &buf); err != nil {
		return Image{}, err
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return Image{}, fmt.Errorf("%s: decode rendered chart: %w", spec.ID, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Image{}, fmt.Errorf("%s: %w", spec.ID, ErrEmptyChart)
	}
	return Image{ID: spec.ID, Title: spec.Title, PNG: buf.Bytes(), Width: cfg.Width, Height: cfg.Height}, nil
}

// SVG draws spec as SVG at its logical size.
func SVG(spec Spec) ([]byte, error) {
	var buf bytes.Buffer
	if err := draw(spec, 1, chart.SVG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func draw(spec Spec, scale int, provider chart.RendererProvider, w io.Writer) (err error) {
	if err := spec.Validate(); err != nil {
		return err
	}
	width, height := spec.size()
	width, height = width*scale, height*scale
	dpi := chart.DefaultDPI * float64(scale)

	// go-chart panics on some degenerate ranges.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: render chart: %v", spec.ID, r)
		}
	}()

	switch spec.Kind {
	case KindLine:
		return drawLine(spec, width, height, dpi, provider, w)
	case KindPie:
		return drawPie(spec, width, height, dpi, provider, w)
	default:
		return drawBar(spec, width, height, dpi, provider, w)
	}
}

func drawLine(spec Spec, width, height int, dpi float64, provider chart.RendererProvider, w io.Writer) error {
	graph := chart.Chart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		DPI:    dpi,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis: chart.YAxis{ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return compactAmount(f)
			}
			return ""
		}},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    spec.Title,
				XValues: spec.Times,
				YValues: spec.Values,
				Style: chart.Style{
					StrokeColor: palette[0],
					StrokeWidth: 2,
					FillColor:   palette[0].WithAlpha(48),
				},
			},
		},
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("%s: render line chart: %w", spec.ID, err)
	}
	return nil
}

func drawBar(spec Spec, width, height int, dpi float64, provider chart.RendererProvider, w io.Writer) error {
	bars := make([]chart.Value, len(spec.Values))
	for i, v := range spec.Values {
		bars[i] = chart.Value{
			Label: spec.Labels[i],
			Value: v,
			Style: chart.Style{FillColor: palette[i%len(palette)], StrokeColor: palette[i%len(palette)]},
		}
	}
	graph := chart.BarChart{
		Title:    spec.Title,
		Width:    width,
		Height:   height,
		DPI:      dpi,
		BarWidth: width / (2*len(bars) + 1),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("%s: render bar chart: %w", spec.ID, err)
	}
	return nil
}

func drawPie(spec Spec, width, height int, dpi float64, provider chart.RendererProvider, w io.Writer) error {
	var values []chart.Value
	for i, v := range spec.Values {
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: spec.Labels[i],
			Value: v,
			Style: chart.Style{FillColor: palette[i%len(palette)]},
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("%s: %w", spec.ID, ErrEmptyChart)
	}
	graph := chart.PieChart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		DPI:    dpi,
		Values: values,
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("%s: render pie chart: %w", spec.ID, err)
	}
	return nil
}

func compactAmount(v float64) string {
	switch {
	case v >= 10_000_000:
		return fmt.Sprintf("%.1fCr", v/10_000_000)
	case v >= 100_000:
		return fmt.Sprintf("%.1fL", v/100_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
