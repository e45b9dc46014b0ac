package charts

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/pkg/contracts/domain"
)

func testStats() domain.StatsSnapshot {
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.StatsSnapshot{
		Daily: []domain.TimeBucket{
			{Label: "2024-01-01", Start: d0, Cost: 1200},
			{Label: "2024-01-02", Start: d0.AddDate(0, 0, 1), Cost: 800},
			{Label: "2024-01-04", Start: d0.AddDate(0, 0, 3), Cost: 1500},
		},
		Categories: []domain.CategoryAmount{
			{Category: domain.CostMaterial, Amount: 2000},
			{Category: domain.CostLabor, Amount: 1500},
			{Category: domain.CostEquipment, Amount: 0},
			{Category: domain.CostTransport, Amount: 0},
			{Category: domain.CostMisc, Amount: 0},
		},
	}
}

func TestStandardCharts(t *testing.T) {
	specs := StandardCharts(testStats())

	require.Len(t, specs, 2)
	assert.Equal(t, ChartDailyTrend, specs[0].ID)
	assert.Equal(t, KindLine, specs[0].Kind)
	assert.Len(t, specs[0].Times, 3)
	assert.Equal(t, ChartCategories, specs[1].ID)
	assert.Equal(t, KindPie, specs[1].Kind)
}

func TestStandardChartsSingleDayUsesBar(t *testing.T) {
	stats := testStats()
	stats.Daily = stats.Daily[:1]
	for i := range stats.Categories {
		stats.Categories[i].Amount = 0
	}

	specs := StandardCharts(stats)

	require.Len(t, specs, 2)
	assert.Equal(t, KindBar, specs[0].Kind)
	assert.Nil(t, specs[0].Times)
	assert.Equal(t, KindBar, specs[1].Kind)
}

func TestNativeRendererSupersamples(t *testing.T) {
	r := NewNativeRenderer(2)

	for _, spec := range StandardCharts(testStats()) {
		t.Run(spec.ID, func(t *testing.T) {
			img, err := r.Render(context.Background(), spec)
			require.NoError(t, err)

			cfg, err := png.DecodeConfig(bytes.NewReader(img.PNG))
			require.NoError(t, err)
			assert.Equal(t, DefaultWidth*2, cfg.Width)
			assert.Equal(t, DefaultHeight*2, cfg.Height)
			assert.Equal(t, cfg.Width, img.Width)
			assert.Equal(t, spec.Title, img.Title)
		})
	}
}

func TestNativeRendererRejectsEmptySpec(t *testing.T) {
	_, err := NewNativeRenderer(2).Render(context.Background(), Spec{ID: "empty", Kind: KindBar})
	assert.ErrorIs(t, err, ErrEmptyChart)

	_, err = NewNativeRenderer(2).Render(context.Background(), Spec{
		ID: "zero-pie", Kind: KindPie, Labels: []string{"a"}, Values: []float64{0},
	})
	assert.ErrorIs(t, err, ErrEmptyChart)
}

func TestSVG(t *testing.T) {
	svg, err := SVG(StandardCharts(testStats())[1])
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

type stubRenderer struct {
	fail map[string]error
}

func (s stubRenderer) Render(_ context.Context, spec Spec) (Image, error) {
	if err := s.fail[spec.ID]; err != nil {
		return Image{}, err
	}
	if spec.ID == "blank" {
		return Image{ID: spec.ID}, nil
	}
	return Image{ID: spec.ID, PNG: []byte{1}}, nil
}

func TestRenderAllSkipsFailures(t *testing.T) {
	specs := []Spec{{ID: "a"}, {ID: "broken"}, {ID: "blank"}, {ID: "b"}}
	boom := errors.New("boom")
	var skipped []string

	images := RenderAll(context.Background(), stubRenderer{fail: map[string]error{"broken": boom}}, specs,
		func(s Spec, err error) { skipped = append(skipped, s.ID) })

	require.Len(t, images, 2)
	assert.Equal(t, "a", images[0].ID)
	assert.Equal(t, "b", images[1].ID)
	assert.Equal(t, []string{"broken", "blank"}, skipped)
}

func TestChartPageEmbedsSVG(t *testing.T) {
	page := chartPage([]byte("<svg></svg>"))
	assert.Contains(t, page, "data:text/html;base64,")
}
