package render

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/gaussian"
	"github.com/menta2k/beam-profiler/pkg/types"
)

// Cut is a line profile through the fitted centre
type Cut struct {
	Axis  string
	Pos   []float64
	Data  []float64
	Model []float64
}

// Cuts returns the row and column profiles nearest to the fitted centre
func Cuts(f *frame.Frame, g *frame.Grid, params types.Params) (Cut, Cut) {
	row := nearest(params.Y0()/g.PixelSize-float64(g.OriginY), f.Height)
	col := nearest(params.X0()/g.PixelSize-float64(g.OriginX), f.Width)

	h := Cut{Axis: "x"}
	y := g.RowCoord(row)
	for c := 0; c < f.Width; c++ {
		x := g.ColCoord(c)
		h.Pos = append(h.Pos, x)
		h.Data = append(h.Data, f.At(row, c))
		h.Model = append(h.Model, gaussian.Eval(x, y, params))
	}

	v := Cut{Axis: "y"}
	x := g.ColCoord(col)
	for r := 0; r < f.Height; r++ {
		y := g.RowCoord(r)
		v.Pos = append(v.Pos, y)
		v.Data = append(v.Data, f.At(r, col))
		v.Model = append(v.Model, gaussian.Eval(x, y, params))
	}
	return h, v
}

func nearest(idx float64, n int) int {
	if math.IsNaN(idx) {
		return n / 2
	}
	i := int(math.Round(idx))
	return min(max(i, 0), n-1)
}

func cutChart(cut Cut, title, unit string) *charts.Line {
	data := make([]opts.LineData, len(cut.Pos))
	model := make([]opts.LineData, len(cut.Pos))
	for i, p := range cut.Pos {
		data[i] = opts.LineData{Value: []interface{}{p, cut.Data[i]}}
		model[i] = opts.LineData{Value: []interface{}{p, cut.Model[i]}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s cut", cut.Axis), Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: fmt.Sprintf("%s (%s)", cut.Axis, unit), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Intensity"}),
	)
	line.AddSeries("data", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.AddSeries("fit", model, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}))
	return line
}

// HTML writes an interactive page with the x and y cuts through the fit
func HTML(path string, f *frame.Frame, g *frame.Grid, params types.Params, title, unit string) error {
	if unit == "" {
		unit = DefaultOptions().Unit
	}
	h, v := Cuts(f, g, params)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(cutChart(h, title, unit), cutChart(v, title, unit))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render profile page: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write profile page: %w", err)
	}
	return nil
}
