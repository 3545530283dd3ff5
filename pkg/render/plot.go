// Package render draws beam frames and their fitted model.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/gaussian"
	"github.com/menta2k/beam-profiler/pkg/types"
)

// Options controls the PNG figure
type Options struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
	// Levels is the number of contour lines drawn for the fitted model
	Levels int
	// Unit labels the axes
	Unit string
}

// DefaultOptions returns a 7x5 inch, 96 dpi figure with 10 contour levels
func DefaultOptions() Options {
	return Options{
		Width:  7 * vg.Inch,
		Height: 5 * vg.Inch,
		DPI:    96,
		Levels: 10,
		Unit:   "µm",
	}
}

// gridXYZ adapts a frame-shaped value slice to plotter.GridXYZ
type gridXYZ struct {
	g *frame.Grid
	z []float64
}

func (d gridXYZ) Dims() (c, r int)   { return d.g.Cols, d.g.Rows }
func (d gridXYZ) Z(c, r int) float64 { return d.z[r*d.g.Cols+c] }
func (d gridXYZ) X(c int) float64    { return d.g.ColCoord(c) }
func (d gridXYZ) Y(r int) float64    { return d.g.RowCoord(r) }

// ContourLevels returns n levels evenly spaced strictly between the
// minimum and maximum of z
func ContourLevels(z []float64, n int) []float64 {
	if n <= 0 || len(z) == 0 {
		return nil
	}
	lo, hi := floats.Min(z), floats.Max(z)
	if hi <= lo {
		return []float64{lo}
	}
	levels := floats.Span(make([]float64, n+2), lo, hi)
	return levels[1 : n+1]
}

// Figure builds the data plot and its colorbar
func Figure(f *frame.Frame, g *frame.Grid, params types.Params, title string, opts Options) (*plot.Plot, *plot.Plot, error) {
	if f.Width < 2 || f.Height < 2 {
		return nil, nil, fmt.Errorf("frame %dx%d too small to plot", f.Width, f.Height)
	}
	if opts.Levels <= 0 {
		opts.Levels = DefaultOptions().Levels
	}
	if opts.Unit == "" {
		opts.Unit = DefaultOptions().Unit
	}

	lo, hi := floats.Min(f.Data), floats.Max(f.Data)
	if hi <= lo {
		hi = lo + 1
	}
	cm := moreland.ExtendedBlackBody()
	cm.SetMin(lo)
	cm.SetMax(hi)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("x (%s)", opts.Unit)
	p.Y.Label.Text = fmt.Sprintf("y (%s)", opts.Unit)

	hm := plotter.NewHeatMap(gridXYZ{g: g, z: f.Data}, cm.Palette(256))
	hm.Min, hm.Max = lo, hi
	hm.Rasterized = true
	p.Add(hm)

	model := gaussian.Model(g.X, g.Y, params)
	contour := plotter.NewContour(gridXYZ{g: g, z: model}, ContourLevels(model, opts.Levels), nil)
	contour.LineStyles = []draw.LineStyle{{Color: color.White, Width: vg.Points(1)}}
	p.Add(contour)

	bar := plot.New()
	bar.HideX()
	bar.Y.Label.Text = "Intensity"
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	return p, bar, nil
}

// PNG renders the frame, the fitted contours and a colorbar to path
func PNG(path string, f *frame.Frame, g *frame.Grid, params types.Params, title string, opts Options) error {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}

	p, bar, err := Figure(f, g, params, title, opts)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(c)
	barWidth := opts.Width / 7
	p.Draw(draw.Crop(dc, 0, -barWidth, 0, 0))
	bar.Draw(draw.Crop(dc, opts.Width-barWidth, 0, 0, 0))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create figure file: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	return out.Close()
}
