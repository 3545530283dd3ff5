package render

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/gaussian"
	"github.com/menta2k/beam-profiler/pkg/types"
)

func testBeam(t *testing.T) (*frame.Frame, *frame.Grid, types.Params) {
	t.Helper()
	p := types.NewParams(200, 5, 100, 80, 40, 25)
	data := make([]float64, 48*40)
	f, err := frame.New(48, 40, data, 255)
	require.NoError(t, err)
	g := f.Grid(4)
	copy(data, gaussian.Model(g.X, g.Y, p))
	return f, g, p
}

func TestContourLevels(t *testing.T) {
	levels := ContourLevels([]float64{0, 5, 11}, 10)
	require.Len(t, levels, 10)
	assert.InDelta(t, 1.0, levels[0], 1e-12)
	assert.InDelta(t, 10.0, levels[9], 1e-12)

	assert.Equal(t, []float64{3}, ContourLevels([]float64{3, 3}, 10))
	assert.Nil(t, ContourLevels(nil, 10))
}

func TestCutsThroughCentre(t *testing.T) {
	f, g, p := testBeam(t)
	h, v := Cuts(f, g, p)

	require.Len(t, h.Pos, f.Width)
	require.Len(t, v.Pos, f.Height)
	assert.Equal(t, "x", h.Axis)
	assert.Equal(t, "y", v.Axis)
	for i := range h.Data {
		assert.InDelta(t, h.Data[i], h.Model[i], 1e-9)
	}
	assert.InDelta(t, 205, h.Data[25], 1e-9, "column 25 is x0=100")
}

func TestPNG(t *testing.T) {
	f, g, p := testBeam(t)
	path := filepath.Join(t.TempDir(), "plots", "beam_fit.png")

	opts := DefaultOptions()
	opts.Width, opts.Height = 300, 220
	require.NoError(t, PNG(path, f, g, p, "Waist = ( 40.00±0.01, 25.00±0.01 ) µm", opts))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestFigureRejectsTinyFrame(t *testing.T) {
	f, err := frame.New(1, 1, []float64{1}, 255)
	require.NoError(t, err)
	_, _, err = Figure(f, f.Grid(1), types.NewParams(1, 0, 0, 0, 1, 1), "", DefaultOptions())
	assert.Error(t, err)
}

func TestHTML(t *testing.T) {
	f, g, p := testBeam(t)
	path := filepath.Join(t.TempDir(), "beam_profile.html")
	require.NoError(t, HTML(path, f, g, p, "beam.tif", ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.True(t, strings.Contains(html, "x cut"))
	assert.True(t, strings.Contains(html, "y cut"))
}
