package report

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/types"
)

func TestPrecision(t *testing.T) {
	tests := []struct {
		name   string
		stdErr float64
		want   int
	}{
		{"milli", 0.0034, 3},
		{"tenths", 0.25, 1},
		{"exact power", 0.01, 2},
		{"one", 1, 0},
		{"twelve clamps to zero", 12.0, 0},
		{"large clamps to zero", 4500, 0},
		{"zero falls back", 0, DefaultPrecision},
		{"negative falls back", -0.3, DefaultPrecision},
		{"nan falls back", math.NaN(), DefaultPrecision},
		{"inf falls back", math.Inf(1), DefaultPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Precision(tt.stdErr))
		})
	}
}

func TestRoundAndFormat(t *testing.T) {
	assert.Equal(t, 151.235, Round(151.23456, 3))
	assert.Equal(t, 152.0, Round(151.5, 0))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))

	assert.Equal(t, "151.235", Format(151.23456, 3))
	assert.Equal(t, "152", Format(151.5, 0))
	assert.Equal(t, "?", Format(math.Inf(1), 2))
}

func TestNewRounded(t *testing.T) {
	rv := NewRounded(149.98765, 0.0034)
	assert.Equal(t, types.RoundedValue{Value: 149.988, Error: 0.003, Digits: 3}, rv)
	assert.Equal(t, "149.988±0.003", FormatRounded(rv))

	coarse := NewRounded(149.98765, 12.0)
	assert.Equal(t, "150±12", FormatRounded(coarse))

	unknown := NewRounded(149.98765, math.Inf(1))
	assert.Equal(t, DefaultPrecision, unknown.Digits)
	assert.Equal(t, "149.99±?", FormatRounded(unknown))

	zero := NewRounded(20, 0)
	assert.Equal(t, "20.00±0.00", FormatRounded(zero))
}

func TestTitle(t *testing.T) {
	title := Title(NewRounded(150.0321, 0.03), NewRounded(99.984, 0.021), Micrometre)
	assert.Equal(t, "Waist = ( 150.03±0.03, 99.98±0.02 ) µm", title)
}

func fitResult(stdWx, stdWy float64) *types.FitResult {
	return &types.FitResult{
		Params:       types.NewParams(200, 5, 260, 260, 150.0321, 99.984),
		StdErr:       types.NewParams(0.1, 0.02, 0.01, 0.01, stdWx, stdWy),
		CovarianceOK: !math.IsInf(stdWx, 0),
		Converged:    true,
		Points:       10000,
	}
}

func TestBuild(t *testing.T) {
	f, err := frame.New(4, 2, make([]float64, 8), 255)
	require.NoError(t, err)
	mom := &types.Moments{X0: 1, Y0: 2, Wx: 3, Wy: 4}

	r := Build("beam.tif", f, 5.2, fitResult(0.03, 0.021), mom)
	assert.Equal(t, "beam.tif", r.Source)
	assert.Equal(t, 4, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.Equal(t, 2, r.WaistX.Digits)
	assert.Equal(t, "Waist = ( 150.03±0.03, 99.98±0.02 ) µm", r.Title)
	assert.Same(t, mom, r.Moments)
}

func TestBuildDegenerateCovariance(t *testing.T) {
	f, err := frame.New(1, 1, []float64{0}, 255)
	require.NoError(t, err)

	r := Build("flat.png", f, 1, fitResult(math.Inf(1), math.NaN()), nil)
	assert.Equal(t, DefaultPrecision, r.WaistX.Digits)
	assert.Equal(t, DefaultPrecision, r.WaistY.Digits)
	assert.True(t, strings.Contains(r.Title, "150.03±?"))
}

func TestWriteReadJSON(t *testing.T) {
	f, err := frame.New(2, 2, make([]float64, 4), 255)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out", "beam_fit.json")

	res := fitResult(math.Inf(1), math.Inf(1))
	r := Build("beam.tif", f, 5.2, res, nil)
	r.RunID = "run-1"
	require.NoError(t, WriteJSON(path, r))

	got, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, math.IsNaN(got.Fit.StdErr.Wx()), "Inf is written as null and read back as NaN")
	assert.Empty(t, cmp.Diff(r.Fit.Params, got.Fit.Params))
	assert.Empty(t, cmp.Diff(r.WaistX.Value, got.WaistX.Value))
	assert.Equal(t, r.WaistX.Digits, got.WaistX.Digits)
	assert.True(t, math.IsNaN(got.WaistX.Error), "unknown waist error must not read back as 0")
	assert.True(t, math.IsNaN(got.WaistY.Error))
	assert.Equal(t, FormatRounded(r.WaistX), FormatRounded(got.WaistX))
	assert.Equal(t, r.Title, got.Title)
}
