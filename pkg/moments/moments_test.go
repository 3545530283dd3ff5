package moments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/gaussian"
	"github.com/menta2k/beam-profiler/pkg/types"
)

func TestComputeGaussianBeam(t *testing.T) {
	truth := types.NewParams(200, 5, 520, 500, 150, 100)
	data := make([]float64, 200*200)
	f, err := frame.New(200, 200, data, 255)
	require.NoError(t, err)
	g := f.Grid(5.2)
	copy(data, gaussian.Model(g.X, g.Y, truth))

	m, err := Compute(f, g, truth.Background())
	require.NoError(t, err)
	assert.InDelta(t, 520, m.X0, 0.01)
	assert.InDelta(t, 500, m.Y0, 0.01)
	assert.InEpsilon(t, 150, m.Wx, 0.01)
	assert.InEpsilon(t, 100, m.Wy, 0.01)
}

func TestComputeSinglePixel(t *testing.T) {
	data := make([]float64, 9)
	data[5] = 10
	f, err := frame.New(3, 3, data, 255)
	require.NoError(t, err)

	m, err := Compute(f, f.Grid(2), 0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, m.X0)
	assert.Equal(t, 2.0, m.Y0)
	assert.Zero(t, m.Wx)
	assert.Zero(t, m.Wy)
}

func TestComputeNoSignal(t *testing.T) {
	f, err := frame.New(2, 2, []float64{3, 3, 3, 3}, 255)
	require.NoError(t, err)

	_, err = Compute(f, f.Grid(1), 3)
	assert.ErrorIs(t, err, ErrNoSignal)
}
