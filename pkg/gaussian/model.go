// Package gaussian fits the elliptical TEM00 intensity model
//
//	G(x,y) = A·exp(−2(x−x0)²/Wx² − 2(y−y0)²/Wy²) + B
//
// to flattened image data with a Levenberg–Marquardt least-squares solver.
// Wx and Wy are the 1/e² intensity radii along the image axes.
package gaussian

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/menta2k/beam-profiler/pkg/types"
)

// Eval returns G(x, y) for parameters p
func Eval(x, y float64, p types.Params) float64 {
	dx := x - p[types.IdxX0]
	dy := y - p[types.IdxY0]
	wx := p[types.IdxWx]
	wy := p[types.IdxWy]
	return p[types.IdxAmplitude]*math.Exp(-2*dx*dx/(wx*wx)-2*dy*dy/(wy*wy)) + p[types.IdxBackground]
}

// Model evaluates G over paired coordinate slices. The result is aligned
// index-for-index with x and y, which must have the same length.
func Model(x, y []float64, p types.Params) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = Eval(x[i], y[i], p)
	}
	return out
}

// partials writes ∂G/∂p for every parameter into d and returns G(x, y)
func partials(x, y float64, p types.Params, d *[types.NumParams]float64) float64 {
	a := p[types.IdxAmplitude]
	dx := x - p[types.IdxX0]
	dy := y - p[types.IdxY0]
	wx2 := p[types.IdxWx] * p[types.IdxWx]
	wy2 := p[types.IdxWy] * p[types.IdxWy]

	e := math.Exp(-2*dx*dx/wx2 - 2*dy*dy/wy2)
	ae := a * e

	d[types.IdxAmplitude] = e
	d[types.IdxBackground] = 1
	d[types.IdxX0] = ae * 4 * dx / wx2
	d[types.IdxY0] = ae * 4 * dy / wy2
	d[types.IdxWx] = ae * 4 * dx * dx / (wx2 * p[types.IdxWx])
	d[types.IdxWy] = ae * 4 * dy * dy / (wy2 * p[types.IdxWy])

	return ae + p[types.IdxBackground]
}

// Jacobian fills dst (len(x) × 6) with the analytic derivatives of the model.
// dst is resized when it is empty.
func Jacobian(dst *mat.Dense, x, y []float64, p types.Params) {
	if dst.IsEmpty() {
		dst.ReuseAs(len(x), types.NumParams)
	}
	var d [types.NumParams]float64
	for i := range x {
		partials(x[i], y[i], p, &d)
		dst.SetRow(i, d[:])
	}
}
