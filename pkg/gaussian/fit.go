package gaussian

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/menta2k/beam-profiler/pkg/types"
)

var (
	// ErrNotConverged is returned when the tolerances are not met, either
	// because the evaluation budget ran out or because no step reduced the
	// residual before the damping factor hit its upper bound (a stalled fit).
	// The partial result is returned alongside it.
	ErrNotConverged = errors.New("fit did not converge")
	// ErrInvalidInput reports malformed data or an unusable initial guess
	ErrInvalidInput = errors.New("invalid fit input")
	// ErrNonFinite reports a NaN or Inf residual at the initial guess
	ErrNonFinite = errors.New("non-finite residual")
)

// Options controls the Levenberg–Marquardt iteration
type Options struct {
	// MaxEvaluations caps model evaluations (Jacobian evaluations included)
	MaxEvaluations int
	// FTol is the relative reduction of the sum of squares below which the fit stops
	FTol float64
	// XTol is the relative step size below which the fit stops
	XTol float64
	// GTol is the scaled gradient norm below which the fit stops. Zero disables it.
	GTol float64
	// Lambda0 is the initial damping factor
	Lambda0 float64
}

// DefaultOptions mirrors the MINPACK defaults with a generous evaluation budget
// for noisy or badly centred frames.
func DefaultOptions() Options {
	return Options{
		MaxEvaluations: 100000,
		FTol:           1.49012e-8,
		XTol:           1.49012e-8,
		GTol:           0,
		Lambda0:        1e-3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxEvaluations <= 0 {
		o.MaxEvaluations = d.MaxEvaluations
	}
	if o.FTol <= 0 {
		o.FTol = d.FTol
	}
	if o.XTol <= 0 {
		o.XTol = d.XTol
	}
	if o.Lambda0 <= 0 {
		o.Lambda0 = d.Lambda0
	}
	return o
}

const (
	lambdaMax = 1e16
	lambdaMin = 1e-16
)

// problem holds the data of one fit
type problem struct {
	x, y, z []float64
	nfev    int
}

// ssr returns the sum of squared residuals model−z
func (pr *problem) ssr(p types.Params) float64 {
	pr.nfev++
	var s float64
	for i := range pr.z {
		r := Eval(pr.x[i], pr.y[i], p) - pr.z[i]
		s += r * r
	}
	return s
}

// normal accumulates JᵀJ and Jᵀr at p without materialising J
func (pr *problem) normal(p types.Params) (*mat.SymDense, *mat.VecDense) {
	pr.nfev++
	const n = types.NumParams
	var jtj [n * n]float64
	var jtr [n]float64
	var d [n]float64
	for i := range pr.z {
		r := partials(pr.x[i], pr.y[i], p, &d) - pr.z[i]
		for a := 0; a < n; a++ {
			jtr[a] += d[a] * r
			for b := a; b < n; b++ {
				jtj[a*n+b] += d[a] * d[b]
			}
		}
	}
	for a := 0; a < n; a++ {
		for b := 0; b < a; b++ {
			jtj[a*n+b] = jtj[b*n+a]
		}
	}
	return mat.NewSymDense(n, jtj[:]), mat.NewVecDense(n, jtr[:])
}

// Fit minimises Σ(G(x,y)−z)² starting from guess. x, y and z are flattened
// and aligned index-for-index. On ErrNotConverged the best parameters found
// so far are returned with the error.
func Fit(ctx context.Context, x, y, z []float64, guess types.Params, opts Options) (*types.FitResult, error) {
	if len(x) != len(z) || len(y) != len(z) {
		return nil, fmt.Errorf("%w: coordinate and data lengths differ (%d, %d, %d)", ErrInvalidInput, len(x), len(y), len(z))
	}
	if len(z) < types.NumParams {
		return nil, fmt.Errorf("%w: %d samples for %d parameters", ErrInvalidInput, len(z), types.NumParams)
	}
	if guess.Wx() == 0 || guess.Wy() == 0 {
		return nil, fmt.Errorf("%w: initial waist must be non-zero", ErrInvalidInput)
	}
	opts = opts.withDefaults()

	pr := &problem{x: x, y: y, z: z}
	p := guess
	cost := pr.ssr(p)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, fmt.Errorf("%w at initial guess", ErrNonFinite)
	}

	lambda := opts.Lambda0
	iterations := 0
	converged := cost == 0

	for !converged && pr.nfev < opts.MaxEvaluations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fit cancelled: %w", err)
		}

		jtj, jtr := pr.normal(p)
		if opts.GTol > 0 && scaledGradient(jtj, jtr, cost) <= opts.GTol {
			converged = true
			break
		}

		accepted := false
		for !accepted && pr.nfev < opts.MaxEvaluations {
			step, ok := dampedStep(jtj, jtr, lambda)
			if !ok {
				lambda *= 10
				if lambda > lambdaMax {
					break
				}
				continue
			}

			var trial types.Params
			floats.AddTo(trial[:], p[:], step)
			trialCost := pr.ssr(trial)

			small := floats.Norm(step, 2) <= opts.XTol*(floats.Norm(p[:], 2)+opts.XTol)
			if !math.IsNaN(trialCost) && trialCost < cost {
				reduction := cost - trialCost
				p, cost = trial, trialCost
				lambda = math.Max(lambda/10, lambdaMin)
				accepted = true
				iterations++
				if reduction <= opts.FTol*cost || cost == 0 {
					converged = true
				}
			} else {
				lambda *= 10
			}
			if small {
				converged = true
				break
			}
			if lambda > lambdaMax {
				break
			}
		}
		if !accepted && !converged {
			break
		}
	}

	stalled := !converged && pr.nfev < opts.MaxEvaluations

	// the model only depends on W², report positive radii
	p[types.IdxWx] = math.Abs(p[types.IdxWx])
	p[types.IdxWy] = math.Abs(p[types.IdxWy])

	res := &types.FitResult{
		Params:      p,
		Guess:       guess,
		Converged:   converged,
		Iterations:  iterations,
		Evaluations: pr.nfev,
		ChiSquare:   cost,
		Points:      len(z),
	}
	if dof := len(z) - types.NumParams; dof > 0 {
		res.ReducedChiSquare = cost / float64(dof)
	}
	jtj, _ := pr.normal(p)
	res.Covariance, res.CovarianceOK = covariance(jtj, len(z), cost)
	for i := 0; i < types.NumParams; i++ {
		res.StdErr[i] = math.Sqrt(res.Covariance.At(i, i))
	}

	if !converged {
		return res, notConverged(stalled, lambda, res.Evaluations)
	}
	return res, nil
}

func notConverged(stalled bool, lambda float64, nfev int) error {
	if stalled {
		return fmt.Errorf("%w: fit stalled at lambda=%.3g after %d evaluations", ErrNotConverged, lambda, nfev)
	}
	return fmt.Errorf("%w: evaluation budget exhausted after %d evaluations", ErrNotConverged, nfev)
}

// dampedStep solves (JᵀJ + λ·diag(JᵀJ))·δ = −Jᵀr
func dampedStep(jtj *mat.SymDense, jtr *mat.VecDense, lambda float64) ([]float64, bool) {
	n := jtj.SymmetricDim()
	maxDiag := 0.0
	for i := 0; i < n; i++ {
		maxDiag = math.Max(maxDiag, jtj.At(i, i))
	}
	if maxDiag == 0 {
		return nil, false
	}

	m := mat.NewDense(n, n, nil)
	m.Copy(jtj)
	for i := 0; i < n; i++ {
		d := math.Max(jtj.At(i, i), 1e-12*maxDiag)
		m.Set(i, i, jtj.At(i, i)+lambda*d)
	}

	var step mat.VecDense
	if err := step.SolveVec(m, jtr); err != nil {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = -step.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, false
		}
	}
	return out, true
}

// scaledGradient is the MINPACK gradient measure max|gᵢ|/(‖r‖·√(JᵀJ)ᵢᵢ)
func scaledGradient(jtj *mat.SymDense, jtr *mat.VecDense, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	rnorm := math.Sqrt(cost)
	g := 0.0
	for i := 0; i < jtr.Len(); i++ {
		d := math.Sqrt(jtj.At(i, i))
		if d == 0 {
			continue
		}
		g = math.Max(g, math.Abs(jtr.AtVec(i))/(d*rnorm))
	}
	return g
}

// covariance returns (JᵀJ)⁻¹·SSR/(n−p). Rank deficient normal matrices or a
// missing residual degree of freedom yield an all-Inf matrix and false.
func covariance(jtj *mat.SymDense, points int, cost float64) (*mat.SymDense, bool) {
	n := jtj.SymmetricDim()
	cov := mat.NewSymDense(n, nil)
	fillInf := func() (*mat.SymDense, bool) {
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				cov.SetSym(i, j, math.Inf(1))
			}
		}
		return cov, false
	}

	dof := points - n
	if dof <= 0 {
		return fillInf()
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(jtj, true); !ok {
		return fillInf()
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// eigenvalues below the rounding level of the largest one mark a rank deficient J
	eps := math.Nextafter(1, 2) - 1
	threshold := eps * float64(max(points, n)) * floats.Max(vals)
	for _, v := range vals {
		if v <= threshold {
			return fillInf()
		}
	}

	scale := cost / float64(dof)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var c float64
			for k, v := range vals {
				c += vecs.At(i, k) * vecs.At(j, k) / v
			}
			cov.SetSym(i, j, c*scale)
		}
	}
	return cov, true
}
