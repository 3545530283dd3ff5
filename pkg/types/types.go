package types

import (
	"encoding/json"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Parameter indices of the Gaussian beam model. The order is shared by the
// initial guess, the fitted vector, the covariance matrix and the standard errors.
const (
	IdxAmplitude = iota
	IdxBackground
	IdxX0
	IdxY0
	IdxWx
	IdxWy

	NumParams
)

// ParamNames lists the parameter names in index order
var ParamNames = [NumParams]string{"A", "B", "x0", "y0", "Wx", "Wy"}

// Params is the ordered parameter vector (A, B, x0, y0, Wx, Wy)
type Params [NumParams]float64

// NewParams builds a parameter vector from named values
func NewParams(a, b, x0, y0, wx, wy float64) Params {
	return Params{a, b, x0, y0, wx, wy}
}

func (p Params) Amplitude() float64  { return p[IdxAmplitude] }
func (p Params) Background() float64 { return p[IdxBackground] }
func (p Params) X0() float64         { return p[IdxX0] }
func (p Params) Y0() float64         { return p[IdxY0] }
func (p Params) Wx() float64         { return p[IdxWx] }
func (p Params) Wy() float64         { return p[IdxWy] }

// Slice returns a copy of the vector as a slice
func (p Params) Slice() []float64 {
	out := make([]float64, NumParams)
	copy(out, p[:])
	return out
}

// ParamsFromSlice copies the first NumParams values of s
func ParamsFromSlice(s []float64) Params {
	var p Params
	copy(p[:], s)
	return p
}

// MarshalJSON writes non-finite entries (failed covariance) as null
func (p Params) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, v := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendFloat(buf, v)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON reads null entries back as NaN
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw [NumParams]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, v := range raw {
		p[i] = orNaN(v)
	}
	return nil
}

func appendFloat(buf []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, v, 'g', -1, 64)
}

// FitResult contains the outcome of a single least-squares fit
type FitResult struct {
	Params Params `json:"params"`
	StdErr Params `json:"std_err"`
	Guess  Params `json:"guess"`

	// Covariance is the 6x6 parameter covariance. When CovarianceOK is false
	// every entry is +Inf.
	Covariance   *mat.SymDense `json:"-"`
	CovarianceOK bool          `json:"covariance_ok"`

	Converged        bool    `json:"converged"`
	Iterations       int     `json:"iterations"`
	Evaluations      int     `json:"evaluations"`
	ChiSquare        float64 `json:"chi_square"`
	ReducedChiSquare float64 `json:"reduced_chi_square"`
	Points           int     `json:"points"`
}

// RoundedValue is a value and its standard error rounded to a shared number of decimals
type RoundedValue struct {
	Value  float64 `json:"value"`
	Error  float64 `json:"error"`
	Digits int     `json:"digits"`
}

// MarshalJSON writes an unknown error as null
func (rv RoundedValue) MarshalJSON() ([]byte, error) {
	buf := []byte(`{"value":`)
	buf = appendFloat(buf, rv.Value)
	buf = append(buf, `,"error":`...)
	buf = appendFloat(buf, rv.Error)
	buf = append(buf, `,"digits":`...)
	buf = strconv.AppendInt(buf, int64(rv.Digits), 10)
	return append(buf, '}'), nil
}

// UnmarshalJSON reads a null value or error back as NaN
func (rv *RoundedValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value  *float64 `json:"value"`
		Error  *float64 `json:"error"`
		Digits int      `json:"digits"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rv.Value, rv.Error, rv.Digits = orNaN(raw.Value), orNaN(raw.Error), raw.Digits
	return nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Moments holds second-moment beam estimates in physical units
type Moments struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	Wx float64 `json:"wx"`
	Wy float64 `json:"wy"`
}

// Report is the machine-readable summary written next to each figure
type Report struct {
	Source    string       `json:"source"`
	RunID     string       `json:"run_id,omitempty"`
	PixelSize float64      `json:"pixel_size_um"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Fit       *FitResult   `json:"fit"`
	WaistX    RoundedValue `json:"waist_x"`
	WaistY    RoundedValue `json:"waist_y"`
	Moments   *Moments     `json:"moments,omitempty"`
	Title     string       `json:"title"`
}
