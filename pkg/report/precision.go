// Package report turns fit results into the rounded values, figure titles and
// JSON summaries shown to the user.
package report

import (
	"math"
	"strconv"

	"github.com/menta2k/beam-profiler/pkg/types"
)

// DefaultPrecision is used when a standard error cannot set the precision
const DefaultPrecision = 2

// Precision returns the number of decimals that shows the leading significant
// digit of stdErr, −floor(log10(stdErr)) clamped at zero. Zero, negative and
// non-finite errors give DefaultPrecision.
func Precision(stdErr float64) int {
	if stdErr <= 0 || math.IsNaN(stdErr) || math.IsInf(stdErr, 0) {
		return DefaultPrecision
	}
	digits := -int(math.Floor(math.Log10(stdErr)))
	if digits < 0 {
		return 0
	}
	return digits
}

// Round rounds v half away from zero to digits decimals
func Round(v float64, digits int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	pow := math.Pow(10, float64(digits))
	r := math.Round(v*pow) / pow
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	return r
}

// Format renders v with exactly digits decimals
func Format(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "?"
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// NewRounded rounds a value and its error to the precision set by the error
func NewRounded(value, stdErr float64) types.RoundedValue {
	digits := Precision(stdErr)
	return types.RoundedValue{
		Value:  Round(value, digits),
		Error:  Round(stdErr, digits),
		Digits: digits,
	}
}

// FormatRounded renders "value±error"
func FormatRounded(rv types.RoundedValue) string {
	return Format(rv.Value, rv.Digits) + "±" + Format(rv.Error, rv.Digits)
}
