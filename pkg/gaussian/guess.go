package gaussian

import (
	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/types"
)

// DefaultWaist is the starting waist radius in grid units (µm)
const DefaultWaist = 200.0

// InitialGuess derives the starting vector from the frame. The amplitude is
// the sample type's full scale (255 for 8-bit data), not the observed peak.
// The centre is the first brightest pixel in row-major order.
func InitialGuess(f *frame.Frame, g *frame.Grid, waist float64) types.Params {
	if waist <= 0 {
		waist = DefaultWaist
	}
	r, c := f.PeakIndex()
	return types.NewParams(f.MaxValue, 0, g.ColCoord(c), g.RowCoord(r), waist, waist)
}
