// Package cropper cuts a region of interest around the beam so that large
// camera frames fit faster without changing physical coordinates.
package cropper

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/menta2k/beam-profiler/pkg/frame"
)

// Region is a pixel rectangle inside the source frame
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Area returns the number of pixels in the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// CropConfig holds configuration for region-of-interest cropping
type CropConfig struct {
	// HalfSize is the window half-width in pixels around the peak. Zero keeps the full frame.
	HalfSize int
	// MinSignalFraction is the share of above-minimum signal the window must keep
	MinSignalFraction float64
}

// Cropper selects the fitting window
type Cropper struct {
	config CropConfig
}

// New creates a Cropper that keeps the full frame
func New() *Cropper {
	return &Cropper{config: CropConfig{MinSignalFraction: 0}}
}

// NewWithConfig creates a Cropper with custom configuration
func NewWithConfig(config CropConfig) *Cropper {
	return &Cropper{config: config}
}

// CropResult contains the cropped frame and what it kept
type CropResult struct {
	Frame  *frame.Frame
	Region Region
	// SignalFraction is the share of the frame's above-minimum signal inside the window
	SignalFraction float64
}

// Crop cuts the configured window around the brightest pixel of f
func (c *Cropper) Crop(f *frame.Frame) (CropResult, error) {
	if f.Width == 0 || f.Height == 0 {
		return CropResult{}, fmt.Errorf("invalid frame dimensions")
	}
	if c.config.HalfSize <= 0 {
		return CropResult{
			Frame:          f,
			Region:         Region{X: 0, Y: 0, Width: f.Width, Height: f.Height},
			SignalFraction: 1,
		}, nil
	}

	out := CropAroundPeak(f, c.config.HalfSize)
	region := Region{
		X:      out.OriginX - f.OriginX,
		Y:      out.OriginY - f.OriginY,
		Width:  out.Width,
		Height: out.Height,
	}
	fraction := signalFraction(f, out)
	if fraction < c.config.MinSignalFraction {
		return CropResult{}, fmt.Errorf("window %dx%d@%d,%d keeps %.1f%% of the signal (minimum %.1f%%)",
			region.Width, region.Height, region.X, region.Y, 100*fraction, 100*c.config.MinSignalFraction)
	}
	return CropResult{Frame: out, Region: region, SignalFraction: fraction}, nil
}

// CropAroundPeak returns the ±halfSize pixel window around the first peak of
// f, clamped to the frame. halfSize <= 0 returns f unchanged.
func CropAroundPeak(f *frame.Frame, halfSize int) *frame.Frame {
	if halfSize <= 0 {
		return f
	}
	r, col := f.PeakIndex()
	return f.Window(col-halfSize, r-halfSize, col+halfSize+1, r+halfSize+1)
}

// signalFraction compares the above-minimum signal in the window with the whole frame
func signalFraction(full, window *frame.Frame) float64 {
	floor := floats.Min(full.Data)
	total := floats.Sum(full.Data) - floor*float64(len(full.Data))
	if total <= 0 {
		return 1
	}
	kept := floats.Sum(window.Data) - floor*float64(len(window.Data))
	return kept / total
}
