// Package frame turns raster images into single-channel intensity frames and
// the physical coordinate grids the beam fitter works on.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyFrame is returned for frames without pixels
var ErrEmptyFrame = errors.New("frame has no pixels")

// Frame is a single intensity channel stored row-major.
// OriginX and OriginY locate the frame inside the image it was cut from.
type Frame struct {
	Width    int
	Height   int
	Data     []float64
	MaxValue float64
	OriginX  int
	OriginY  int
}

// New wraps row-major intensity data
func New(width, height int, data []float64, maxValue float64) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyFrame
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("frame data has %d samples, want %dx%d", len(data), width, height)
	}
	return &Frame{Width: width, Height: height, Data: data, MaxValue: maxValue}, nil
}

// At returns the sample at row r, column c
func (f *Frame) At(r, c int) float64 {
	return f.Data[r*f.Width+c]
}

// PeakIndex returns the row and column of the first maximum in row-major order
func (f *Frame) PeakIndex() (row, col int) {
	if len(f.Data) == 0 {
		return 0, 0
	}
	idx := floats.MaxIdx(f.Data)
	return idx / f.Width, idx % f.Width
}

// Window copies the rectangle [x0,x1)x[y0,y1) into a new frame, clamped to bounds.
func (f *Frame) Window(x0, y0, x1, y1 int) *Frame {
	x0, x1 = max(x0, 0), min(x1, f.Width)
	y0, y1 = max(y0, 0), min(y1, f.Height)
	if x1 <= x0 || y1 <= y0 {
		return &Frame{MaxValue: f.MaxValue, OriginX: f.OriginX + x0, OriginY: f.OriginY + y0}
	}

	w, h := x1-x0, y1-y0
	data := make([]float64, 0, w*h)
	for r := y0; r < y1; r++ {
		data = append(data, f.Data[r*f.Width+x0:r*f.Width+x1]...)
	}
	return &Frame{
		Width:    w,
		Height:   h,
		Data:     data,
		MaxValue: f.MaxValue,
		OriginX:  f.OriginX + x0,
		OriginY:  f.OriginY + y0,
	}
}

// FromImage extracts the first channel of img. MaxValue is the largest value
// the source sample type can hold, not the brightest pixel.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := &Frame{Width: w, Height: h, Data: make([]float64, w*h), MaxValue: 255}

	switch m := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride : y*m.Stride+w]
			for x, v := range row {
				f.Data[y*w+x] = float64(v)
			}
		}
	case *image.Gray16:
		f.MaxValue = 65535
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*m.Stride + 2*x
				f.Data[y*w+x] = float64(uint16(m.Pix[i])<<8 | uint16(m.Pix[i+1]))
			}
		}
	case *image.RGBA:
		fill8(f, m.Pix, m.Stride)
	case *image.NRGBA:
		fill8(f, m.Pix, m.Stride)
	case *image.RGBA64:
		f.MaxValue = 65535
		fill16(f, m.Pix, m.Stride)
	case *image.NRGBA64:
		f.MaxValue = 65535
		fill16(f, m.Pix, m.Stride)
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				f.Data[y*w+x] = float64(c.R)
			}
		}
	}
	return f
}

func fill8(f *Frame, pix []uint8, stride int) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			f.Data[y*f.Width+x] = float64(pix[y*stride+4*x])
		}
	}
}

func fill16(f *Frame, pix []uint8, stride int) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := y*stride + 8*x
			f.Data[y*f.Width+x] = float64(uint16(pix[i])<<8 | uint16(pix[i+1]))
		}
	}
}

// Grid holds the physical coordinates of every pixel, flattened row-major
// so that X[i], Y[i] and Frame.Data[i] describe the same pixel.
type Grid struct {
	Cols      int
	Rows      int
	PixelSize float64
	OriginX   int
	OriginY   int
	X         []float64
	Y         []float64
}

// Grid builds the coordinate grid for f with square pixels of pixelSize
func (f *Frame) Grid(pixelSize float64) *Grid {
	g := &Grid{
		Cols:      f.Width,
		Rows:      f.Height,
		PixelSize: pixelSize,
		OriginX:   f.OriginX,
		OriginY:   f.OriginY,
		X:         make([]float64, f.Width*f.Height),
		Y:         make([]float64, f.Width*f.Height),
	}
	for r := 0; r < f.Height; r++ {
		y := g.RowCoord(r)
		for c := 0; c < f.Width; c++ {
			g.X[r*f.Width+c] = g.ColCoord(c)
			g.Y[r*f.Width+c] = y
		}
	}
	return g
}

// ColCoord returns the physical x coordinate of column c
func (g *Grid) ColCoord(c int) float64 {
	return float64(g.OriginX+c) * g.PixelSize
}

// RowCoord returns the physical y coordinate of row r
func (g *Grid) RowCoord(r int) float64 {
	return float64(g.OriginY+r) * g.PixelSize
}
