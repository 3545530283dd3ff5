package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/types"
)

// Micrometre is the unit suffix of every physical value
const Micrometre = "µm"

// Title renders the figure title, e.g. "Waist = ( 150.02±0.03, 99.98±0.02 ) µm"
func Title(wx, wy types.RoundedValue, unit string) string {
	return fmt.Sprintf("Waist = ( %s, %s ) %s", FormatRounded(wx), FormatRounded(wy), unit)
}

// Build assembles the report for one fitted frame. mom may be nil.
func Build(source string, f *frame.Frame, pixelSize float64, res *types.FitResult, mom *types.Moments) *types.Report {
	wx := NewRounded(res.Params.Wx(), res.StdErr[types.IdxWx])
	wy := NewRounded(res.Params.Wy(), res.StdErr[types.IdxWy])
	return &types.Report{
		Source:    source,
		PixelSize: pixelSize,
		Width:     f.Width,
		Height:    f.Height,
		Fit:       res,
		WaistX:    wx,
		WaistY:    wy,
		Moments:   mom,
		Title:     Title(wx, wy, Micrometre),
	}
}

// WriteJSON saves r as indented JSON, creating the parent directory
func WriteJSON(path string, r *types.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadJSON loads a report written by WriteJSON
func ReadJSON(path string) (*types.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r types.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
