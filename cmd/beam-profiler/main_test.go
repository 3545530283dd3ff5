package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/menta2k/beam-profiler/internal/config"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input.PixelSize = 3.45
	cfg.Fit.MaxEvaluations = 500
	cfg.Crop.HalfSize = 64
	cfg.Output.Dir = "plots"
	cfg.Output.HTML = true
	cfg.Output.ContourLevels = 6
	cfg.Output.DPI = 150
	cfg.Output.Workers = 4

	opts := options(cfg)
	assert.Equal(t, 3.45, opts.PixelSize)
	assert.Equal(t, 200.0, opts.InitialWaist)
	assert.Equal(t, 500, opts.Fit.MaxEvaluations)
	assert.Equal(t, 64, opts.Crop.HalfSize)
	assert.Equal(t, "plots", opts.OutputDir)
	assert.Equal(t, "_fit", opts.Suffix)
	assert.True(t, opts.PNG)
	assert.True(t, opts.HTML)
	assert.False(t, opts.JSON)
	assert.Equal(t, 6, opts.Render.Levels)
	assert.Equal(t, 150, opts.Render.DPI)
	assert.Equal(t, 4, opts.Workers)
	assert.NotNil(t, opts.Logf)
}
