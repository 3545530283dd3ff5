package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5.2, cfg.Input.PixelSize)
	assert.Equal(t, 100000, cfg.Fit.MaxEvaluations)
	assert.Equal(t, 200.0, cfg.Fit.InitialWaist)
	assert.Equal(t, 10, cfg.Output.ContourLevels)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pixel size", func(c *Config) { c.Input.PixelSize = 0 }},
		{"evaluations", func(c *Config) { c.Fit.MaxEvaluations = 0 }},
		{"waist", func(c *Config) { c.Fit.InitialWaist = -1 }},
		{"tolerance", func(c *Config) { c.Fit.XTol = -1 }},
		{"half size", func(c *Config) { c.Crop.HalfSize = -3 }},
		{"signal fraction", func(c *Config) { c.Crop.MinSignalFraction = 1.5 }},
		{"levels", func(c *Config) { c.Output.ContourLevels = 0 }},
		{"workers", func(c *Config) { c.Output.Workers = 0 }},
		{"no outputs", func(c *Config) { c.Output.PNG = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Input.Dir = "/data/2019_Feb_06"
	cfg.Input.Files = []string{"beam_after_stirring_mirror_before_f300_lens.tif"}
	cfg.Input.PixelSize = 3.45
	cfg.Output.HTML = true
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"input":{"pixel_size_um":6.45}}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6.45, cfg.Input.PixelSize)
	assert.Equal(t, 100000, cfg.Fit.MaxEvaluations)
	assert.True(t, cfg.Output.PNG)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestSources(t *testing.T) {
	cfg := Default()
	cfg.Input.Dir = "/data"
	cfg.Input.Files = []string{"a.tif", "/abs/b.tif", "http://camera/snap.png"}

	assert.Equal(t, []string{
		filepath.Join("/data", "a.tif"),
		"/abs/b.tif",
		"http://camera/snap.png",
	}, cfg.Sources())
}
