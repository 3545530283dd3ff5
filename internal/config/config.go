package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Input  InputConfig  `json:"input"`
	Fit    FitConfig    `json:"fit"`
	Crop   CropConfig   `json:"crop"`
	Output OutputConfig `json:"output"`
}

// InputConfig names the images to process and the camera pixel pitch
type InputConfig struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
	// PixelSize is the side of a square pixel in micrometres
	PixelSize float64 `json:"pixel_size_um"`
}

// FitConfig holds least-squares settings
type FitConfig struct {
	MaxEvaluations int     `json:"max_evaluations"`
	InitialWaist   float64 `json:"initial_waist_um"`
	FTol           float64 `json:"ftol"`
	XTol           float64 `json:"xtol"`
}

// CropConfig holds region-of-interest settings
type CropConfig struct {
	HalfSize          int     `json:"half_size_px"`
	MinSignalFraction float64 `json:"min_signal_fraction"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir           string `json:"dir"`
	Prefix        string `json:"prefix"`
	Suffix        string `json:"suffix"`
	PNG           bool   `json:"png"`
	HTML          bool   `json:"html"`
	JSON          bool   `json:"json"`
	ContourLevels int    `json:"contour_levels"`
	DPI           int    `json:"dpi"`
	Workers       int    `json:"workers"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dir:       ".",
			PixelSize: 5.2,
		},
		Fit: FitConfig{
			MaxEvaluations: 100000,
			InitialWaist:   200,
			FTol:           1.49012e-8,
			XTol:           1.49012e-8,
		},
		Crop: CropConfig{
			HalfSize:          0,
			MinSignalFraction: 0,
		},
		Output: OutputConfig{
			Dir:           "./output",
			Prefix:        "",
			Suffix:        "_fit",
			PNG:           true,
			HTML:          false,
			JSON:          false,
			ContourLevels: 10,
			DPI:           96,
			Workers:       1,
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.PixelSize <= 0 {
		return fmt.Errorf("input.pixel_size_um must be positive")
	}

	if c.Fit.MaxEvaluations < 1 {
		return fmt.Errorf("fit.max_evaluations must be positive")
	}

	if c.Fit.InitialWaist <= 0 {
		return fmt.Errorf("fit.initial_waist_um must be positive")
	}

	if c.Fit.FTol < 0 || c.Fit.XTol < 0 {
		return fmt.Errorf("fit tolerances cannot be negative")
	}

	if c.Crop.HalfSize < 0 {
		return fmt.Errorf("crop.half_size_px cannot be negative")
	}

	if c.Crop.MinSignalFraction < 0 || c.Crop.MinSignalFraction > 1 {
		return fmt.Errorf("crop.min_signal_fraction must be between 0 and 1")
	}

	if c.Output.ContourLevels < 1 {
		return fmt.Errorf("output.contour_levels must be positive")
	}

	if c.Output.Workers < 1 {
		return fmt.Errorf("output.workers must be positive")
	}

	if !c.Output.PNG && !c.Output.HTML && !c.Output.JSON {
		return fmt.Errorf("at least one of output.png, output.html or output.json must be enabled")
	}

	return nil
}

// Sources returns the input paths: Files joined to Dir, in order
func (c *Config) Sources() []string {
	sources := make([]string, 0, len(c.Input.Files))
	for _, f := range c.Input.Files {
		if filepath.IsAbs(f) || c.Input.Dir == "" || isURL(f) {
			sources = append(sources, f)
			continue
		}
		sources = append(sources, filepath.Join(c.Input.Dir, f))
	}
	return sources
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "beam-profiler", "config.json")
}
