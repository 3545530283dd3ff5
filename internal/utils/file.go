package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnsureDir creates dir and its parents when missing
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// imageExts are the raster formats the frame loader can decode
var imageExts = map[string]bool{
	"tif": true, "tiff": true, "png": true, "bmp": true,
	"jpg": true, "jpeg": true, "gif": true, "webp": true,
}

// IsImageFile reports whether filename has a supported image extension
func IsImageFile(filename string) bool {
	return imageExts[GetFileExtension(filename)]
}

// OutputStem returns the sanitized base name of an input path or URL without
// its extension, or "beam" when nothing usable is left
func OutputStem(inputFile string) string {
	if i := strings.IndexAny(inputFile, "?#"); i >= 0 && strings.Contains(inputFile, "://") {
		inputFile = inputFile[:i]
	}
	baseName := filepath.Base(inputFile)
	stem := SanitizeFilename(strings.TrimSuffix(baseName, filepath.Ext(baseName)))
	if stem == "" {
		return "beam"
	}
	return stem
}

// UniqueStems returns one output stem per input. Inputs sharing a stem, such
// as beam.tif and beam.png or a/beam.tif and b/beam.tif, get _2, _3, ...
// appended in input order so no two inputs write the same file.
func UniqueStems(inputs []string) []string {
	stems := make([]string, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		stems[i] = OutputStem(in)
	}
	// natural stems win over generated ones
	for _, s := range stems {
		taken[s] = true
	}
	seen := make(map[string]bool, len(inputs))
	for i, s := range stems {
		if !seen[s] {
			seen[s] = true
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d", s, n)
			if !taken[candidate] {
				taken[candidate] = true
				stems[i] = candidate
				break
			}
		}
	}
	return stems
}

// OutputFilename builds outputDir/prefix+stem+suffix.format
func OutputFilename(stem, outputDir, prefix, suffix, format string) string {
	if format == "" {
		format = "png"
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s%s%s.%s", prefix, stem, suffix, format))
}

// GenerateOutputFilename builds outputDir/prefix+name+suffix.format from an input path or URL
func GenerateOutputFilename(inputFile, outputDir, prefix, suffix, format string) string {
	return OutputFilename(OutputStem(inputFile), outputDir, prefix, suffix, format)
}

// ListImageFiles lists the image files directly inside dir, sorted by name
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename replaces path separators and shell-hostile characters with
// underscores and trims surrounding spaces and dots
func SanitizeFilename(filename string) string {
	return strings.Trim(filenameReplacer.Replace(filename), " .")
}
