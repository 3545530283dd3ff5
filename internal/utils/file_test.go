package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"beam.tif", "beam.TIFF", "a.png", "b.jpeg", "c.webp"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"notes.txt", "beam", "data.csv"} {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "beam_fit.png"),
		GenerateOutputFilename("/data/beam.tif", "out", "", "_fit", "png"))
	assert.Equal(t, filepath.Join("out", "run1_beam_fit.json"),
		GenerateOutputFilename("beam.tif", "out", "run1_", "_fit", "json"))
	assert.Equal(t, filepath.Join("out", "snapshot_fit.png"),
		GenerateOutputFilename("http://camera/snapshot.png?exposure=3", "out", "", "_fit", ""))
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.tif", "a.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.tif"), 0o755))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.tif")}, files)

	_, err = ListImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestExistsHelpers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.tif")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, EnsureDir(nested))
	assert.True(t, DirExists(nested))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename("a/b:c"))
	assert.Equal(t, "name", SanitizeFilename(" .name. "))
}

func TestUniqueStems(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   []string
	}{
		{"distinct", []string{"a.tif", "b.tif"}, []string{"a", "b"}},
		{"same stem different extension", []string{"in/beam.tif", "in/beam.png"}, []string{"beam", "beam_2"}},
		{"same name different dirs", []string{"a/beam.tif", "b/beam.tif", "c/beam.tif"}, []string{"beam", "beam_2", "beam_3"}},
		{"generated name already taken", []string{"beam.tif", "beam.png", "beam_2.tif"}, []string{"beam", "beam_3", "beam_2"}},
		{"url", []string{"http://camera/beam.png?exposure=3", "beam.tif"}, []string{"beam", "beam_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueStems(tt.inputs))
		})
	}
}

func TestOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "p_beam_2_fit.png"), OutputFilename("beam_2", "out", "p_", "_fit", ""))
	assert.Equal(t, "beam", OutputStem("/data/.tif"))
}
