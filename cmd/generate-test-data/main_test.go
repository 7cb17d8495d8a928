package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generate(dir, 64, true))

	for _, name := range []string{"square", "speck", "scene"} {
		for _, file := range []string{"region.png", "edge.png", "expected_mask.png", "fixture.json"} {
			assert.FileExists(t, filepath.Join(dir, name, file))
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "speck", "fixture.json")) //nolint:gosec // G304: test temp file
	require.NoError(t, err)
	var f fixture
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, "speck", f.Name)
	assert.Empty(t, f.Expected.Region)
	assert.Equal(t, 1, f.Expected.Stats.Filter.Removed)
	assert.Equal(t, 100, f.Expected.Stats.ForegroundPixels)
	assert.Nil(t, f.Expected.Stats.Stages)
}

func TestGenerate_MasksOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generate(dir, 32, false))

	assert.FileExists(t, filepath.Join(dir, "scene", "region.png"))
	assert.NoFileExists(t, filepath.Join(dir, "scene", "fixture.json"))
}
