package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/footprint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprint.yaml")

	stdout, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote default configuration to "+path)

	data, err := os.ReadFile(path) //nolint:gosec // G304: test temp file
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigShow(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		stdout, _, err := execute(t, "config", "show")
		require.NoError(t, err)

		var cfg config.Config
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
		assert.Equal(t, 200, cfg.Refine.EdgeThreshold)
		assert.Equal(t, 16, cfg.Refine.AreaThreshold)
		assert.Equal(t, "text", cfg.Output.Format)
	})

	t.Run("file and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("refine:\n  edge_threshold: 90\n"), 0o600))
		t.Setenv("FOOTPRINT_SERVER_PORT", "9100")

		stdout, _, err := execute(t, "--config", path, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, stdout, "# config file: "+path)

		var cfg config.Config
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
		assert.Equal(t, 90, cfg.Refine.EdgeThreshold)
		assert.Equal(t, 9100, cfg.Server.Port)
	})

	t.Run("invalid settings are shown", func(t *testing.T) {
		t.Setenv("FOOTPRINT_REFINE_EDGE_THRESHOLD", "400")

		stdout, _, err := execute(t, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, stdout, "# warning: invalid refine settings")
		assert.Contains(t, stdout, "edge_threshold: 400")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "config", "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})
}
