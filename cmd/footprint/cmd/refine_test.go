package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/MeKo-Tech/footprint/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeScenario writes the square scenario inputs and returns their paths.
func writeScenario(t *testing.T, dir string) (region, edge string) {
	t.Helper()
	r, e := testutil.SquareScenario()
	return testutil.WriteRaster(t, dir, "region.png", r), testutil.WriteRaster(t, dir, "edge.png", e)
}

// writeSpeck writes a square region with a 2x2 speck and a blank edge mask.
func writeSpeck(t *testing.T, dir string) (region, edge string) {
	t.Helper()
	r := testutil.Square(20, 20, testutil.Rect{X0: 5, Y0: 5, X1: 14, Y1: 14})
	testutil.Fill(r, testutil.Rect{X0: 1, Y0: 1, X1: 2, Y1: 2}, raster.Foreground)
	return testutil.WriteRaster(t, dir, "region.png", r), testutil.WriteRaster(t, dir, "edge.png", testutil.Blank(20, 20))
}

func loadMask(t *testing.T, path string) *raster.Raster {
	t.Helper()
	r, _, err := raster.Load(path, raster.DecodeOptions{})
	require.NoError(t, err)
	return r
}

func TestRefineCommand(t *testing.T) {
	assert.Equal(t, "refine", refineCmd.Use)
	assert.NotEmpty(t, refineCmd.Short)
	for _, name := range []string{"region", "edge", "output", "edge-output", "edge-threshold", "area-threshold", "allow-color", "format", "report"} {
		assert.NotNil(t, refineCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestRefine_TextReport(t *testing.T) {
	dir := t.TempDir()
	region, edge := writeScenario(t, dir)
	out := filepath.Join(dir, "mask.png")
	thin := filepath.Join(dir, "thin.png")

	stdout, _, err := execute(t, "refine", "--region", region, "--edge", edge, "--output", out, "--edge-output", thin)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Output: "+out)
	assert.Contains(t, stdout, "Thresholds: edge=200 area=16")
	assert.Contains(t, stdout, "Foreground pixels: 100")

	r, _ := testutil.SquareScenario()
	assert.Equal(t, testutil.Rows(r), testutil.Rows(loadMask(t, out)))
	assert.Equal(t, 36, loadMask(t, thin).CountNonZero())
}

func TestRefine_NoEdgeOutputByDefault(t *testing.T) {
	dir := t.TempDir()
	region, edge := writeScenario(t, dir)

	_, _, err := execute(t, "refine", "-r", region, "-e", edge, "-o", filepath.Join(dir, "mask.webp"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 100, loadMask(t, filepath.Join(dir, "mask.webp")).CountNonZero())
}

func TestRefine_JSONReportFile(t *testing.T) {
	dir := t.TempDir()
	region, edge := writeSpeck(t, dir)
	reportPath := filepath.Join(dir, "run.json")

	stdout, _, err := execute(t, "refine", "--region", region, "--edge", edge,
		"--output", filepath.Join(dir, "mask.png"), "--format", "json", "--report", reportPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(reportPath) //nolint:gosec // G304: test temp file
	require.NoError(t, err)
	var report refine.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, region, report.Region)
	assert.Equal(t, 16, report.AreaThreshold)
	assert.Equal(t, 1, report.Stats.Filter.Removed)
	assert.Equal(t, 4, report.Stats.Filter.RemovedPixels)
	assert.Equal(t, 100, report.Stats.ForegroundPixels)
}

func TestRefine_YAMLAndThresholdFlags(t *testing.T) {
	dir := t.TempDir()
	region, edge := writeSpeck(t, dir)

	stdout, _, err := execute(t, "refine", "--region", region, "--edge", edge,
		"--output", filepath.Join(dir, "mask.png"), "--format", "yaml",
		"--area-threshold", "0", "--edge-threshold", "128")
	require.NoError(t, err)

	var report refine.Report
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 128, report.EdgeThreshold)
	assert.Equal(t, 0, report.AreaThreshold)
	assert.Equal(t, 104, report.Stats.ForegroundPixels)
}

func TestRefine_EnvironmentAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	region, edge := writeSpeck(t, dir)
	out := filepath.Join(dir, "mask.png")

	t.Run("environment", func(t *testing.T) {
		t.Setenv("FOOTPRINT_REFINE_AREA_THRESHOLD", "0")
		_, _, err := execute(t, "refine", "--region", region, "--edge", edge, "--output", out)
		require.NoError(t, err)
		assert.Equal(t, 104, loadMask(t, out).CountNonZero())
	})

	t.Run("config file", func(t *testing.T) {
		cfgPath := filepath.Join(dir, "footprint.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("refine:\n  area_threshold: 0\noutput:\n  format: json\n"), 0o600))

		stdout, _, err := execute(t, "--config", cfgPath, "refine", "--region", region, "--edge", edge, "--output", out)
		require.NoError(t, err)
		var report refine.Report
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, 104, report.Stats.ForegroundPixels)
	})

	t.Run("flag beats config file", func(t *testing.T) {
		cfgPath := filepath.Join(dir, "footprint.yaml")
		_, _, err := execute(t, "--config", cfgPath, "refine", "--region", region, "--edge", edge,
			"--output", out, "--area-threshold", "16")
		require.NoError(t, err)
		assert.Equal(t, 100, loadMask(t, out).CountNonZero())
	})
}

func TestRefine_Errors(t *testing.T) {
	dir := t.TempDir()
	region, edge := writeScenario(t, dir)
	small := testutil.WriteRaster(t, dir, "small.png", testutil.Blank(4, 4))
	out := filepath.Join(dir, "mask.png")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing required flag", []string{"refine", "--region", region, "--edge", edge}, `required flag(s) "output" not set`},
		{"missing input", []string{"refine", "--region", filepath.Join(dir, "nope.png"), "--edge", edge, "--output", out}, "refine failed"},
		{"dimension mismatch", []string{"refine", "--region", region, "--edge", small, "--output", out}, "raster dimensions differ"},
		{"unsupported output", []string{"refine", "--region", region, "--edge", edge, "--output", filepath.Join(dir, "mask.xyz")}, "unsupported output format"},
		{"edge threshold range", []string{"refine", "--region", region, "--edge", edge, "--output", out, "--edge-threshold", "256"}, "configuration validation failed"},
		{"negative area", []string{"refine", "--region", region, "--edge", edge, "--output", out, "--area-threshold", "-1"}, "configuration validation failed"},
		{"bad format", []string{"refine", "--region", region, "--edge", edge, "--output", out, "--format", "xml"}, "invalid output format"},
		{"positional args", []string{"refine", "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.NoFileExists(t, out)
}

func TestRefine_ColorInput(t *testing.T) {
	dir := t.TempDir()
	color := testutil.WriteColorPNG(t, dir, "color.png")
	region := testutil.WriteRaster(t, dir, "region.png", testutil.Blank(4, 4))
	out := filepath.Join(dir, "mask.png")

	_, _, err := execute(t, "refine", "--region", region, "--edge", color, "--output", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrNotSingleChannel)

	stdout, stderr, err := execute(t, "refine", "--region", region, "--edge", color, "--output", out, "--allow-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "converted from color")
	assert.Contains(t, stderr, "color input converted to luminance")
}
