package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/spf13/cobra"
)

// refineCmd represents the refine command.
var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine a region mask with an edge mask",
	Long: `Fuse a region mask and an edge mask into one clean building footprint mask.

Both inputs must be single-channel 8-bit rasters of the same size. The mask is
written to --output in the format chosen by its extension (png, bmp, tif, jpg,
gif, webp). The thinned edge is written only when --edge-output is given.

Examples:
  footprint refine --region region.png --edge edge.png --output mask.png
  footprint refine --region r.png --edge e.png --output m.png --edge-threshold 128 --area-threshold 0
  footprint refine --region r.png --edge e.png --output m.png --report run.json --format json`,
	Args: cobra.NoArgs,
	RunE: runRefine,
}

func runRefine(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	req := refine.FileRequest{}
	req.RegionPath, _ = cmd.Flags().GetString("region")
	req.EdgePath, _ = cmd.Flags().GetString("edge")
	req.OutputPath, _ = cmd.Flags().GetString("output")
	req.EdgeOutputPath, _ = cmd.Flags().GetString("edge-output")
	reportPath, _ := cmd.Flags().GetString("report")

	for _, out := range []string{req.OutputPath, req.EdgeOutputPath} {
		if out != "" && !raster.IsSupportedOutput(out) {
			return fmt.Errorf("unsupported output format: %s", filepath.Ext(out))
		}
	}

	pipeline, err := refine.NewBuilder().
		WithConfig(cfg.ToRefineConfig()).
		WithLogger(slog.Default()).
		Build()
	if err != nil {
		return err
	}

	slog.Debug("refining", "region", req.RegionPath, "edge", req.EdgePath,
		"edge_threshold", cfg.Refine.EdgeThreshold, "area_threshold", cfg.Refine.AreaThreshold)

	res, err := pipeline.ProcessFiles(req)
	if err != nil {
		return fmt.Errorf("refine failed: %w", err)
	}
	defer res.Release()

	report := refine.NewFileReport(pipeline.Config(), req, res)
	var buf bytes.Buffer
	if err := report.Write(&buf, cfg.Output.Format); err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if reportPath != "" {
		if err := os.WriteFile(reportPath, buf.Bytes(), 0o644); err != nil { //nolint:gosec // G306: report is not sensitive
			return fmt.Errorf("failed to write report: %w", err)
		}
		slog.Info("report written", "path", reportPath)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func init() {
	rootCmd.AddCommand(refineCmd)

	d := refine.DefaultConfig()
	refineCmd.Flags().StringP("region", "r", "", "region mask (single-channel raster)")
	refineCmd.Flags().StringP("edge", "e", "", "edge mask (single-channel raster)")
	refineCmd.Flags().StringP("output", "o", "", "path of the refined mask")
	refineCmd.Flags().String("edge-output", "", "optional path of the thinned edge raster")
	refineCmd.Flags().Int("edge-threshold", d.EdgeThreshold, "edge binarization threshold (0-255); values at or below it are background")
	refineCmd.Flags().Int("area-threshold", d.AreaThreshold, "largest contour area removed as noise (0 disables)")
	refineCmd.Flags().Bool("allow-color", false, "convert color inputs to luminance instead of rejecting them")
	refineCmd.Flags().StringP("format", "f", refine.FormatText, "report format (text, json, yaml)")
	refineCmd.Flags().String("report", "", "write the report to this file instead of stdout")

	_ = refineCmd.MarkFlagRequired("region")
	_ = refineCmd.MarkFlagRequired("edge")
	_ = refineCmd.MarkFlagRequired("output")
}
