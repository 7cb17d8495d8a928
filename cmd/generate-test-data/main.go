package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/MeKo-Tech/footprint/internal/testutil"
)

// fixture pairs a generated input with the report the pipeline produced.
type fixture struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Region      string        `json:"region"`
	Edge        string        `json:"edge"`
	Expected    refine.Report `json:"expected"`
}

type pair struct {
	name, description string
	region, edge      *raster.Raster
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir           = flag.String("out", "testdata/masks", "Output directory, relative to the project root")
		sceneSize        = flag.Int("scene-size", 512, "Side of the synthetic city-block scene")
		generateFixtures = flag.Bool("fixtures", true, "Write expected-report fixtures next to the masks")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic region/edge mask pairs for footprint testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                      # Generate all mask pairs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -scene-size 2048     # Larger benchmark scene\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false      # Masks only\n", os.Args[0])
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	dir := filepath.Join(root, *outDir)
	if *verbose {
		slog.Info("Options", "dir", dir, "scene_size", *sceneSize, "fixtures", *generateFixtures)
	}

	if err := generate(dir, *sceneSize, *generateFixtures); err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "dir", dir)
}

func pairs(sceneSize int) []pair {
	square, squareEdge := testutil.SquareScenario()

	speck := testutil.Square(20, 20, testutil.Rect{X0: 5, Y0: 5, X1: 14, Y1: 14})
	testutil.Fill(speck, testutil.Rect{X0: 1, Y0: 1, X1: 2, Y1: 2}, raster.Foreground)

	scene := testutil.NewScene(testutil.DefaultSceneOptions(sceneSize, sceneSize))

	return []pair{
		{"square", "10x10 building with a 2px edge ring", square, squareEdge},
		{"speck", "building plus a 2x2 noise speck and a blank edge mask", speck, testutil.Blank(20, 20)},
		{"scene", fmt.Sprintf("%dx%d grid of buildings with one speck per cell", sceneSize, sceneSize),
			scene.Region, scene.Edge},
	}
}

func generate(dir string, sceneSize int, withFixtures bool) error {
	pipeline, err := refine.NewBuilder().Build()
	if err != nil {
		return err
	}

	for _, p := range pairs(sceneSize) {
		pairDir := filepath.Join(dir, p.name)
		if err := testutil.EnsureDir(pairDir); err != nil {
			return fmt.Errorf("failed to create %s: %w", pairDir, err)
		}
		req := refine.FileRequest{
			RegionPath: filepath.Join(pairDir, "region.png"),
			EdgePath:   filepath.Join(pairDir, "edge.png"),
			OutputPath: filepath.Join(pairDir, "expected_mask.png"),
		}
		if err := raster.Save(req.RegionPath, p.region); err != nil {
			return err
		}
		if err := raster.Save(req.EdgePath, p.edge); err != nil {
			return err
		}
		slog.Info("Generated mask pair", "name", p.name, "width", p.region.Width, "height", p.region.Height)

		if !withFixtures {
			continue
		}
		res, err := pipeline.ProcessFiles(req)
		if err != nil {
			return fmt.Errorf("failed to refine %s: %w", p.name, err)
		}
		report := refine.NewFileReport(pipeline.Config(), req, res)
		res.Release()

		f := fixture{
			Name:        p.name,
			Description: p.description,
			Region:      filepath.Join(p.name, "region.png"),
			Edge:        filepath.Join(p.name, "edge.png"),
			Expected:    report,
		}
		if err := saveFixture(f, pairDir); err != nil {
			return fmt.Errorf("failed to save fixture '%s': %w", p.name, err)
		}
	}
	return nil
}

func saveFixture(f fixture, dir string) error {
	// Paths and timings differ per machine.
	f.Expected.Region, f.Expected.Edge, f.Expected.Output = "", "", ""
	f.Expected.Stats.Stages = nil
	f.Expected.TotalMs = 0

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "fixture.json"), data, 0o600)
}
