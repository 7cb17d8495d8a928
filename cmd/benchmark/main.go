package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/footprint/internal/benchmark"
	"github.com/MeKo-Tech/footprint/internal/refine"
)

func main() {
	var (
		sizes      = flag.String("sizes", "256,512,1024", "Comma-separated square scene sizes in pixels")
		iterations = flag.Int("iterations", 5, "Number of iterations per scene size")
		edgeThresh = flag.Int("edge-threshold", refine.DefaultConfig().EdgeThreshold, "Edge binarization threshold")
		areaThresh = flag.Int("area-threshold", refine.DefaultConfig().AreaThreshold, "Small-region area threshold")
		outputFile = flag.String("output", "", "Write results as CSV to this file (optional)")
		verbose    = flag.Bool("verbose", false, "Print per-stage timings")
	)
	flag.Parse()

	fmt.Println("footprint refinement benchmark")
	fmt.Println("==============================")

	sceneSizes, err := parseSizes(*sizes)
	if err != nil {
		log.Fatalf("Invalid -sizes: %v", err)
	}

	cfg := refine.DefaultConfig()
	cfg.EdgeThreshold = *edgeThresh
	cfg.AreaThreshold = *areaThresh

	fmt.Printf("Running %d iterations per scene...\n\n", *iterations)
	results, err := benchmark.NewRefineBenchmark(cfg, sceneSizes...).Run(*iterations)
	if err != nil {
		log.Fatalf("Benchmark failed: %v", err)
	}

	for _, r := range results {
		fmt.Println(r.String())
		if *verbose {
			for _, stage := range benchmark.StageOrder {
				fmt.Printf("  %-10s %v/op\n", stage, r.Stages[stage]/time.Duration(max(r.Iterations, 1)))
			}
		}
	}

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func saveResultsToFile(filename string, results []benchmark.RefineResult) error {
	file, err := os.Create(filename) //nolint:gosec // G304: user-chosen output path
	if err != nil {
		return err
	}
	if err := benchmark.WriteCSV(file, results); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
