// Package benchmark measures refinement throughput on synthetic scenes.
package benchmark

import (
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/MeKo-Tech/footprint/internal/testutil"
)

// Timer measures one named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts a timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats holds the heap figures compared across a run.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	Mallocs         uint64
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		Mallocs:         m.Mallocs,
		NumGC:           m.NumGC,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Mallocs: %d, GC: %d",
		m.AllocBytes/1024, m.TotalAllocBytes/1024, m.Mallocs, m.NumGC)
}

// Result holds the outcome of one benchmark.
type Result struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Error        error
}

// PerOp returns the average duration of one iteration.
func (r Result) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocatedPerOp returns the average bytes allocated by one iteration.
func (r Result) AllocatedPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / uint64(r.Iterations) //nolint:gosec // G115: iterations are positive
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc/op: %d KB",
		r.Name, r.Iterations, r.PerOp(), r.Duration, r.AllocatedPerOp()/1024)
}

// Benchmark is a named function run repeatedly.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite runs benchmarks sequentially and keeps the last results.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a benchmark.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Run runs the named benchmark.
func (s *Suite) Run(name string, iterations int) Result {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return run(b, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every benchmark in registration order.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, run(b, iterations))
	}
	return s.results
}

// Results returns the last RunAll results.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// PrintResults writes one line per result.
func (s *Suite) PrintResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func run(b Benchmark, iterations int) Result {
	runtime.GC()
	before := GetMemoryStats()
	timer := NewTimer(b.Name)

	var err error
	done := 0
	for range iterations {
		if err = b.Func(); err != nil {
			break
		}
		done++
	}

	duration := timer.Stop()
	return Result{
		Name:         b.Name,
		Duration:     duration,
		MemoryBefore: before,
		MemoryAfter:  GetMemoryStats(),
		Iterations:   done,
		Error:        err,
	}
}

// RefineResult is a Result for one scene size plus the per-stage totals
// collected through the pipeline observer.
type RefineResult struct {
	Result
	Size       int
	Buildings  int
	Removed    int
	Foreground int
	Stages     map[string]time.Duration
}

// RefineBenchmark refines square synthetic scenes of several sizes.
type RefineBenchmark struct {
	Config refine.Config
	Sizes  []int
}

// NewRefineBenchmark returns a benchmark over the given scene sizes.
func NewRefineBenchmark(cfg refine.Config, sizes ...int) *RefineBenchmark {
	return &RefineBenchmark{Config: cfg, Sizes: sizes}
}

// StageOrder lists the timed stages in pipeline order.
var StageOrder = []string{
	refine.StageThin, refine.StageCombine, refine.StageFillErode,
	refine.StageOutline, refine.StageMerge, refine.StageFilter,
}

// Run refines each scene size iterations times.
func (b *RefineBenchmark) Run(iterations int) ([]RefineResult, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	results := make([]RefineResult, 0, len(b.Sizes))
	for _, size := range b.Sizes {
		if size <= 0 {
			return nil, fmt.Errorf("invalid scene size %d", size)
		}
		res, err := b.runSize(size, iterations)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (b *RefineBenchmark) runSize(size, iterations int) (RefineResult, error) {
	stages := map[string]time.Duration{}
	p, err := refine.NewBuilder().
		WithConfig(b.Config).
		WithObserver(func(stage string, d time.Duration) { stages[stage] += d }).
		Build()
	if err != nil {
		return RefineResult{}, err
	}

	scene := testutil.NewScene(testutil.DefaultSceneOptions(size, size))
	defer scene.Release()

	out := RefineResult{Size: size, Buildings: scene.Buildings, Stages: stages}
	bench := Benchmark{
		Name: fmt.Sprintf("refine_%dx%d", size, size),
		Func: func() error {
			res, err := p.Process(scene.Region, scene.Edge)
			if err != nil {
				return err
			}
			out.Removed = res.Stats.Filter.Removed
			out.Foreground = res.Stats.ForegroundPixels
			res.Release()
			return nil
		},
	}
	out.Result = run(bench, iterations)
	return out, out.Error
}

// WriteCSV writes one row per result with average per-stage milliseconds.
func WriteCSV(w io.Writer, results []RefineResult) error {
	cw := csv.NewWriter(w)
	header := []string{"size", "iterations", "avg_ms", "alloc_kb_per_op", "buildings", "removed", "foreground"}
	for _, s := range StageOrder {
		header = append(header, s+"_ms")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	ms := func(d time.Duration, n int) string {
		if n == 0 {
			return "0"
		}
		return strconv.FormatFloat(float64(d)/float64(n)/float64(time.Millisecond), 'f', 3, 64)
	}
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Size),
			strconv.Itoa(r.Iterations),
			ms(r.Duration, r.Iterations),
			strconv.FormatUint(r.AllocatedPerOp()/1024, 10),
			strconv.Itoa(r.Buildings),
			strconv.Itoa(r.Removed),
			strconv.Itoa(r.Foreground),
		}
		for _, s := range StageOrder {
			row = append(row, ms(r.Stages[s], r.Iterations))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
