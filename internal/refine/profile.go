package refine

import (
	"sync/atomic"
)

// Profiler aggregates counters across many runs of a shared Pipeline.
type Profiler struct {
	Runs              atomic.Int64
	Failures          atomic.Int64
	ProcessingTimeNs  atomic.Int64
	ComponentsRemoved atomic.Int64
	PixelsRemoved     atomic.Int64
}

// Record adds one run. A nil result with a non-nil error counts as a failure.
func (p *Profiler) Record(res *Result, err error) {
	if err != nil || res == nil {
		p.Failures.Add(1)
		return
	}
	p.Runs.Add(1)
	p.ProcessingTimeNs.Add(int64(res.Stats.Total))
	p.ComponentsRemoved.Add(int64(res.Stats.Filter.Removed))
	p.PixelsRemoved.Add(int64(res.Stats.Filter.RemovedPixels))
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	runs := p.Runs.Load()
	ns := p.ProcessingTimeNs.Load()
	out := map[string]any{
		"runs":               runs,
		"failures":           p.Failures.Load(),
		"components_removed": p.ComponentsRemoved.Load(),
		"pixels_removed":     p.PixelsRemoved.Load(),
		"ms_total":           ns / 1_000_000,
	}
	if runs > 0 {
		out["ms_per_run"] = float64(ns) / 1_000_000.0 / float64(runs)
	}
	return out
}
