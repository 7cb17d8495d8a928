// Package refine fuses a region mask and an edge mask into one clean
// building footprint mask.
//
// The stages run in a fixed order: thin the edge mask, union it with the
// region mask, fill holes and take the erosion ring, outline the region,
// merge recovered boundary pixels back in, and drop small components.
package refine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/footprint/internal/contour"
	"github.com/MeKo-Tech/footprint/internal/morphology"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// Stage names used in errors, logs, timings and metrics.
const (
	StageLoad      = "load"
	StageThin      = "thin"
	StageCombine   = "combine"
	StageFillErode = "fill_erode"
	StageOutline   = "outline"
	StageMerge     = "merge"
	StageFilter    = "filter"
	StageSave      = "save"
)

// Config holds the refinement thresholds.
type Config struct {
	// EdgeThreshold (alpha) binarizes the edge mask: values at or below it are
	// background.
	EdgeThreshold int
	// AreaThreshold (beta) is the largest contour area that is still removed.
	// Zero disables the small-region filter.
	AreaThreshold int
	// AllowColor converts color inputs to luminance instead of rejecting them.
	AllowColor bool
}

// DefaultConfig returns the thresholds used by the sample configuration.
func DefaultConfig() Config {
	return Config{
		EdgeThreshold: 200,
		AreaThreshold: 16,
	}
}

// Validate checks threshold ranges.
func (c Config) Validate() error {
	if c.EdgeThreshold < 0 || c.EdgeThreshold > 255 {
		return fmt.Errorf("edge threshold %d: %w", c.EdgeThreshold, morphology.ErrThresholdRange)
	}
	if c.AreaThreshold < 0 {
		return fmt.Errorf("area threshold %d: %w", c.AreaThreshold, ErrNegativeArea)
	}
	return nil
}

// StageObserver is notified after every completed stage.
type StageObserver func(stage string, d time.Duration)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	logger   *slog.Logger
	observer StageObserver
}

// NewBuilder creates a builder with DefaultConfig.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithEdgeThreshold sets alpha.
func (b *Builder) WithEdgeThreshold(alpha int) *Builder {
	b.cfg.EdgeThreshold = alpha
	return b
}

// WithAreaThreshold sets beta.
func (b *Builder) WithAreaThreshold(beta int) *Builder {
	b.cfg.AreaThreshold = beta
	return b
}

// WithAllowColor toggles luminance conversion of color inputs.
func (b *Builder) WithAllowColor(allow bool) *Builder {
	b.cfg.AllowColor = allow
	return b
}

// WithLogger sets the logger; nil keeps slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithObserver registers a per-stage timing callback.
func (b *Builder) WithObserver(fn StageObserver) *Builder {
	b.observer = fn
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns a Pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, preconditionErr("config", err)
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: b.cfg, logger: logger, observer: b.observer}, nil
}

// Pipeline runs the refinement stages. It holds no per-run state and may be
// used from several goroutines.
type Pipeline struct {
	cfg      Config
	logger   *slog.Logger
	observer StageObserver
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"-" yaml:"-"`
	Millis   float64       `json:"ms" yaml:"ms"`
}

// Stats summarizes one refinement run.
type Stats struct {
	Width            int           `json:"width" yaml:"width"`
	Height           int           `json:"height" yaml:"height"`
	RegionPixels     int           `json:"region_pixels" yaml:"region_pixels"`
	ThinEdgePixels   int           `json:"thin_edge_pixels" yaml:"thin_edge_pixels"`
	CombinedPixels   int           `json:"combined_pixels" yaml:"combined_pixels"`
	FilledPixels     int           `json:"filled_pixels" yaml:"filled_pixels"`
	RingPixels       int           `json:"ring_pixels" yaml:"ring_pixels"`
	RecoveredPixels  int           `json:"recovered_pixels" yaml:"recovered_pixels"`
	Filter           FilterStats   `json:"filter" yaml:"filter"`
	ForegroundPixels int           `json:"foreground_pixels" yaml:"foreground_pixels"`
	Stages           []StageTiming `json:"stages" yaml:"stages"`
	Total            time.Duration `json:"-" yaml:"-"`
}

// Result is the output of one run. Mask is the refined footprint; ThinEdge is
// the thinned edge raster.
type Result struct {
	Mask     *raster.Raster
	ThinEdge *raster.Raster
	Stats    Stats
}

// Release returns both rasters to the pool.
func (r *Result) Release() {
	if r == nil {
		return
	}
	r.Mask.Release()
	r.ThinEdge.Release()
}

// Process refines region with edge. Inputs must be the same size and are not
// modified.
func (p *Pipeline) Process(region, edge *raster.Raster) (*Result, error) {
	if region == nil || edge == nil {
		return nil, inputErr(StageLoad, errors.New("nil input raster"))
	}
	if err := raster.CheckSameSize(region, edge); err != nil {
		return nil, inputErr(StageLoad, err)
	}

	start := time.Now()
	st := Stats{Width: region.Width, Height: region.Height, RegionPixels: region.CountNonZero()}
	track := func(stage string, t0 time.Time) {
		d := time.Since(t0)
		st.Stages = append(st.Stages, StageTiming{Stage: stage, Duration: d, Millis: float64(d) / float64(time.Millisecond)})
		if p.observer != nil {
			p.observer(stage, d)
		}
	}

	// 1) Thin the edge prediction to one-pixel lines
	t0 := time.Now()
	thin, err := morphology.Thin(edge, p.cfg.EdgeThreshold)
	if err != nil {
		return nil, preconditionErr(StageThin, err)
	}
	st.ThinEdgePixels = thin.CountNonZero()
	track(StageThin, t0)
	p.logger.Debug("stage complete", "stage", StageThin, "thin_edge_pixels", st.ThinEdgePixels)

	// 2) Union with the region prediction
	t0 = time.Now()
	combined, err := morphology.Combine(thin, region)
	if err != nil {
		thin.Release()
		return nil, preconditionErr(StageCombine, err)
	}
	st.CombinedPixels = combined.CountNonZero()
	track(StageCombine, t0)
	p.logger.Debug("stage complete", "stage", StageCombine, "combined_pixels", st.CombinedPixels)

	// 3) Close enclosed holes and peel off the outer ring
	t0 = time.Now()
	filled, ring := morphology.FillAndErode(combined)
	combined.Release()
	st.FilledPixels = filled.CountNonZero()
	st.RingPixels = ring.CountNonZero()
	track(StageFillErode, t0)
	p.logger.Debug("stage complete", "stage", StageFillErode,
		"filled_pixels", st.FilledPixels, "ring_pixels", st.RingPixels)

	// 4) Outer contours of the original region
	t0 = time.Now()
	outline := contour.Outline(region)
	track(StageOutline, t0)

	// 5) Interior plus ring pixels the region contour supports
	t0 = time.Now()
	merged, recovered, err := mergeResidual(outline, ring, filled)
	outline.Release()
	ring.Release()
	filled.Release()
	if err != nil {
		thin.Release()
		return nil, preconditionErr(StageMerge, err)
	}
	st.RecoveredPixels = recovered
	track(StageMerge, t0)
	p.logger.Debug("stage complete", "stage", StageMerge, "recovered_pixels", recovered)

	// 6) Drop components with contour area at or below beta
	t0 = time.Now()
	mask, fst, err := FilterSmallStats(merged, p.cfg.AreaThreshold)
	if err != nil {
		thin.Release()
		merged.Release()
		return nil, preconditionErr(StageFilter, err)
	}
	st.Filter = fst
	st.ForegroundPixels = mask.CountNonZero()
	track(StageFilter, t0)
	p.logger.Debug("stage complete", "stage", StageFilter,
		"components_examined", fst.Examined, "components_removed", fst.Removed)

	st.Total = time.Since(start)
	p.logger.Info("refinement complete",
		"width", st.Width, "height", st.Height,
		"foreground_pixels", st.ForegroundPixels,
		"components_removed", fst.Removed,
		"duration", st.Total)

	return &Result{Mask: mask, ThinEdge: thin, Stats: st}, nil
}
