package refine

import (
	"errors"
	"time"

	"github.com/MeKo-Tech/footprint/internal/raster"
)

// FileRequest names the rasters of one file-based run.
type FileRequest struct {
	RegionPath string
	EdgePath   string
	OutputPath string
	// EdgeOutputPath is optional; the thinned edge is written only when set.
	EdgeOutputPath string
}

// Validate checks that the mandatory paths are present. Output formats are
// checked when writing.
func (r FileRequest) Validate() error {
	switch {
	case r.RegionPath == "":
		return errors.New("region path is required")
	case r.EdgePath == "":
		return errors.New("edge path is required")
	case r.OutputPath == "":
		return errors.New("output path is required")
	}
	return nil
}

// FileResult is a Result plus the metadata of the loaded inputs.
type FileResult struct {
	*Result
	Region raster.Metadata
	Edge   raster.Metadata
}

// ProcessFiles loads both inputs, runs Process and writes the outputs.
// Nothing is written when loading or refinement fails.
func (p *Pipeline) ProcessFiles(req FileRequest) (*FileResult, error) {
	if err := req.Validate(); err != nil {
		return nil, inputErr(StageLoad, err)
	}

	opts := raster.DecodeOptions{AllowColor: p.cfg.AllowColor}
	region, regionMeta, err := raster.Load(req.RegionPath, opts)
	if err != nil {
		return nil, inputErr(StageLoad, err)
	}
	defer region.Release()

	edge, edgeMeta, err := raster.Load(req.EdgePath, opts)
	if err != nil {
		return nil, inputErr(StageLoad, err)
	}
	defer edge.Release()

	for _, m := range []raster.Metadata{regionMeta, edgeMeta} {
		if m.Converted {
			p.logger.Warn("color input converted to luminance", "path", m.Path)
		}
	}

	res, err := p.Process(region, edge)
	if err != nil {
		return nil, err
	}

	t0 := time.Now()
	if err := raster.Save(req.OutputPath, res.Mask); err != nil {
		res.Release()
		return nil, outputErr(StageSave, err)
	}
	if req.EdgeOutputPath != "" {
		if err := raster.Save(req.EdgeOutputPath, res.ThinEdge); err != nil {
			res.Release()
			return nil, outputErr(StageSave, err)
		}
	}
	p.logger.Debug("outputs written", "output", req.OutputPath, "edge_output", req.EdgeOutputPath,
		"duration", time.Since(t0))

	return &FileResult{Result: res, Region: regionMeta, Edge: edgeMeta}, nil
}
