package refine

import (
	"fmt"

	"github.com/MeKo-Tech/footprint/internal/morphology"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// IsNewBoundaryPixel reports whether a pixel lies both on the region contour
// and in the erosion ring of the combined mask. Such pixels are boundary
// detail that the region prediction supports and that is put back after
// erosion.
func IsNewBoundaryPixel(contourVal, ringVal uint8) bool {
	return contourVal != raster.Background && ringVal != raster.Background
}

// MergeResidual rebuilds the mask from the eroded interior of filled
// (filled minus ring) plus the recovered boundary pixels, then fills holes
// again. All three rasters must share one shape.
func MergeResidual(contour, ring, filled *raster.Raster) (*raster.Raster, error) {
	out, _, err := mergeResidual(contour, ring, filled)
	return out, err
}

func mergeResidual(contour, ring, filled *raster.Raster) (*raster.Raster, int, error) {
	if err := raster.CheckSameSize(contour, ring); err != nil {
		return nil, 0, fmt.Errorf("merge contour/ring: %w", err)
	}
	if err := raster.CheckSameSize(ring, filled); err != nil {
		return nil, 0, fmt.Errorf("merge ring/filled: %w", err)
	}

	merged := raster.New(filled.Width, filled.Height)
	defer merged.Release()

	recovered := 0
	for i := range merged.Pix {
		switch {
		case IsNewBoundaryPixel(contour.Pix[i], ring.Pix[i]):
			merged.Pix[i] = raster.Foreground
			recovered++
		case filled.Pix[i] != raster.Background && ring.Pix[i] == raster.Background:
			merged.Pix[i] = raster.Foreground
		}
	}
	return morphology.FillHoles(merged), recovered, nil
}
