package refine

import (
	"fmt"

	"github.com/MeKo-Tech/footprint/internal/contour"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// FilterStats describes what the small-region filter did.
type FilterStats struct {
	Examined      int `json:"components_examined" yaml:"components_examined"`
	Removed       int `json:"components_removed" yaml:"components_removed"`
	RemovedPixels int `json:"removed_pixels" yaml:"removed_pixels"`
}

// FilterSmall clears every 8-connected component of mask whose outer contour
// encloses an area of at most beta. The mask is modified in place and
// returned. A beta of 0 disables the filter.
func FilterSmall(mask *raster.Raster, beta int) (*raster.Raster, error) {
	out, _, err := FilterSmallStats(mask, beta)
	return out, err
}

// FilterSmallStats is FilterSmall with a summary of the removed components.
func FilterSmallStats(mask *raster.Raster, beta int) (*raster.Raster, FilterStats, error) {
	if beta < 0 {
		return nil, FilterStats{}, fmt.Errorf("filter: beta %d: %w", beta, ErrNegativeArea)
	}
	if beta == 0 {
		return mask, FilterStats{}, nil
	}

	lm := contour.Label(mask)
	defer lm.Release()

	st := FilterStats{Examined: len(lm.Components)}
	limit := float64(beta)
	for _, c := range lm.Components {
		if lm.Trace(c).Area() > limit {
			continue
		}
		st.Removed++
		st.RemovedPixels += lm.Clear(mask, c.Label)
	}
	return mask, st, nil
}
