package morphology

import (
	"fmt"

	"github.com/MeKo-Tech/footprint/internal/raster"
)

// Combine returns the union of two masks: a pixel is foreground when either
// input is nonzero there. Both inputs must have the same shape.
func Combine(a, b *raster.Raster) (*raster.Raster, error) {
	if err := raster.CheckSameSize(a, b); err != nil {
		return nil, fmt.Errorf("combine: %w", err)
	}

	out := raster.New(a.Width, a.Height)
	for i := range out.Pix {
		if a.Pix[i] != raster.Background || b.Pix[i] != raster.Background {
			out.Pix[i] = raster.Foreground
		}
	}
	return out, nil
}
