package contour

import (
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// Outline returns a new raster holding the one-pixel outer border of every
// top-level component of region, drawn at Foreground. Interior holes and
// components nested inside them are not outlined.
func Outline(region *raster.Raster) *raster.Raster {
	out := raster.New(region.Width, region.Height)
	Draw(out, FindExternal(region), raster.Foreground)
	return out
}
