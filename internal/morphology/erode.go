package morphology

import (
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// StructuringElement is a 3x3 neighbourhood; true cells take part in the
// operation. Index as se[dy+1][dx+1].
type StructuringElement [3][3]bool

// Box3 is the full 3x3 square element.
var Box3 = StructuringElement{
	{true, true, true},
	{true, true, true},
	{true, true, true},
}

// Cross3 is the 4-neighbourhood plus centre.
var Cross3 = StructuringElement{
	{false, true, false},
	{true, true, true},
	{false, true, false},
}

// Erode keeps a foreground pixel only when every in-image neighbour selected
// by se is foreground as well. Neighbours outside the raster do not erode.
func Erode(mask *raster.Raster, se StructuringElement) *raster.Raster {
	w, h := mask.Width, mask.Height
	out := raster.New(w, h)

	for y := range h {
		for x := range w {
			if mask.Pix[y*w+x] == raster.Background {
				continue
			}
			keep := true
			for dy := -1; dy <= 1 && keep; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if !se[dy+1][dx+1] {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if mask.Pix[ny*w+nx] == raster.Background {
						keep = false
						break
					}
				}
			}
			if keep {
				out.Pix[y*w+x] = raster.Foreground
			}
		}
	}
	return out
}

// Subtract returns a - b: foreground where a is set and b is not.
// Shapes must match; callers check.
func Subtract(a, b *raster.Raster) *raster.Raster {
	out := raster.New(a.Width, a.Height)
	for i := range out.Pix {
		if a.Pix[i] != raster.Background && b.Pix[i] == raster.Background {
			out.Pix[i] = raster.Foreground
		}
	}
	return out
}

// FillAndErode fills the holes of mask and returns the filled mask together
// with its one-pixel erosion ring (filled minus its Box3 erosion).
func FillAndErode(mask *raster.Raster) (filled, ring *raster.Raster) {
	filled = FillHoles(mask)
	eroded := Erode(filled, Box3)
	defer eroded.Release()
	return filled, Subtract(filled, eroded)
}
