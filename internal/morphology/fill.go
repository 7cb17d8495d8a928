package morphology

import (
	"github.com/MeKo-Tech/footprint/internal/mempool"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// FillHoles returns a copy of mask where every background pixel that cannot
// reach the image border through 4-connected background becomes foreground.
// Nonzero input pixels come out as Foreground.
func FillHoles(mask *raster.Raster) *raster.Raster {
	w, h := mask.Width, mask.Height
	if w == 0 || h == 0 {
		return raster.New(w, h)
	}
	outside := mempool.GetBool(w * h)
	defer mempool.PutBool(outside)

	stack := make([]int, 0, 2*(w+h))
	seed := func(x, y int) {
		idx := y*w + x
		if mask.Pix[idx] == raster.Background && !outside[idx] {
			outside[idx] = true
			stack = append(stack, idx)
		}
	}
	for x := range w {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := range h {
		seed(0, y)
		seed(w-1, y)
	}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}

	out := raster.New(w, h)
	for i := range out.Pix {
		if !outside[i] {
			out.Pix[i] = raster.Foreground
		}
	}
	return out
}
