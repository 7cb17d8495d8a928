package contour

import (
	"image"

	"github.com/MeKo-Tech/footprint/internal/mempool"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// Contour is the ordered outer border of one component. Consecutive points
// are 8-adjacent and the chain closes back onto its first point; every border
// pixel is listed.
type Contour []image.Point

// Neighbour directions counterclockwise on screen (y grows downwards):
// E, NE, N, NW, W, SW, S, SE.
var (
	dirX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	dirY = [8]int{0, -1, -1, -1, 0, 1, 1, 1}
)

const dirWest = 4

func direction(dx, dy int) int {
	for i := range 8 {
		if dirX[i] == dx && dirY[i] == dy {
			return i
		}
	}
	return -1
}

// Trace follows the outer border of component c (Suzuki-Abe border
// following). Hole borders are not visited.
func (m *LabelMap) Trace(c Component) Contour {
	label := c.Label
	inside := func(x, y int) bool { return m.At(x, y) == label }
	sx, sy := c.Seed.X, c.Seed.Y

	// The seed is the first pixel in raster order, so its west neighbour is
	// background. Search clockwise from there for the first neighbour.
	first := -1
	for k := range 8 {
		d := (dirWest - k + 8) % 8
		if inside(sx+dirX[d], sy+dirY[d]) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{c.Seed}
	}

	x1, y1 := sx+dirX[first], sy+dirY[first]
	px, py := x1, y1
	cx, cy := sx, sy

	pts := make(Contour, 0, 2*(c.Bounds.Dx()+c.Bounds.Dy()))
	maxSteps := 4*c.Pixels + 8
	for range maxSteps {
		// Counterclockwise from the pixel we came from.
		d0 := direction(px-cx, py-cy)
		next := d0
		for k := 1; k <= 8; k++ {
			d := (d0 + k) % 8
			if inside(cx+dirX[d], cy+dirY[d]) {
				next = d
				break
			}
		}
		pts = append(pts, image.Pt(cx, cy))

		nx, ny := cx+dirX[next], cy+dirY[next]
		if nx == sx && ny == sy && cx == x1 && cy == y1 {
			break
		}
		px, py = cx, cy
		cx, cy = nx, ny
	}
	return pts
}

// FindExternal returns the outer contour of every top-level 8-connected
// component of mask, in label order. Components lying inside a hole of
// another component are skipped.
func FindExternal(mask *raster.Raster) []Contour {
	lm := Label(mask)
	defer lm.Release()

	outside := borderBackground(mask)
	defer mempool.PutBool(outside)

	out := make([]Contour, 0, len(lm.Components))
	for _, c := range lm.Components {
		// The seed's west neighbour is background (or off the image); the
		// component is top-level when that background reaches the border.
		if wx := c.Seed.X - 1; wx >= 0 && !outside[c.Seed.Y*mask.Width+wx] {
			continue
		}
		out = append(out, lm.Trace(c))
	}
	return out
}

// borderBackground marks the background pixels connected to the image
// border through 4-connected background. The buffer is pooled.
func borderBackground(mask *raster.Raster) []bool {
	w, h := mask.Width, mask.Height
	outside := mempool.GetBool(w * h)

	var stack []int
	visit := func(x, y int) {
		idx := y*w + x
		if mask.Pix[idx] == raster.Background && !outside[idx] {
			outside[idx] = true
			stack = append(stack, idx)
		}
	}
	for x := range w {
		visit(x, 0)
		visit(x, h-1)
	}
	for y := range h {
		visit(0, y)
		visit(w-1, y)
	}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		if x > 0 {
			visit(x-1, y)
		}
		if x < w-1 {
			visit(x+1, y)
		}
		if y > 0 {
			visit(x, y-1)
		}
		if y < h-1 {
			visit(x, y+1)
		}
	}
	return outside
}
