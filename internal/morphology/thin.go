// Package morphology implements the binary image operations used to refine
// building masks: edge thinning, mask union, hole filling and erosion.
package morphology

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/footprint/internal/mempool"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// ErrThresholdRange is returned when an 8-bit threshold lies outside 0..255.
var ErrThresholdRange = errors.New("threshold outside 0..255")

// neighbour offsets P2..P9 in Zhang-Suen order: N, NE, E, SE, S, SW, W, NW.
var (
	zsDX = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
	zsDY = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
)

// Thin binarizes edge at alpha and reduces every foreground stroke to a
// one-pixel-wide skeleton. A pixel whose value is at or below alpha becomes
// background. The result is a new binary raster; edge is not modified.
func Thin(edge *raster.Raster, alpha int) (*raster.Raster, error) {
	if edge == nil {
		return nil, errors.New("thin: nil raster")
	}
	if alpha < 0 || alpha > 255 {
		return nil, fmt.Errorf("thin: alpha %d: %w", alpha, ErrThresholdRange)
	}

	w, h := edge.Width, edge.Height
	bin := mempool.GetUint8(w * h)
	defer mempool.PutUint8(bin)

	// Binarize to 0/1; values equal to alpha stay background
	th := uint8(alpha)
	for i, v := range edge.Pix {
		if v > th {
			bin[i] = 1
		}
	}

	zhangSuen(bin, w, h)

	// Scale back to 0/255
	out := raster.New(w, h)
	for i, v := range bin {
		if v != 0 {
			out.Pix[i] = raster.Foreground
		}
	}
	return out, nil
}

// zhangSuen thins a 0/1 buffer in place until a full pass removes nothing.
func zhangSuen(bin []uint8, w, h int) {
	var candidates []int
	for {
		changed := false
		for step := range 2 {
			// Mark pass: collect every pixel deletable in this subiteration
			candidates = candidates[:0]
			for y := range h {
				for x := range w {
					if bin[y*w+x] != 0 && removable(bin, w, h, x, y, step) {
						candidates = append(candidates, y*w+x)
					}
				}
			}
			// Deletion is sequential and re-checked so that earlier removals in
			// this subiteration cannot disconnect the stroke (2x2 blocks).
			for _, idx := range candidates {
				x, y := idx%w, idx/w
				if removable(bin, w, h, x, y, step) {
					bin[idx] = 0
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

// removable evaluates the Zhang-Suen deletion conditions for subiteration step.
// Neighbours outside the raster count as background.
func removable(bin []uint8, w, h, x, y, step int) bool {
	// P2..P9 clockwise from north; b counts foreground neighbours
	var p [8]uint8
	b := 0
	for i := range 8 {
		nx, ny := x+zsDX[i], y+zsDY[i]
		if nx >= 0 && ny >= 0 && nx < w && ny < h && bin[ny*w+nx] != 0 {
			p[i] = 1
			b++
		}
	}
	if b < 2 || b > 6 {
		return false
	}

	// Exactly one 0->1 transition around P2..P9,P2 keeps the pixel simple
	a := 0
	for i := range 8 {
		if p[i] == 0 && p[(i+1)%8] == 1 {
			a++
		}
	}
	if a != 1 {
		return false
	}

	// Step 0 peels south-east boundaries and north-west corners, step 1 the
	// opposite sides
	p2, p4, p6, p8 := p[0], p[2], p[4], p[6]
	if step == 0 {
		return p2*p4*p6 == 0 && p4*p6*p8 == 0
	}
	return p2*p4*p8 == 0 && p2*p6*p8 == 0
}
