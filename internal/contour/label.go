// Package contour labels 8-connected foreground components and extracts
// their outer borders as ordered pixel chains.
package contour

import (
	"image"

	"github.com/MeKo-Tech/footprint/internal/mempool"
	"github.com/MeKo-Tech/footprint/internal/raster"
)

// Component summarizes one labeled region.
type Component struct {
	Label int32
	// Seed is the first pixel of the component in raster order (topmost,
	// then leftmost). Border tracing starts here.
	Seed   image.Point
	Pixels int
	Bounds image.Rectangle
}

// LabelMap assigns every foreground pixel the label of its 8-connected
// component; background is 0. Labels run from 1 to len(Components).
type LabelMap struct {
	Width      int
	Height     int
	Labels     []int32
	Components []Component
}

// Label computes the 8-connected components of the nonzero pixels of mask.
// The label buffer is pooled; call Release when done.
func Label(mask *raster.Raster) *LabelMap {
	w, h := mask.Width, mask.Height
	lm := &LabelMap{Width: w, Height: h, Labels: mempool.GetInt32(w * h)}

	var stack []int
	for y := range h {
		for x := range w {
			idx := y*w + x
			if mask.Pix[idx] == raster.Background || lm.Labels[idx] != 0 {
				continue
			}
			label := int32(len(lm.Components) + 1)
			comp := Component{Label: label, Seed: image.Pt(x, y)}
			minX, minY, maxX, maxY := x, y, x, y

			lm.Labels[idx] = label
			stack = append(stack[:0], idx)
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				cx, cy := cur%w, cur/w
				comp.Pixels++
				minX, maxX = min(minX, cx), max(maxX, cx)
				minY, maxY = min(minY, cy), max(maxY, cy)

				for dy := -1; dy <= 1; dy++ {
					ny := cy + dy
					if ny < 0 || ny >= h {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						nx := cx + dx
						if nx < 0 || nx >= w {
							continue
						}
						n := ny*w + nx
						if mask.Pix[n] != raster.Background && lm.Labels[n] == 0 {
							lm.Labels[n] = label
							stack = append(stack, n)
						}
					}
				}
			}
			comp.Bounds = image.Rect(minX, minY, maxX+1, maxY+1)
			lm.Components = append(lm.Components, comp)
		}
	}
	return lm
}

// At returns the label at (x, y); outside the map it returns 0.
func (m *LabelMap) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Labels[y*m.Width+x]
}

// Release hands the label buffer back to the pool.
func (m *LabelMap) Release() {
	if m == nil {
		return
	}
	mempool.PutInt32(m.Labels)
	m.Labels = nil
}

// Clear sets every pixel of dst that carries label to Background.
func (m *LabelMap) Clear(dst *raster.Raster, label int32) int {
	c := m.Components[label-1]
	n := 0
	for y := c.Bounds.Min.Y; y < c.Bounds.Max.Y; y++ {
		row := y * m.Width
		for x := c.Bounds.Min.X; x < c.Bounds.Max.X; x++ {
			if m.Labels[row+x] == label {
				dst.Pix[row+x] = raster.Background
				n++
			}
		}
	}
	return n
}
