package contour

import (
	"image"

	"github.com/MeKo-Tech/footprint/internal/raster"
)

// Draw strokes every contour onto dst as a closed polyline of width one.
// Pixels outside dst are clipped.
func Draw(dst *raster.Raster, contours []Contour, value uint8) {
	for _, c := range contours {
		switch len(c) {
		case 0:
			continue
		case 1:
			dst.Set(c[0].X, c[0].Y, value)
			continue
		}
		for i := range c {
			drawLine(dst, c[i], c[(i+1)%len(c)], value)
		}
	}
}

// drawLine rasterizes the segment a-b with Bresenham's algorithm.
func drawLine(dst *raster.Raster, a, b image.Point, value uint8) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		dst.Set(x0, y0, value)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
