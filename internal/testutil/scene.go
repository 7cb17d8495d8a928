package testutil

import "github.com/MeKo-Tech/footprint/internal/raster"

// SceneOptions describes a synthetic city block: a grid of square buildings,
// each traced by an edge ring, optionally with a noise speck per cell.
type SceneOptions struct {
	Width, Height int
	// Cell is the grid pitch; Building the side of each square.
	Cell     int
	Building int
	Specks   bool
}

// DefaultSceneOptions returns a w*h scene with 16px buildings on a 32px grid.
func DefaultSceneOptions(w, h int) SceneOptions {
	return SceneOptions{Width: w, Height: h, Cell: 32, Building: 16, Specks: true}
}

// Scene is a generated region/edge pair and what was painted into it.
type Scene struct {
	Region    *raster.Raster
	Edge      *raster.Raster
	Buildings int
	Specks    int
}

// NewScene paints the scene. Each edge ring runs from one pixel outside the
// building to two pixels inside it, like SquareScenario. Specks are 2x2 and
// sit in the cell corner, well clear of the ring.
func NewScene(opts SceneOptions) Scene {
	if opts.Cell <= 0 {
		opts.Cell = 32
	}
	if opts.Building <= 0 || opts.Building > opts.Cell-6 {
		opts.Building = opts.Cell / 2
	}

	s := Scene{
		Region: raster.New(opts.Width, opts.Height),
		Edge:   raster.New(opts.Width, opts.Height),
	}
	off := (opts.Cell - opts.Building) / 2
	for cy := 0; cy+opts.Cell <= opts.Height; cy += opts.Cell {
		for cx := 0; cx+opts.Cell <= opts.Width; cx += opts.Cell {
			b := Rect{cx + off, cy + off, cx + off + opts.Building - 1, cy + off + opts.Building - 1}
			Fill(s.Region, b, raster.Foreground)
			Fill(s.Edge, Rect{b.X0 - 1, b.Y0 - 1, b.X1 + 1, b.Y1 + 1}, raster.Foreground)
			Fill(s.Edge, Rect{b.X0 + 2, b.Y0 + 2, b.X1 - 2, b.Y1 - 2}, raster.Background)
			s.Buildings++

			if opts.Specks {
				Fill(s.Region, Rect{cx + 1, cy + 1, cx + 2, cy + 2}, raster.Foreground)
				s.Specks++
			}
		}
	}
	return s
}

// Release returns both rasters to the pool.
func (s Scene) Release() {
	s.Region.Release()
	s.Edge.Release()
}
