package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/stretchr/testify/require"
)

// Rect is an inclusive pixel rectangle used to paint fixtures.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Blank returns a zero raster of the given size.
func Blank(w, h int) *raster.Raster {
	return raster.New(w, h)
}

// Fill sets every pixel of rect (inclusive, clipped) to v.
func Fill(r *raster.Raster, rect Rect, v uint8) *raster.Raster {
	for y := rect.Y0; y <= rect.Y1; y++ {
		for x := rect.X0; x <= rect.X1; x++ {
			r.Set(x, y, v)
		}
	}
	return r
}

// Square returns a w*h raster with rect set to 255.
func Square(w, h int, rect Rect) *raster.Raster {
	return Fill(raster.New(w, h), rect, raster.Foreground)
}

// Ring returns a w*h raster where outer minus inner is set to v.
func Ring(w, h int, outer, inner Rect, v uint8) *raster.Raster {
	r := Fill(raster.New(w, h), outer, v)
	return Fill(r, inner, raster.Background)
}

// FromRows builds a raster from text rows: '#' is foreground, anything else
// is background. All rows must have the same length.
func FromRows(rows ...string) *raster.Raster {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	r := raster.New(w, h)
	for y, row := range rows {
		for x := 0; x < w && x < len(row); x++ {
			if row[x] == '#' {
				r.Set(x, y, raster.Foreground)
			}
		}
	}
	return r
}

// Rows renders a raster in the FromRows notation; useful for readable diffs.
func Rows(r *raster.Raster) []string {
	out := make([]string, r.Height)
	var sb strings.Builder
	for y := 0; y < r.Height; y++ {
		sb.Reset()
		for x := 0; x < r.Width; x++ {
			if r.At(x, y) != raster.Background {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		out[y] = sb.String()
	}
	return out
}

// SquareScenario is the 20x20 fixture shared by pipeline and CLI tests:
// a filled region square on [5,14]^2 and a 2-pixel-wide edge ring around it.
func SquareScenario() (region, edge *raster.Raster) {
	region = Square(20, 20, Rect{5, 5, 14, 14})
	edge = Ring(20, 20, Rect{4, 4, 15, 15}, Rect{7, 7, 12, 12}, raster.Foreground)
	return region, edge
}

// WriteRaster saves r under dir/name and returns the full path.
func WriteRaster(t *testing.T, dir, name string, r *raster.Raster) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, raster.Save(path, r), "Failed to write raster %s", path)
	return path
}

// WriteColorPNG writes a small RGB image with one saturated pixel.
func WriteColorPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 40, 40, 255
	}
	img.Set(1, 2, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // G304: test-controlled path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
	return path
}
