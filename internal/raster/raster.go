// Package raster provides the single-channel 8-bit grid that every refinement
// stage consumes and produces, plus decoding and encoding of raster files.
package raster

import (
	"bytes"
	"fmt"
	"image"

	"github.com/MeKo-Tech/footprint/internal/mempool"
)

const (
	// Background is the value of a cleared pixel in a binary raster.
	Background uint8 = 0
	// Foreground is the value of a set pixel in a binary raster.
	Foreground uint8 = 255
)

// Raster is a row-major W*H grid of 8-bit samples.
// Grayscale rasters use the full 0..255 range; binary rasters hold only
// Background and Foreground.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed raster. Buffers come from the shared pool and can be
// handed back with Release once the raster is no longer referenced.
func New(width, height int) *Raster {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Raster{Width: width, Height: height, Pix: mempool.GetUint8(width * height)}
}

// FromPix wraps an existing buffer. len(pix) must equal width*height.
func FromPix(width, height int, pix []uint8) (*Raster, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("%w: buffer of %d bytes for %dx%d", ErrDimensionMismatch, len(pix), width, height)
	}
	return &Raster{Width: width, Height: height, Pix: pix}, nil
}

// Release returns the pixel buffer to the pool. The raster must not be used
// afterwards.
func (r *Raster) Release() {
	if r == nil {
		return
	}
	mempool.PutUint8(r.Pix)
	r.Pix = nil
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := New(r.Width, r.Height)
	copy(out.Pix, r.Pix)
	return out
}

// Len returns the number of pixels.
func (r *Raster) Len() int { return r.Width * r.Height }

// Index returns the buffer offset of (x, y).
func (r *Raster) Index(x, y int) int { return y*r.Width + x }

// In reports whether (x, y) lies inside the raster.
func (r *Raster) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// At returns the sample at (x, y); coordinates outside the raster read as
// Background.
func (r *Raster) At(x, y int) uint8 {
	if !r.In(x, y) {
		return Background
	}
	return r.Pix[y*r.Width+x]
}

// Set writes v at (x, y). Out-of-range writes are ignored.
func (r *Raster) Set(x, y int, v uint8) {
	if r.In(x, y) {
		r.Pix[y*r.Width+x] = v
	}
}

// SameSize reports whether both rasters have identical dimensions.
func (r *Raster) SameSize(o *Raster) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// Equal reports whether both rasters have the same size and bytes.
func (r *Raster) Equal(o *Raster) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.SameSize(o) && bytes.Equal(r.Pix, o.Pix)
}

// CountNonZero returns the number of pixels that are not Background.
func (r *Raster) CountNonZero() int {
	n := 0
	for _, v := range r.Pix {
		if v != Background {
			n++
		}
	}
	return n
}

// IsBinary reports whether every sample is Background or Foreground.
func (r *Raster) IsBinary() bool {
	for _, v := range r.Pix {
		if v != Background && v != Foreground {
			return false
		}
	}
	return true
}

// Bounds returns the raster extent as an image rectangle anchored at 0,0.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// ToGray returns an *image.Gray sharing no memory with the raster.
func (r *Raster) ToGray() *image.Gray {
	img := image.NewGray(r.Bounds())
	for y := 0; y < r.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+r.Width], r.Pix[y*r.Width:(y+1)*r.Width])
	}
	return img
}

// CheckSameSize returns an error wrapping ErrDimensionMismatch when the
// rasters differ in shape.
func CheckSameSize(a, b *Raster) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: nil raster", ErrDimensionMismatch)
	}
	if !a.SameSize(b) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.Width, a.Height, b.Width, b.Height)
	}
	return nil
}
