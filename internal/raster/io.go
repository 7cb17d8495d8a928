package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// SupportedInputExtensions lists file extensions that can be decoded.
var SupportedInputExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".tga", ".gif"}

// SupportedOutputExtensions lists file extensions that can be encoded.
var SupportedOutputExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".gif"}

// decoders maps a lower-case extension to its codec. TGA carries no magic
// number, so decoding always goes through the extension instead of sniffing.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": webp.Decode,
	".tga":  tga.Decode,
}

// IsSupportedInput reports whether the path has a decodable extension.
func IsSupportedInput(path string) bool {
	return slices.Contains(SupportedInputExtensions, strings.ToLower(filepath.Ext(path)))
}

// IsSupportedOutput reports whether the path has an encodable extension.
func IsSupportedOutput(path string) bool {
	return slices.Contains(SupportedOutputExtensions, strings.ToLower(filepath.Ext(path)))
}

// DecodeOptions controls how decoded images are mapped onto a raster.
type DecodeOptions struct {
	// AllowColor converts color images to luminance instead of rejecting them.
	AllowColor bool
}

// Metadata captures lightweight file information about a loaded raster.
type Metadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
	// Converted is set when a color image was reduced to luminance.
	Converted bool
}

// Load opens and decodes a raster file.
func Load(path string, opts DecodeOptions) (*Raster, Metadata, error) {
	if path == "" {
		return nil, Metadata{}, &IOError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedInput(path) {
		return nil, Metadata{}, &IOError{Operation: "load", Path: path,
			Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))}
	}

	f, err := os.Open(path) //nolint:gosec // G304: reading caller-supplied raster path is expected
	if err != nil {
		return nil, Metadata{}, &IOError{Operation: "load", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, Metadata{}, &IOError{Operation: "load", Path: path, Err: err}
	}

	r, converted, err := DecodeFormat(f, filepath.Ext(path), opts)
	if err != nil {
		return nil, Metadata{}, &IOError{Operation: "decode", Path: path, Err: err}
	}

	meta := Metadata{
		Path:      path,
		Format:    strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		SizeBytes: fi.Size(),
		Width:     r.Width,
		Height:    r.Height,
		Converted: converted,
	}
	return r, meta, nil
}

// DecodeFormat reads an image stream and maps it onto a raster. ext selects
// the codec (".png", ".tif", ...); an empty or unknown ext falls back to
// content sniffing. The boolean result reports whether a color image was
// converted to luminance.
func DecodeFormat(rd io.Reader, ext string, opts DecodeOptions) (*Raster, bool, error) {
	var (
		img image.Image
		err error
	)
	if dec, ok := decoders[strings.ToLower(ext)]; ok {
		img, err = dec(rd)
	} else {
		img, err = imaging.Decode(rd)
	}
	if err != nil {
		return nil, false, err
	}
	return FromImage(img, opts)
}

// FromImage copies an image into a new raster. Gray and 16-bit gray images are
// accepted directly; other color models are accepted when every pixel is an
// opaque neutral gray. Anything else needs opts.AllowColor.
func FromImage(img image.Image, opts DecodeOptions) (*Raster, bool, error) {
	if img == nil {
		return nil, false, errors.New("nil image")
	}
	b := img.Bounds()
	out := New(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Width:(y+1)*out.Width], src.Pix[off:off+out.Width])
		}
		return out, false, nil
	case *image.Gray16:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Pix[y*out.Width+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out, false, nil
	}

	converted := false
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			r, g, bl, a := c.RGBA()
			if r == g && g == bl && a == 0xffff {
				out.Pix[y*out.Width+x] = uint8(r >> 8)
				continue
			}
			if !opts.AllowColor {
				out.Release()
				return nil, false, fmt.Errorf("%w: %T has color at (%d,%d)", ErrNotSingleChannel, img, x, y)
			}
			converted = true
			gray, _ := color.GrayModel.Convert(c).(color.Gray)
			out.Pix[y*out.Width+x] = gray.Y
		}
	}
	return out, converted, nil
}

// Save encodes the raster to path; the format follows the file extension.
// WebP output is lossless.
func Save(path string, r *Raster) error {
	if path == "" {
		return &IOError{Operation: "save", Err: errors.New("empty path")}
	}
	if r == nil {
		return &IOError{Operation: "save", Path: path, Err: errors.New("nil raster")}
	}
	if !IsSupportedOutput(path) {
		return &IOError{Operation: "save", Path: path,
			Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))}
	}

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		return saveWebP(path, r)
	}
	if err := imaging.Save(r.ToGray(), path); err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	return nil
}

func saveWebP(path string, r *Raster) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: writing caller-supplied output path is expected
	if err != nil {
		return &IOError{Operation: "save", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &IOError{Operation: "save", Path: path, Err: cerr}
		}
	}()

	if encErr := nativewebp.Encode(f, toNRGBA(r), nil); encErr != nil {
		return &IOError{Operation: "encode", Path: path, Err: encErr}
	}
	return nil
}

// EncodePNG writes the raster as a single-channel PNG stream.
func EncodePNG(w io.Writer, r *Raster) error {
	if err := imaging.Encode(w, r.ToGray(), imaging.PNG); err != nil {
		return &IOError{Operation: "encode", Err: err}
	}
	return nil
}

func toNRGBA(r *Raster) *image.NRGBA {
	img := image.NewNRGBA(r.Bounds())
	for i, v := range r.Pix {
		o := i * 4
		img.Pix[o] = v
		img.Pix[o+1] = v
		img.Pix[o+2] = v
		img.Pix[o+3] = 0xff
	}
	return img
}
