package raster_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/MeKo-Tech/footprint/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient() *raster.Raster {
	r := raster.New(16, 9)
	for i := range r.Pix {
		r.Pix[i] = uint8(i * 7 % 256)
	}
	return r
}

func TestSaveLoad_LosslessFormats(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	src := gradient()

	for _, ext := range []string{".png", ".tif", ".tiff", ".bmp", ".webp"} {
		t.Run(ext, func(t *testing.T) {
			path := testutil.WriteRaster(t, dir, "mask"+ext, src)

			got, meta, err := raster.Load(path, raster.DecodeOptions{})
			require.NoError(t, err)
			assert.True(t, src.Equal(got), "round trip through %s changed pixels", ext)
			assert.Equal(t, 16, meta.Width)
			assert.Equal(t, 9, meta.Height)
			assert.Equal(t, ext[1:], meta.Format)
			assert.False(t, meta.Converted)
			assert.Positive(t, meta.SizeBytes)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, _, err := raster.Load("mask.xyz", raster.DecodeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrUnsupportedFormat)

	var ioErr *raster.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "load", ioErr.Operation)
	assert.Equal(t, "mask.xyz", ioErr.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := raster.Load(filepath.Join(t.TempDir(), "nope.png"), raster.DecodeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o600))

	_, _, err := raster.Load(path, raster.DecodeOptions{})
	var ioErr *raster.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "decode", ioErr.Operation)
}

func TestLoad_ColorPolicy(t *testing.T) {
	path := testutil.WriteColorPNG(t, t.TempDir(), "color.png")

	_, _, err := raster.Load(path, raster.DecodeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrNotSingleChannel)

	r, meta, err := raster.Load(path, raster.DecodeOptions{AllowColor: true})
	require.NoError(t, err)
	assert.True(t, meta.Converted)
	assert.Equal(t, uint8(40), r.At(0, 0))
	assert.NotEqual(t, uint8(40), r.At(1, 2))
}

func TestFromImage_NeutralRGBAccepted(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{A: 255})
	img.Set(0, 1, color.RGBA{R: 77, G: 77, B: 77, A: 255})
	img.Set(1, 1, color.RGBA{A: 255})

	r, converted, err := raster.FromImage(img, raster.DecodeOptions{})
	require.NoError(t, err)
	assert.False(t, converted)
	assert.Equal(t, []uint8{255, 0, 77, 0}, r.Pix)
}

func TestFromImage_Gray16UsesHighByte(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 1))
	img.SetGray16(0, 0, color.Gray16{Y: 0xABCD})
	img.SetGray16(1, 0, color.Gray16{Y: 0x00FF})

	r, _, err := raster.FromImage(img, raster.DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0xAB, 0x00}, r.Pix)
}

func TestFromImage_SubImageOffset(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(2, 2, color.Gray{Y: 9})
	sub, ok := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.Gray)
	require.True(t, ok)

	r, _, err := raster.FromImage(sub, raster.DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, uint8(9), r.At(0, 0))
}

func TestSave_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, raster.Save(filepath.Join(dir, "out.tga"), gradient()), raster.ErrUnsupportedFormat)
	assert.Error(t, raster.Save("", gradient()))
	assert.Error(t, raster.Save(filepath.Join(dir, "out.png"), nil))
}

func TestEncodePNG(t *testing.T) {
	src := gradient()
	var buf bytes.Buffer
	require.NoError(t, raster.EncodePNG(&buf, src))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	got, _, err := raster.FromImage(img, raster.DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, src.Equal(got))
}

func TestDecodeFormat_ExtensionIsCaseInsensitive(t *testing.T) {
	src := gradient()
	var buf bytes.Buffer
	require.NoError(t, raster.EncodePNG(&buf, src))

	got, _, err := raster.DecodeFormat(&buf, ".PNG", raster.DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, src.Equal(got))
}

func TestSupportedExtensions(t *testing.T) {
	assert.True(t, raster.IsSupportedInput("a/B.TGA"))
	assert.False(t, raster.IsSupportedOutput("a/b.tga"))
	assert.True(t, raster.IsSupportedOutput("x.webp"))
	assert.False(t, raster.IsSupportedInput("x.pdf"))
}
