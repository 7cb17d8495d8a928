package support

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/MeKo-Tech/footprint/internal/testutil"
	"github.com/cucumber/godog"
)

// writeRaster saves r under the temp directory.
func (testCtx *TestContext) writeRaster(name string, r *raster.Raster) error {
	if err := raster.Save(testCtx.Path(name), r); err != nil {
		return fmt.Errorf("failed to write fixture %s: %w", name, err)
	}
	return nil
}

// aSquareScenario writes region.png (a 10x10 square on a 20x20 canvas) and
// edge.png (a 2-pixel ring around it).
func (testCtx *TestContext) aSquareScenario() error {
	region, edge := testutil.SquareScenario()
	if err := testCtx.writeRaster("region.png", region); err != nil {
		return err
	}
	return testCtx.writeRaster("edge.png", edge)
}

// aSpeckScenario writes the square region plus a 2x2 speck and a blank edge.
func (testCtx *TestContext) aSpeckScenario() error {
	region := testutil.Square(20, 20, testutil.Rect{X0: 5, Y0: 5, X1: 14, Y1: 14})
	testutil.Fill(region, testutil.Rect{X0: 1, Y0: 1, X1: 2, Y1: 2}, raster.Foreground)
	if err := testCtx.writeRaster("region.png", region); err != nil {
		return err
	}
	return testCtx.writeRaster("edge.png", testutil.Blank(20, 20))
}

func (testCtx *TestContext) aBlankMask(name string, w, h int) error {
	return testCtx.writeRaster(name, testutil.Blank(w, h))
}

// aColorImage writes a 20x20 RGB image with one saturated pixel.
func (testCtx *TestContext) aColorImage(name string) error {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 30, 30, 30, 255
	}
	img.Set(3, 3, color.RGBA{R: 220, G: 20, B: 20, A: 255})

	f, err := os.Create(testCtx.Path(name))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return png.Encode(f, img)
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	return os.WriteFile(testCtx.Path(name), []byte("this is not an image"), 0o600)
}

// RegisterFixtureSteps registers the mask fixture steps.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a square region mask and a matching edge mask$`, testCtx.aSquareScenario)
	sc.Step(`^a region mask with a small speck and a blank edge mask$`, testCtx.aSpeckScenario)
	sc.Step(`^a blank mask "([^"]*)" of size (\d+)x(\d+)$`, testCtx.aBlankMask)
	sc.Step(`^a color image "([^"]*)"$`, testCtx.aColorImage)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
}
