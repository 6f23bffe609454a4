package kernels

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func randomImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func neutralTonal() TonalOptions {
	return TonalOptions{Contrast: 1, Brightness: 1, Saturation: 1}
}

func TestTonalNeutralIsIdentity(t *testing.T) {
	src := randomImage(17, 9, 1)
	out := Tonal(src, neutralTonal())
	assert.Equal(t, src.Rect, out.Rect)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestTonalDoesNotModifySource(t *testing.T) {
	src := randomImage(8, 8, 2)
	before := append([]uint8(nil), src.Pix...)
	Tonal(src, DefaultTonalOptions())
	assert.Equal(t, before, src.Pix)
}

func TestTonalDefaultOnUniformGray(t *testing.T) {
	src := uniformImage(12, 7, color.NRGBA{R: 64, G: 64, B: 64, A: 255})
	out := Tonal(src, DefaultTonalOptions())

	// contrast: (64-127.5)*1.25+127.5 = 48.125; brightness: 52.94; saturate keeps gray;
	// sepia(0.05) row sums are 1.01755, 1.01015 and 0.99685.
	first := out.NRGBAAt(0, 0)
	assert.InDelta(t, 53.87, float64(first.R), 1)
	assert.InDelta(t, 53.48, float64(first.G), 1)
	assert.InDelta(t, 52.77, float64(first.B), 1)
	assert.Equal(t, uint8(255), first.A)

	for y := 0; y < 7; y++ {
		for x := 0; x < 12; x++ {
			require.Equal(t, first, out.NRGBAAt(x, y), "uniform input stays uniform at (%d,%d)", x, y)
		}
	}
}

func TestTonalBlurSpreadsImpulse(t *testing.T) {
	src := uniformImage(5, 5, color.NRGBA{A: 255})
	src.SetNRGBA(2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	opt := neutralTonal()
	opt.BlurSigma = 1
	out := Tonal(src, opt)

	centre := out.NRGBAAt(2, 2).R
	neighbour := out.NRGBAAt(1, 2).R
	assert.Less(t, centre, uint8(255))
	assert.Greater(t, neighbour, uint8(0))
	assert.Greater(t, centre, neighbour)
}

func TestTonalClampsHighlights(t *testing.T) {
	src := uniformImage(4, 4, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	opt := neutralTonal()
	opt.Brightness = 2
	out := Tonal(src, opt)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(1, 1))
}

func TestTonalParallelMatchesSerial(t *testing.T) {
	src := randomImage(64, 300, 3)
	serial := DefaultTonalOptions()
	parallel := DefaultTonalOptions()
	parallel.Parallel = true

	assert.Equal(t, Tonal(src, serial).Pix, Tonal(src, parallel).Pix)
}

func TestTonalEmptyImage(t *testing.T) {
	out := Tonal(image.NewNRGBA(image.Rect(0, 0, 0, 0)), DefaultTonalOptions())
	assert.True(t, out.Rect.Empty())
}
