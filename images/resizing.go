package images

import (
	"image"
	"math"

	"github.com/nfnt/resize"
)

// FitWithin computes the dimensions of a width x height image scaled down so
// that neither side exceeds maxDim. The longer side becomes exactly maxDim and
// the shorter side is scaled proportionally and rounded. Images already within
// bounds keep their dimensions.
//
// Arguments:
//   - width: The source width.
//   - height: The source height.
//   - maxDim: The maximum allowed side length.
//
// Returns:
//   - The target width and height.
//
// Example:
//
//	w, h := FitWithin(2000, 1000, 1400) // 1400, 700
func FitWithin(width, height, maxDim int) (int, int) {
	if maxDim <= 0 || width <= 0 || height <= 0 {
		return width, height
	}

	if width > height {
		if width > maxDim {
			return maxDim, scaleSide(height, maxDim, width)
		}
		return width, height
	}
	if height > maxDim {
		return scaleSide(width, maxDim, height), maxDim
	}
	return width, height
}

// scaleSide returns round(side * target / longer), never less than one pixel.
func scaleSide(side, target, longer int) int {
	v := int(math.Round(float64(side) * float64(target) / float64(longer)))
	if v < 1 {
		return 1
	}
	return v
}

// ResizeWithin returns img bounded to maxDim on both sides as *image.NRGBA.
// Images already within bounds are copied without resampling.
//
// Arguments:
//   - img: The source image.
//   - maxDim: The maximum allowed side length.
//
// Returns:
//   - The bounded image.
func ResizeWithin(img image.Image, maxDim int) *image.NRGBA {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxDim)
	if w == b.Dx() && h == b.Dy() {
		return ToNRGBA(img)
	}
	return ToNRGBA(resize.Resize(uint(w), uint(h), img, resize.Bilinear))
}
