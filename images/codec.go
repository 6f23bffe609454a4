package images

import (
	"bytes"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// DefaultJPEGQuality matches a 0.9 quality factor.
const DefaultJPEGQuality = 90

// Decode decodes encoded image bytes of any supported format. An EXIF
// orientation tag is applied, so the result is upright as a viewer shows it.
//
// Arguments:
//   - b: The encoded image bytes.
//
// Returns:
//   - The decoded image.
//   - The format the data was decoded as.
//   - An error if the data is empty, unsupported, or corrupt.
func Decode(b []byte) (image.Image, ImageFormat, error) {
	if len(b) == 0 {
		return nil, FormatUnknown, errors.New("empty image data")
	}

	format := DetectFormat(b)
	if format == FormatWebP {
		img, err := webp.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, FormatWebP, errors.Wrap(err, "failed to decode webp")
		}
		return img, FormatWebP, nil
	}

	img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, errors.Wrap(err, "failed to decode image")
	}
	if img.Bounds().Empty() {
		return nil, format, errors.New("decoded image has no pixels")
	}
	return img, format, nil
}

// ToNRGBA returns a non-premultiplied copy of img with bounds starting at (0, 0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// EncodeJPEG encodes an image as JPEG at the given quality (1-100).
//
// Arguments:
//   - img: The image to encode.
//   - quality: JPEG quality; values outside 1-100 fall back to DefaultJPEGQuality.
//
// Returns:
//   - The JPEG bytes.
//   - An error if encoding fails.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}
