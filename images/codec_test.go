package images

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions to create test data for different formats
func getJPEGBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, getTestImage(100, 100), nil)
	require.NoError(t, err)
	return buf.Bytes()
}

func getPNGBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	err := png.Encode(&buf, getTestImage(100, 100))
	require.NoError(t, err)
	return buf.Bytes()
}

func getWebPBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	err := webp.Encode(&buf, getTestImage(100, 100), &webp.Options{Quality: 80})
	require.NoError(t, err)
	return buf.Bytes()
}

func getGIFBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	err := gif.Encode(&buf, getTestImage(100, 100), nil)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJPEG, DetectFormat(getJPEGBytes(t)))
	assert.Equal(t, FormatPNG, DetectFormat(getPNGBytes(t)))
	assert.Equal(t, FormatWebP, DetectFormat(getWebPBytes(t)))
	assert.Equal(t, FormatGIF, DetectFormat(getGIFBytes(t)))
	assert.Equal(t, FormatUnknown, DetectFormat([]byte("hello")))
	assert.Equal(t, FormatUnknown, DetectFormat(nil))
}

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format ImageFormat
	}{
		{"jpeg", getJPEGBytes(t), FormatJPEG},
		{"png", getPNGBytes(t), FormatPNG},
		{"webp", getWebPBytes(t), FormatWebP},
		{"gif", getGIFBytes(t), FormatGIF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, 100, img.Bounds().Dx())
			assert.Equal(t, 100, img.Bounds().Dy())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode(nil)
	assert.Error(t, err, "empty data should fail")

	_, _, err = Decode([]byte("not an image"))
	assert.Error(t, err, "garbage should fail")

	truncated := getPNGBytes(t)[:20]
	_, _, err = Decode(truncated)
	assert.Error(t, err, "truncated png should fail")
}

func TestEncodeJPEG(t *testing.T) {
	out, err := EncodeJPEG(getTestImage(64, 32), 90)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, DetectFormat(out))

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)

	// Out-of-range quality falls back rather than failing.
	_, err = EncodeJPEG(getTestImage(8, 8), 0)
	assert.NoError(t, err)
}

func TestChecksumDeterministic(t *testing.T) {
	a := ToNRGBA(getTestImage(16, 16))
	b := ToNRGBA(getTestImage(16, 16))
	assert.Equal(t, Checksum(a), Checksum(b))

	b.Pix[0] ^= 0xFF
	assert.NotEqual(t, Checksum(a), Checksum(b))
	assert.Equal(t, "empty", Checksum(nil))
}

// splitJPEG encodes a width x height JPEG whose left half is red and right half blue.
func splitJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{R: 230, G: 20, B: 20, A: 255}
			if x >= width/2 {
				c = color.RGBA{R: 20, G: 20, B: 230, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// withOrientation inserts a big-endian EXIF APP1 segment carrying the given
// orientation tag right after the JPEG SOI marker.
func withOrientation(jpegData []byte, orientation uint16) []byte {
	tiff := []byte{
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08, // header, IFD at offset 8
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, // orientation, SHORT, count 1
		byte(orientation >> 8), byte(orientation), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2

	out := append([]byte{}, jpegData[:2]...)
	out = append(out, 0xff, 0xe1, byte(size>>8), byte(size))
	out = append(out, payload...)
	return append(out, jpegData[2:]...)
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 2*b && r > 2*g
}

func TestDecodeAppliesEXIFOrientation(t *testing.T) {
	stored := splitJPEG(t, 200, 100)

	tests := []struct {
		name          string
		orientation   uint16
		width, height int
		redAt, blueAt image.Point
	}{
		{"none", 1, 200, 100, image.Pt(20, 50), image.Pt(180, 50)},
		{"rotate 180", 3, 200, 100, image.Pt(180, 50), image.Pt(20, 50)},
		{"rotate 90 clockwise", 6, 100, 200, image.Pt(50, 20), image.Pt(50, 180)},
		{"rotate 90 counter-clockwise", 8, 100, 200, image.Pt(50, 180), image.Pt(50, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Decode(withOrientation(stored, tt.orientation))
			require.NoError(t, err)
			assert.Equal(t, FormatJPEG, format)
			assert.Equal(t, tt.width, img.Bounds().Dx())
			assert.Equal(t, tt.height, img.Bounds().Dy())

			b := img.Bounds().Min
			assert.True(t, isRed(img.At(b.X+tt.redAt.X, b.Y+tt.redAt.Y)), "expected red at %v", tt.redAt)
			assert.False(t, isRed(img.At(b.X+tt.blueAt.X, b.Y+tt.blueAt.Y)), "expected blue at %v", tt.blueAt)
		})
	}
}
