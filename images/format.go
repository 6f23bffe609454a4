package images

import "bytes"

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatUnknown is returned when the data does not match a known signature.
	FormatUnknown ImageFormat = ""
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	gif87a    = []byte("GIF87a")
	gif89a    = []byte("GIF89a")
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// MIME returns the media type for the format, defaulting to image/jpeg.
func (f ImageFormat) MIME() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// DetectFormat sniffs the image format from its leading magic bytes.
//
// Arguments:
//   - b: The encoded image bytes.
//
// Returns:
//   - The detected format, or FormatUnknown.
func DetectFormat(b []byte) ImageFormat {
	switch {
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FormatJPEG
	case bytes.HasPrefix(b, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(b, gif87a), bytes.HasPrefix(b, gif89a):
		return FormatGIF
	case len(b) >= 12 && bytes.Equal(b[0:4], riffMagic) && bytes.Equal(b[8:12], webpMagic):
		return FormatWebP
	default:
		return FormatUnknown
	}
}
