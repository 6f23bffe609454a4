package images

import (
	"crypto/md5"
	"fmt"
	"image"
)

// Checksum generates a deterministic checksum of an image's pixels to verify idempotency.
//
// Arguments:
// - img: The image to compute the checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	checksum := Checksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func Checksum(img *image.NRGBA) string {
	if img == nil || img.Rect.Empty() {
		return "empty"
	}

	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:", img.Rect.Dx(), img.Rect.Dy())
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		off := img.PixOffset(img.Rect.Min.X, y)
		hash.Write(img.Pix[off : off+img.Rect.Dx()*4])
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}
