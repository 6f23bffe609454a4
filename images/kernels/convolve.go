package kernels

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// Kernel3x3 is a row-major 3x3 convolution kernel.
type Kernel3x3 [9]float32

// Sharpen is the unsharp-style edge enhancement kernel: the centre weight is
// 1.8 and each of the eight neighbours is -0.1, so the weights sum to 1 and
// flat regions pass through unchanged.
var Sharpen = Kernel3x3{
	-0.1, -0.1, -0.1,
	-0.1, 1.8, -0.1,
	-0.1, -0.1, -0.1,
}

// Sum returns the sum of the kernel weights.
func (k Kernel3x3) Sum() float32 {
	var s float32
	for _, v := range k {
		s += v
	}
	return s
}

// BorderPolicy decides what the outermost 1-pixel ring holds after a 3x3
// convolution, where the kernel has no full neighbourhood.
type BorderPolicy int

const (
	// BorderZero leaves the ring at the zero value (transparent black), which
	// encodes as black in formats without alpha.
	BorderZero BorderPolicy = iota
	// BorderCopy copies the ring unchanged from the source.
	BorderCopy
)

// String returns the config name of the policy.
func (p BorderPolicy) String() string {
	switch p {
	case BorderZero:
		return "zero"
	case BorderCopy:
		return "copy"
	default:
		return fmt.Sprintf("BorderPolicy(%d)", int(p))
	}
}

// ParseBorderPolicy maps "zero" and "copy" to their policies. An empty string is BorderZero.
func ParseBorderPolicy(s string) (BorderPolicy, error) {
	switch s {
	case "", "zero":
		return BorderZero, nil
	case "copy":
		return BorderCopy, nil
	default:
		return BorderZero, errors.Errorf("unknown border policy %q", s)
	}
}

// ConvolveOptions configures Convolve3x3.
type ConvolveOptions struct {
	Border   BorderPolicy // Contents of the 1-pixel ring.
	Parallel bool         // Split rows across goroutines.
}

// Convolve3x3 applies k to the R, G and B channels of every interior pixel of
// src, writing into a freshly allocated image. Interior pixels get the rounded,
// clamped weighted sum of their source neighbourhood and alpha 255. The ring
// is filled according to opt.Border. Images with a side shorter than 3 pixels
// have no interior.
//
// Arguments:
// - src: The source image. It is not modified.
// - k: The kernel.
// - opt: Border policy and parallelism.
//
// Returns:
// - A new *image.NRGBA with the same bounds as src.
func Convolve3x3(src *image.NRGBA, k Kernel3x3, opt ConvolveOptions) *image.NRGBA {
	b := src.Rect
	dst := image.NewNRGBA(b)
	w, h := b.Dx(), b.Dy()

	if opt.Border == BorderCopy {
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[y*src.Stride:y*src.Stride+w*4])
		}
	}
	if w < 3 || h < 3 {
		return dst
	}

	rowTask := func(y int) {
		up := (y - 1) * src.Stride
		mid := y * src.Stride
		down := (y + 1) * src.Stride
		dstRow := y * dst.Stride
		for x := 1; x < w-1; x++ {
			l, c, r := (x-1)*4, x*4, (x+1)*4
			off := dstRow + c
			for ch := 0; ch < 3; ch++ {
				sum := k[0]*float32(src.Pix[up+l+ch]) +
					k[1]*float32(src.Pix[up+c+ch]) +
					k[2]*float32(src.Pix[up+r+ch]) +
					k[3]*float32(src.Pix[mid+l+ch]) +
					k[4]*float32(src.Pix[mid+c+ch]) +
					k[5]*float32(src.Pix[mid+r+ch]) +
					k[6]*float32(src.Pix[down+l+ch]) +
					k[7]*float32(src.Pix[down+c+ch]) +
					k[8]*float32(src.Pix[down+r+ch])
				dst.Pix[off+ch] = clampByte(sum)
			}
			dst.Pix[off+3] = 255
		}
	}

	forRows(1, h-1, opt.Parallel, rowTask)
	return dst
}

// ConvolveAt returns the unclamped weighted sum of k over the neighbourhood of
// the interior pixel (x, y) for channel ch (0=R, 1=G, 2=B).
func ConvolveAt(src *image.NRGBA, k Kernel3x3, x, y, ch int) float32 {
	var sum float32
	for ky := 0; ky < 3; ky++ {
		for kx := 0; kx < 3; kx++ {
			off := src.PixOffset(x+kx-1, y+ky-1)
			sum += k[ky*3+kx] * float32(src.Pix[off+ch])
		}
	}
	return sum
}
