package kernels

import "github.com/chewxy/math32"

// GaussianKernel returns normalized 1-D gaussian weights for the given sigma.
// The radius is ceil(3*sigma), so the slice has 2*radius+1 entries summing to 1.
// A non-positive sigma yields the identity kernel [1].
//
// Arguments:
// - sigma: Standard deviation in pixels.
//
// Returns:
// - The weights, centre at index radius.
//
// Example:
//
//	w := GaussianKernel(0.3) // 3 taps, centre weight ~0.992
func GaussianKernel(sigma float32) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}

	radius := int(math32.Ceil(3 * sigma))
	weights := make([]float32, 2*radius+1)
	var sum float32
	for i := -radius; i <= radius; i++ {
		x := float32(i)
		w := math32.Exp(-(x * x) / (2 * sigma * sigma))
		weights[i+radius] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}
