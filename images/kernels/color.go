package kernels

// ColorMatrix is an affine transform on 8-bit RGB values. Each row produces one
// output channel from the input R, G, B plus a constant offset in 0-255 units.
//
// The constructors follow the CSS Filter Effects definitions of the filter
// functions of the same name, so a CSS filter chain can be reproduced by
// composing them with Then in declaration order.
type ColorMatrix [3][4]float32

// Identity returns the matrix that leaves colors unchanged.
func Identity() ColorMatrix {
	return ColorMatrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Contrast scales each channel around mid-gray: C' = (C - 127.5) * amount + 127.5.
func Contrast(amount float32) ColorMatrix {
	off := 255 * (0.5 - 0.5*amount)
	return ColorMatrix{
		{amount, 0, 0, off},
		{0, amount, 0, off},
		{0, 0, amount, off},
	}
}

// Brightness multiplies each channel: C' = C * amount.
func Brightness(amount float32) ColorMatrix {
	return ColorMatrix{
		{amount, 0, 0, 0},
		{0, amount, 0, 0},
		{0, 0, amount, 0},
	}
}

// Saturate scales saturation while preserving luminance (Rec. 709 weights).
func Saturate(s float32) ColorMatrix {
	return ColorMatrix{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s, 0},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s, 0},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s, 0},
	}
}

// Sepia mixes toward a sepia tone. amount is clamped to [0, 1].
func Sepia(amount float32) ColorMatrix {
	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	k := 1 - amount
	return ColorMatrix{
		{0.393 + 0.607*k, 0.769 - 0.769*k, 0.189 - 0.189*k, 0},
		{0.349 - 0.349*k, 0.686 + 0.314*k, 0.168 - 0.168*k, 0},
		{0.272 - 0.272*k, 0.534 - 0.534*k, 0.131 + 0.869*k, 0},
	}
}

// Then returns the matrix that applies m first and next afterwards.
func (m ColorMatrix) Then(next ColorMatrix) ColorMatrix {
	var out ColorMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = next[i][0]*m[0][j] + next[i][1]*m[1][j] + next[i][2]*m[2][j]
		}
		out[i][3] = next[i][0]*m[0][3] + next[i][1]*m[1][3] + next[i][2]*m[2][3] + next[i][3]
	}
	return out
}

// Apply transforms one RGB triple. The result is not clamped.
func (m ColorMatrix) Apply(r, g, b float32) (float32, float32, float32) {
	return m[0][0]*r + m[0][1]*g + m[0][2]*b + m[0][3],
		m[1][0]*r + m[1][1]*g + m[1][2]*b + m[1][3],
		m[2][0]*r + m[2][1]*g + m[2][2]*b + m[2][3]
}
