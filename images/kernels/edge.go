package kernels

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// EdgeMode selects the pixel read when the blur window leaves the image.
type EdgeMode int

const (
	EdgeClamp  EdgeMode = iota // nearest edge pixel
	EdgeMirror                 // reflection with the edge pixel repeated
	EdgeWrap                   // opposite side of the image
)

func (m EdgeMode) String() string {
	switch m {
	case EdgeClamp:
		return "clamp"
	case EdgeMirror:
		return "mirror"
	case EdgeWrap:
		return "wrap"
	default:
		return fmt.Sprintf("EdgeMode(%d)", int(m))
	}
}

// ParseEdgeMode maps a configuration value to an EdgeMode. Empty means clamp.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch s {
	case "", "clamp":
		return EdgeClamp, nil
	case "mirror":
		return EdgeMirror, nil
	case "wrap":
		return EdgeWrap, nil
	default:
		return EdgeClamp, errors.Errorf("unknown edge mode %q", s)
	}
}

// mapCoord folds i into [0, n).
func mapCoord(i, n int, mode EdgeMode) int {
	if i >= 0 && i < n {
		return i
	}
	if n <= 1 {
		return 0
	}

	switch mode {
	case EdgeWrap:
		return floorMod(i, n)
	case EdgeMirror:
		// One period of the mirrored signal is 2n samples long.
		m := floorMod(i, 2*n)
		if m >= n {
			return 2*n - 1 - m
		}
		return m
	default:
		return min(max(i, 0), n-1)
	}
}

func floorMod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// chooseChunk picks a work chunk size that balances overhead and cache locality.
func chooseChunk(n int) int {
	switch {
	case n >= 2048:
		return 128
	case n >= 512:
		return 64
	default:
		return 32
	}
}

// forRows runs rowTask for every y in [start, end), splitting the range into
// chunks across goroutines when parallel is set. It returns after all rows are done.
func forRows(start, end int, parallel bool, rowTask func(y int)) {
	n := end - start
	if n <= 0 {
		return
	}
	if !parallel || n < 4 {
		for y := start; y < end; y++ {
			rowTask(y)
		}
		return
	}

	chunk := chooseChunk(n)
	var wg sync.WaitGroup
	for s := start; s < end; s += chunk {
		e := s + chunk
		if e > end {
			e = end
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for y := s; y < e; y++ {
				rowTask(y)
			}
		}(s, e)
	}
	wg.Wait()
}

// clampByte rounds v to the nearest integer and clamps it into [0, 255].
func clampByte(v float32) uint8 {
	v = math32.Max(0, math32.Min(255, v))
	return uint8(v + 0.5)
}
