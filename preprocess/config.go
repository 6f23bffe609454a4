package preprocess

import (
	"github.com/pkg/errors"

	"github.com/kashmir-agri/farmers-corner/images"
	"github.com/kashmir-agri/farmers-corner/images/kernels"
)

// DefaultMaxDimension bounds both sides of the output image.
const DefaultMaxDimension = 1400

// Config defines the preprocessing pipeline applied to diagnostic photos.
type Config struct {
	// MaxDimension is the largest allowed width or height of the output.
	MaxDimension int
	// JPEGQuality is the output JPEG quality (1-100).
	JPEGQuality int
	// Tonal configures the single-pass contrast/brightness/saturate/blur/sepia filter.
	Tonal kernels.TonalOptions
	// Kernel is the 3x3 sharpening kernel applied after the tonal pass.
	Kernel kernels.Kernel3x3
	// Border decides what the 1-pixel ring left by the convolution holds.
	Border kernels.BorderPolicy
	// Parallel splits the pixel passes across goroutines within one call.
	Parallel bool
}

// DefaultConfig returns the standard configuration for crop and livestock photos.
//
// Returns:
// - A Config with a 1400px bound, quality 90, the default tonal filter,
// the Sharpen kernel and a zero border.
//
// @example
// preprocessor := NewPreprocessor(DefaultConfig())
func DefaultConfig() Config {
	return Config{
		MaxDimension: DefaultMaxDimension,
		JPEGQuality:  images.DefaultJPEGQuality,
		Tonal:        kernels.DefaultTonalOptions(),
		Kernel:       kernels.Sharpen,
		Border:       kernels.BorderZero,
	}
}

// Validate reports configuration values the pipeline cannot honour.
func (c Config) Validate() error {
	if c.MaxDimension <= 0 {
		return errors.Errorf("max dimension must be positive, got %d", c.MaxDimension)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.Errorf("jpeg quality must be within 1-100, got %d", c.JPEGQuality)
	}
	if c.Border != kernels.BorderZero && c.Border != kernels.BorderCopy {
		return errors.Errorf("unknown border policy %s", c.Border)
	}
	if _, err := kernels.ParseEdgeMode(c.Tonal.Edge.String()); err != nil {
		return err
	}
	return nil
}
