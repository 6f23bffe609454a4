// Package preprocess prepares user photos for remote image analysis.
//
// Every photo is bounded to a maximum dimension, given a single tonal
// adjustment pass, sharpened with a 3x3 kernel and re-encoded as JPEG. Input
// that cannot be decoded is returned unchanged.
package preprocess

import (
	"context"
	"encoding/base64"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kashmir-agri/farmers-corner/images"
	"github.com/kashmir-agri/farmers-corner/images/kernels"
)

// ErrDecode is returned by Process when the input is not a decodable image.
var ErrDecode = errors.New("image could not be decoded")

// Result contains the processed image and metadata about the call.
type Result struct {
	// Data is the output JPEG, or the untouched input when Fallback is set.
	Data []byte
	// SourceFormat is the format the input was decoded as.
	SourceFormat images.ImageFormat
	// OriginalWidth is the decoded input width.
	OriginalWidth int
	// OriginalHeight is the decoded input height.
	OriginalHeight int
	// Width is the output width.
	Width int
	// Height is the output height.
	Height int
	// Fallback is set when the input was passed through unprocessed.
	Fallback bool
}

// Image describes the encoded output. A fallback result reports the sniffed
// input format and no dimensions.
func (r *Result) Image() images.Image {
	if r.Fallback {
		return images.Image{Format: images.DetectFormat(r.Data), Data: r.Data}
	}
	return images.Image{Format: images.FormatJPEG, Data: r.Data, Width: r.Width, Height: r.Height}
}

// Preprocessor runs the pipeline with a fixed configuration. It holds no
// per-call state and is safe for concurrent use.
type Preprocessor struct {
	config Config
	logger *zap.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Preprocessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The pipeline configuration.
// - opts: Optional settings such as WithLogger.
//
// Returns:
// - A configured Preprocessor instance.
func NewPreprocessor(config Config, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the configuration of the preprocessor.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Process decodes, bounds, filters, sharpens and re-encodes one image.
//
// Accepted inputs are raw image bytes, a data:image/...;base64 URI, or bare
// base64 text (assumed JPEG).
//
// Arguments:
// - input: The encoded image.
//
// Returns:
// - The Result on success.
// - An error wrapping ErrDecode when the input is not an image, or an encode error.
//
// @example
// result, err := preprocessor.Process(photo)
//
//	if errors.Is(err, ErrDecode) {
//	    // send the original photo instead
//	}
func (p *Preprocessor) Process(input []byte) (*Result, error) {
	data, _, err := images.Unwrap(input)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}

	src, format, err := images.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}

	out := p.ProcessImage(src)

	encoded, err := images.EncodeJPEG(out, p.config.JPEGQuality)
	if err != nil {
		return nil, errors.Wrap(err, "output encoding failed")
	}

	return &Result{
		Data:           encoded,
		SourceFormat:   format,
		OriginalWidth:  src.Bounds().Dx(),
		OriginalHeight: src.Bounds().Dy(),
		Width:          out.Rect.Dx(),
		Height:         out.Rect.Dy(),
	}, nil
}

// ProcessImage runs the raster stages on a decoded image: bound to
// MaxDimension, the tonal pass, then the sharpening convolution.
//
// Arguments:
// - img: The decoded image. It is not modified.
//
// Returns:
// - A new *image.NRGBA owned by the caller.
func (p *Preprocessor) ProcessImage(img image.Image) *image.NRGBA {
	bounded := images.ResizeWithin(img, p.config.MaxDimension)

	tonal := p.config.Tonal
	tonal.Parallel = p.config.Parallel
	adjusted := kernels.Tonal(bounded, tonal)

	return kernels.Convolve3x3(adjusted, p.config.Kernel, kernels.ConvolveOptions{
		Border:   p.config.Border,
		Parallel: p.config.Parallel,
	})
}

// Run is Process with the fallback policy applied: any failure yields the
// original input unchanged and a Result with Fallback set.
func (p *Preprocessor) Run(input []byte) *Result {
	result, err := p.Process(input)
	if err != nil {
		p.logger.Debug("preprocessing skipped, passing input through",
			zap.Int("input_bytes", len(input)),
			zap.Error(err))
		return &Result{Data: input, Fallback: true}
	}
	return result
}

// Preprocess returns the processed JPEG bytes, or input unchanged when it
// cannot be processed.
func (p *Preprocessor) Preprocess(input []byte) []byte {
	return p.Run(input).Data
}

// PreprocessBase64 processes base64 text (optionally a data URI) and returns
// the output JPEG as bare base64 without a header. Undecodable input is
// returned unchanged.
func (p *Preprocessor) PreprocessBase64(s string) string {
	result, err := p.Process([]byte(s))
	if err != nil {
		p.logger.Debug("preprocessing skipped, passing base64 input through", zap.Error(err))
		return s
	}
	return base64.StdEncoding.EncodeToString(result.Data)
}

// Batch preprocesses independent inputs concurrently, at most concurrency at a
// time. Outputs are in input order and each follows the fallback policy.
//
// Arguments:
// - ctx: Cancels inputs that have not started yet.
// - inputs: The encoded images.
// - concurrency: Maximum calls in flight; values below one mean one.
//
// Returns:
// - The outputs, one per input.
// - The context error if ctx ended before all inputs were processed.
func (p *Preprocessor) Batch(ctx context.Context, inputs [][]byte, concurrency int) ([][]byte, error) {
	results, err := p.BatchResults(ctx, inputs, concurrency)
	if err != nil {
		return nil, err
	}
	outputs := make([][]byte, len(results))
	for i, r := range results {
		outputs[i] = r.Data
	}
	return outputs, nil
}

// BatchResults is Batch returning the full Result of every input, so callers
// can tell passthrough outputs apart.
func (p *Preprocessor) BatchResults(ctx context.Context, inputs [][]byte, concurrency int) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Run(input)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "batch preprocessing interrupted")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "batch preprocessing interrupted")
	}
	return results, nil
}

var defaultPreprocessor = NewPreprocessor(DefaultConfig())

// Preprocess runs the default pipeline on input, returning input unchanged
// when it cannot be decoded.
func Preprocess(input []byte) []byte {
	return defaultPreprocessor.Preprocess(input)
}

// PreprocessBase64 runs the default pipeline on base64 text.
func PreprocessBase64(s string) string {
	return defaultPreprocessor.PreprocessBase64(s)
}
