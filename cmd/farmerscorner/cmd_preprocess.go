package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kashmir-agri/farmers-corner/images/kernels"
	"github.com/kashmir-agri/farmers-corner/preprocess"
	"github.com/kashmir-agri/farmers-corner/util"
)

type preprocessFlags struct {
	in          string
	out         string
	asBase64    bool
	border      string
	edge        string
	concurrency int
}

func newPreprocessCmd(a *app) *cobra.Command {
	f := &preprocessFlags{}

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Bound, enhance and sharpen a photo or a directory of photos",
		Long: `Runs the preprocessing pipeline: downscale to the configured bound, a mild
blur with contrast, brightness, saturation and sepia adjustments, then a 3x3
sharpen, re-encoded as JPEG. Files that cannot be decoded are copied unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd, a, f)
		},
	}

	cmd.Flags().StringVar(&f.in, "in", "", "input image file or directory (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "output file or directory (required)")
	cmd.Flags().BoolVar(&f.asBase64, "base64", false, "write bare base64 text instead of JPEG bytes")
	cmd.Flags().StringVar(&f.border, "border", "", "border policy for the sharpen pass: zero or copy")
	cmd.Flags().StringVar(&f.edge, "edge", "", "edge mode for the blur: clamp, mirror or wrap")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", runtime.NumCPU(), "images processed at once for directory input")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runPreprocess(cmd *cobra.Command, a *app, f *preprocessFlags) error {
	pc, err := a.cfg.PreprocessConfig()
	if err != nil {
		return err
	}
	if f.border != "" {
		if pc.Border, err = kernels.ParseBorderPolicy(f.border); err != nil {
			return err
		}
	}
	if f.edge != "" {
		if pc.Tonal.Edge, err = kernels.ParseEdgeMode(f.edge); err != nil {
			return err
		}
	}
	p := preprocess.NewPreprocessor(pc, preprocess.WithLogger(a.logger))

	info, err := os.Stat(f.in)
	if err != nil {
		return errors.Wrap(err, "input")
	}
	if !info.IsDir() {
		data, err := os.ReadFile(f.in)
		if err != nil {
			return errors.Wrap(err, "input")
		}
		result := p.Run(data)
		a.logger.Info("preprocessed image",
			zap.String("input", f.in),
			zap.Bool("fallback", result.Fallback),
			zap.Int("width", result.Width),
			zap.Int("height", result.Height))
		return util.WriteFile(f.out, encodeOutput(result, f.asBase64))
	}

	files, err := util.LoadDirectoryImageFiles(f.in)
	if err != nil {
		return err
	}
	inputs := make([][]byte, len(files))
	for i, file := range files {
		inputs[i] = file.Data
	}

	results, err := p.BatchResults(cmd.Context(), inputs, f.concurrency)
	if err != nil {
		return err
	}
	skipped := 0
	for i, file := range files {
		name := util.OutputName(file.Name, f.asBase64)
		if results[i].Fallback {
			name = file.Name
			skipped++
		}
		if err := util.WriteFile(filepath.Join(f.out, name), encodeOutput(results[i], f.asBase64)); err != nil {
			return err
		}
	}
	a.logger.Info("preprocessed directory",
		zap.String("input", f.in),
		zap.Int("files", len(files)),
		zap.Int("copied_unchanged", skipped))
	return nil
}

// encodeOutput renders a result for writing. Passthrough data is written as
// it came in, whatever the output encoding.
func encodeOutput(result *preprocess.Result, asBase64 bool) []byte {
	if !asBase64 || result.Fallback {
		return result.Data
	}
	return []byte(base64.StdEncoding.EncodeToString(result.Data))
}
