package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kashmir-agri/farmers-corner/diagnosis"
	"github.com/kashmir-agri/farmers-corner/preprocess"
)

// cropDiagnoser is the part of *diagnosis.Advisor the diagnose command uses.
type cropDiagnoser interface {
	AnalyzeCropDisease(ctx context.Context, photo []byte, lang diagnosis.Language) (*diagnosis.DiseaseAnalysis, error)
	ExpertReport(ctx context.Context, photo []byte, diseaseName string) (string, error)
}

type diagnoseFlags struct {
	in     string
	lang   string
	expert bool
	width  int
}

func newDiagnoseCmd(a *app) *cobra.Command {
	f := &diagnoseFlags{}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose a crop disease from a plant photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor, err := a.newAdvisor(cmd.Context())
			if err != nil {
				return err
			}
			return runDiagnose(cmd, advisor, f)
		},
	}

	cmd.Flags().StringVar(&f.in, "in", "", "plant photo (required)")
	cmd.Flags().StringVar(&f.lang, "lang", "en", "response language: en, ur or hi")
	cmd.Flags().BoolVar(&f.expert, "expert", false, "also request an expert markdown report")
	cmd.Flags().IntVar(&f.width, "width", 100, "word wrap width of the rendered report")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func (a *app) newAdvisor(ctx context.Context) (*diagnosis.Advisor, error) {
	pc, err := a.cfg.PreprocessConfig()
	if err != nil {
		return nil, err
	}
	return diagnosis.NewGeminiAdvisor(ctx, a.cfg.Gemini.APIKey,
		diagnosis.WithModels(a.cfg.Gemini.Model, a.cfg.Gemini.ExpertModel),
		diagnosis.WithTTSModel(a.cfg.Gemini.TTSModel),
		diagnosis.WithPreprocessor(preprocess.NewPreprocessor(pc, preprocess.WithLogger(a.logger))),
		diagnosis.WithLogger(a.logger),
	)
}

func runDiagnose(cmd *cobra.Command, d cropDiagnoser, f *diagnoseFlags) error {
	photo, err := os.ReadFile(f.in)
	if err != nil {
		return errors.Wrap(err, "input")
	}

	analysis, err := d.AnalyzeCropDisease(cmd.Context(), photo, diagnosis.ParseLanguage(f.lang))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(analysis); err != nil {
		return errors.Wrap(err, "write analysis")
	}

	if !f.expert {
		return nil
	}
	report, err := d.ExpertReport(cmd.Context(), photo, analysis.DiseaseName)
	if err != nil {
		return err
	}
	rendered, err := renderMarkdown(report, f.width)
	if err != nil {
		rendered = report
	}
	_, err = fmt.Fprintln(out, rendered)
	return err
}

func renderMarkdown(md string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
