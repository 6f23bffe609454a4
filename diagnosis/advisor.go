// Package diagnosis is the client for the remote generative model that
// diagnoses crop and livestock photos and predicts yields.
package diagnosis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kashmir-agri/farmers-corner/images"
	"github.com/kashmir-agri/farmers-corner/preprocess"
)

// Default model names.
const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultExpertModel = "gemini-2.5-pro"
	DefaultTTSModel    = "gemini-2.5-flash-preview-tts"
)

const expertThinkingBudget = 1000

var (
	// ErrNoAPIKey is returned when a Gemini advisor is built without credentials.
	ErrNoAPIKey = errors.New("gemini api key is empty")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrInvalidImage is returned when the photo is neither an image nor base64 data.
	ErrInvalidImage = errors.New("photo is not usable image data")
	// ErrInvalidLocation is returned for coordinates outside the valid range.
	ErrInvalidLocation = errors.New("latitude or longitude out of range")
	// ErrUnknownCategory is returned for an unsupported news category.
	ErrUnknownCategory = errors.New("unknown news category")
)

// Generator is the subset of the genai models service the advisor calls.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Advisor sends preprocessed photos and prompts to the remote model and
// decodes its JSON answers.
type Advisor struct {
	gen          Generator
	preprocessor *preprocess.Preprocessor
	model        string
	expertModel  string
	ttsModel     string
	attempts     int
	retryDelay   time.Duration
	logger       *zap.Logger
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithModels overrides the fast and expert model names. Empty values keep the defaults.
func WithModels(model, expertModel string) Option {
	return func(a *Advisor) {
		if m := strings.TrimSpace(model); m != "" {
			a.model = m
		}
		if m := strings.TrimSpace(expertModel); m != "" {
			a.expertModel = m
		}
	}
}

// WithTTSModel overrides the speech model. An empty value keeps the default.
func WithTTSModel(model string) Option {
	return func(a *Advisor) {
		if m := strings.TrimSpace(model); m != "" {
			a.ttsModel = m
		}
	}
}

// WithPreprocessor sets the pipeline applied to photos before upload.
func WithPreprocessor(p *preprocess.Preprocessor) Option {
	return func(a *Advisor) {
		if p != nil {
			a.preprocessor = p
		}
	}
}

// WithRetry sets how many times a failed call is attempted and the pause between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(a *Advisor) {
		if attempts > 0 {
			a.attempts = attempts
		}
		a.retryDelay = delay
	}
}

// WithLogger sets the advisor logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Advisor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdvisor creates an advisor over any Generator.
func NewAdvisor(gen Generator, opts ...Option) *Advisor {
	a := &Advisor{
		gen:          gen,
		preprocessor: preprocess.NewPreprocessor(preprocess.DefaultConfig()),
		model:        DefaultModel,
		expertModel:  DefaultExpertModel,
		ttsModel:     DefaultTTSModel,
		attempts:     3,
		retryDelay:   500 * time.Millisecond,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewGeminiAdvisor creates an advisor backed by the Gemini API.
func NewGeminiAdvisor(ctx context.Context, apiKey string, opts ...Option) (*Advisor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return NewAdvisor(client.Models, opts...), nil
}

// TTSModel returns the speech model name.
func (a *Advisor) TTSModel() string { return a.ttsModel }

// Model returns the fast model name.
func (a *Advisor) Model() string { return a.model }

// ExpertModel returns the expert model name.
func (a *Advisor) ExpertModel() string { return a.expertModel }

// AnalyzeCropDisease preprocesses a plant photo and asks the model for a
// structured disease diagnosis in the given language.
func (a *Advisor) AnalyzeCropDisease(ctx context.Context, photo []byte, lang Language) (*DiseaseAnalysis, error) {
	part, err := a.imagePart(photo)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{part, genai.NewPartFromText(cropDiseasePrompt(lang))}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   diseaseSchema(),
	}

	var out DiseaseAnalysis
	if err := a.generateJSON(ctx, "crop_disease", a.model, contents, config, &out); err != nil {
		return nil, err
	}
	out.Confidence = clampUnit(out.Confidence)
	return &out, nil
}

// ExpertReport asks the expert model for a markdown report on a diagnosed
// disease. The photo is sent as supplied, without preprocessing. An empty
// answer yields ExpertUnavailable rather than an error.
func (a *Advisor) ExpertReport(ctx context.Context, photo []byte, diseaseName string) (string, error) {
	part, err := a.rawImagePart(photo)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{part, genai.NewPartFromText(expertPrompt(diseaseName))}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](expertThinkingBudget)},
	}

	text, err := a.generate(ctx, "expert_report", a.expertModel, contents, config)
	if errors.Is(err, ErrEmptyResponse) {
		return ExpertUnavailable, nil
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// AnalyzeLivestock asks for a health assessment of an animal photo, sent as
// supplied without preprocessing.
func (a *Advisor) AnalyzeLivestock(ctx context.Context, photo []byte, animalType string) (*LivestockAnalysis, error) {
	animalType = strings.TrimSpace(animalType)
	if animalType == "" {
		animalType = "cow"
	}
	part, err := a.rawImagePart(photo)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{part, genai.NewPartFromText(livestockPrompt(animalType))}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   livestockSchema(),
	}

	var out LivestockAnalysis
	if err := a.generateJSON(ctx, "livestock", a.model, contents, config, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictYield asks the model for a harvest estimate.
func (a *Advisor) PredictYield(ctx context.Context, in YieldInput) (*YieldPrediction, error) {
	if strings.TrimSpace(in.Crop) == "" {
		return nil, errors.New("crop is required")
	}

	contents := []*genai.Content{genai.NewContentFromText(yieldPrompt(in), genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   yieldSchema(),
	}

	var out YieldPrediction
	if err := a.generateJSON(ctx, "yield", a.model, contents, config, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DistrictWeather asks the model, grounded on web search, for current weather
// in a J&K district.
func (a *Advisor) DistrictWeather(ctx context.Context, district string) (*WeatherReport, error) {
	district = strings.TrimSpace(district)
	if district == "" {
		return nil, errors.New("district is required")
	}

	contents := []*genai.Content{genai.NewContentFromText(weatherPrompt(district), genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Tools:            []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ResponseMIMEType: "application/json",
		ResponseSchema:   weatherSchema(),
	}

	var out WeatherReport
	if err := a.generateJSON(ctx, "weather", a.model, contents, config, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NearbyMandis finds fruit and vegetable markets around a location using map
// and web search grounding.
func (a *Advisor) NearbyMandis(ctx context.Context, lat, lng float64) (*PlaceSearch, error) {
	tools := []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}, {GoogleSearch: &genai.GoogleSearch{}}}
	return a.searchPlaces(ctx, "mandis", mandiPrompt(lat, lng), lat, lng, tools)
}

// NearbyDealers finds pesticide dealers around a location using map grounding.
func (a *Advisor) NearbyDealers(ctx context.Context, lat, lng float64) (*PlaceSearch, error) {
	tools := []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}}
	return a.searchPlaces(ctx, "dealers", dealerPrompt(lat, lng), lat, lng, tools)
}

func (a *Advisor) searchPlaces(ctx context.Context, op, prompt string, lat, lng float64, tools []*genai.Tool) (*PlaceSearch, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, errors.Wrapf(ErrInvalidLocation, "%g, %g", lat, lng)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Tools: tools,
		ToolConfig: &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{Latitude: genai.Ptr(lat), Longitude: genai.Ptr(lng)},
			},
		},
	}

	resp, err := a.call(ctx, op, a.model, contents, config)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.Wrap(ErrEmptyResponse, op)
	}
	return &PlaceSearch{Text: text, Sources: groundingSources(resp)}, nil
}

// ExpertChat continues an advice conversation with the expert persona in the
// given language. Turns with a role other than "model" count as the farmer's.
func (a *Advisor) ExpertChat(ctx context.Context, history []ChatTurn, prompt string, lang Language) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is required")
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == string(genai.RoleModel) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(advisorInstruction(lang), genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	return a.generate(ctx, "expert_chat", a.expertModel, contents, config)
}

// DiagnosisAudio speaks an Urdu greeting naming the diagnosed disease.
func (a *Advisor) DiagnosisAudio(ctx context.Context, diseaseName string) (*Audio, error) {
	diseaseName = strings.TrimSpace(diseaseName)
	if diseaseName == "" {
		return nil, errors.New("disease name is required")
	}

	contents := []*genai.Content{genai.NewContentFromText(audioPrompt(diseaseName), genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: advisorVoice},
			},
		},
	}

	resp, err := a.call(ctx, "diagnosis_audio", a.ttsModel, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.Wrap(ErrEmptyResponse, "diagnosis_audio")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &Audio{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}, nil
		}
	}
	return nil, errors.Wrap(ErrEmptyResponse, "diagnosis_audio")
}

// NewsTicker returns five search-grounded headlines on one line, separated
// by bullets. An empty answer yields NewsUnavailable.
func (a *Advisor) NewsTicker(ctx context.Context, category NewsCategory) (string, error) {
	prompt, ok := newsPrompts[category]
	if !ok {
		return "", errors.Wrapf(ErrUnknownCategory, "%q", category)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	text, err := a.generate(ctx, "news", a.model, contents, config)
	if errors.Is(err, ErrEmptyResponse) {
		return NewsUnavailable, nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " ")), nil
}

// groundingSources lists the web and map pages of the first candidate's
// grounding metadata, skipping duplicates.
func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}

	var sources []Source
	seen := make(map[string]bool)
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil {
			continue
		}
		var src Source
		switch {
		case chunk.Maps != nil:
			src = Source{Title: chunk.Maps.Title, URI: chunk.Maps.URI}
		case chunk.Web != nil:
			src = Source{Title: chunk.Web.Title, URI: chunk.Web.URI}
		default:
			continue
		}
		if src.URI == "" || seen[src.URI] {
			continue
		}
		seen[src.URI] = true
		sources = append(sources, src)
	}
	return sources
}

// imagePart preprocesses photo into an inline JPEG part. Photos the pipeline
// cannot decode are sent as they are.
func (a *Advisor) imagePart(photo []byte) (*genai.Part, error) {
	result := a.preprocessor.Run(photo)
	if !result.Fallback {
		return genai.NewPartFromBytes(result.Data, images.FormatJPEG.MIME()), nil
	}
	a.logger.Warn("sending photo without preprocessing", zap.Int("bytes", len(photo)))
	return a.rawImagePart(photo)
}

// rawImagePart unwraps a data URI or base64 photo into an inline part without
// touching its pixels.
func (a *Advisor) rawImagePart(photo []byte) (*genai.Part, error) {
	data, mime, err := images.Unwrap(photo)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidImage, err.Error())
	}
	if f := images.DetectFormat(data); f != images.FormatUnknown {
		mime = f.MIME()
	}
	return genai.NewPartFromBytes(data, mime), nil
}

func (a *Advisor) generateJSON(ctx context.Context, op, model string, contents []*genai.Content, config *genai.GenerateContentConfig, out any) error {
	text, err := a.generate(ctx, op, model, contents, config)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFences(text)), out); err != nil {
		return errors.Wrapf(err, "%s: model returned invalid json", op)
	}
	return nil
}

// generate calls the model and returns its trimmed text.
func (a *Advisor) generate(ctx context.Context, op, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := a.call(ctx, op, model, contents, config)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.Wrap(ErrEmptyResponse, op)
	}
	return text, nil
}

// call invokes the model, retrying transport errors.
func (a *Advisor) call(ctx context.Context, op, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	logger := a.logger.With(zap.String("operation", op), zap.String("model", model))

	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		start := time.Now()
		resp, err := a.gen.GenerateContent(ctx, model, contents, config)
		if err == nil && resp != nil {
			logger.Debug("model call finished", zap.Int("attempt", attempt), zap.Duration("elapsed", time.Since(start)))
			return resp, nil
		}
		if err == nil {
			err = ErrEmptyResponse
		}

		lastErr = err
		logger.Warn("model call failed", zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil || attempt == a.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), op)
		case <-time.After(a.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, errors.Wrapf(lastErr, "%s: model call failed", op)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
