package diagnosis

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kashmir-agri/farmers-corner/images"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// fakeGenerator replays queued answers and records every call. A queued
// response takes precedence over a queued answer at the same index.
type fakeGenerator struct {
	mu        sync.Mutex
	answers   []string
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     []generateCall
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: config})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) && f.responses[i] != nil {
		return f.responses[i], nil
	}
	text := ""
	if i < len(f.answers) {
		text = f.answers[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}, nil
}

func leafPhoto(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: uint8(100 + x%50), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func inlinePart(t *testing.T, call generateCall) *genai.Blob {
	t.Helper()
	require.Len(t, call.contents, 1)
	for _, p := range call.contents[0].Parts {
		if p.InlineData != nil {
			return p.InlineData
		}
	}
	t.Fatal("no inline image part")
	return nil
}

const diseaseJSON = `{
  "diseaseName": "Apple Scab (Venturia inaequalis)",
  "severity": "Medium",
  "confidence": 0.87,
  "description": "Olive-green lesions on the leaf surface.",
  "treatment": ["Remove fallen leaves", "Apply captan"],
  "preventiveMeasures": ["Prune for airflow"]
}`

func TestAnalyzeCropDisease(t *testing.T) {
	gen := &fakeGenerator{answers: []string{diseaseJSON}}
	advisor := NewAdvisor(gen)

	out, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 320, 240), Urdu)
	require.NoError(t, err)

	assert.Equal(t, "Apple Scab (Venturia inaequalis)", out.DiseaseName)
	assert.Equal(t, "Medium", out.Severity)
	assert.InDelta(t, 0.87, out.Confidence, 1e-9)
	assert.Equal(t, []string{"Remove fallen leaves", "Apply captan"}, out.Treatment)

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Equal(t, DefaultModel, call.model)
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	require.NotNil(t, call.config.ResponseSchema)
	assert.Contains(t, call.config.ResponseSchema.Required, "diseaseName")

	blob := inlinePart(t, call)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
	assert.Equal(t, images.FormatJPEG, images.DetectFormat(blob.Data))

	var prompt string
	for _, p := range call.contents[0].Parts {
		prompt += p.Text
	}
	assert.Contains(t, prompt, "Urdu")
}

func TestAnalyzeCropDiseaseDownscalesLargePhotos(t *testing.T) {
	gen := &fakeGenerator{answers: []string{diseaseJSON}}
	advisor := NewAdvisor(gen)

	_, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 2000, 1000), English)
	require.NoError(t, err)

	blob := inlinePart(t, gen.calls[0])
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(blob.Data))
	require.NoError(t, err)
	assert.Equal(t, 1400, cfg.Width)
	assert.Equal(t, 700, cfg.Height)
}

func TestAnalyzeCropDiseaseAcceptsDataURI(t *testing.T) {
	gen := &fakeGenerator{answers: []string{diseaseJSON}}
	advisor := NewAdvisor(gen)

	uri := images.DataURI("image/jpeg", leafPhoto(t, 64, 64))
	_, err := advisor.AnalyzeCropDisease(context.Background(), []byte(uri), English)
	require.NoError(t, err)

	blob := inlinePart(t, gen.calls[0])
	assert.Equal(t, images.FormatJPEG, images.DetectFormat(blob.Data))
}

func TestAnalyzeCropDiseaseStripsCodeFences(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"```json\n" + diseaseJSON + "\n```"}}
	advisor := NewAdvisor(gen)

	out, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 32, 32), English)
	require.NoError(t, err)
	assert.Equal(t, "Medium", out.Severity)
}

func TestAnalyzeCropDiseaseClampsConfidence(t *testing.T) {
	gen := &fakeGenerator{answers: []string{`{"diseaseName":"Healthy","severity":"Low","confidence":87}`}}
	advisor := NewAdvisor(gen)

	out, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 32, 32), English)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Confidence)
}

func TestAnalyzeCropDiseaseInvalidJSON(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"the leaf looks fine"}}
	advisor := NewAdvisor(gen)

	_, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 32, 32), English)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid json")
}

func TestAnalyzeCropDiseaseEmptyResponse(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"  "}}
	advisor := NewAdvisor(gen)

	_, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 32, 32), English)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestAnalyzeCropDiseaseRejectsNonImage(t *testing.T) {
	gen := &fakeGenerator{}
	advisor := NewAdvisor(gen)

	_, err := advisor.AnalyzeCropDisease(context.Background(), []byte("not an image!"), English)
	assert.True(t, errors.Is(err, ErrInvalidImage))
	assert.Empty(t, gen.calls)
}

func TestUndecodablePhotoIsSentUnchanged(t *testing.T) {
	gen := &fakeGenerator{answers: []string{diseaseJSON}}
	advisor := NewAdvisor(gen)

	// Valid base64 whose content is not a decodable image.
	_, err := advisor.AnalyzeCropDisease(context.Background(), []byte("AAECAwQFBgcICQ=="), English)
	require.NoError(t, err)

	blob := inlinePart(t, gen.calls[0])
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, blob.Data)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	gen := &fakeGenerator{
		errs:    []error{errors.New("503 unavailable"), nil},
		answers: []string{"", diseaseJSON},
	}
	advisor := NewAdvisor(gen, WithRetry(3, time.Millisecond))

	out, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 32, 32), English)
	require.NoError(t, err)
	assert.Equal(t, "Medium", out.Severity)
	assert.Len(t, gen.calls, 2)
}

func TestGenerateGivesUpAfterAttempts(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := &fakeGenerator{errs: []error{boom, boom}}
	advisor := NewAdvisor(gen, WithRetry(2, time.Millisecond))

	_, err := advisor.AnalyzeCropDisease(context.Background(), leafPhoto(t, 32, 32), English)
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Len(t, gen.calls, 2)
}

func TestExpertReport(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"# Apple Scab\n\nLife cycle..."}}
	advisor := NewAdvisor(gen, WithModels("", "expert-model"))

	report, err := advisor.ExpertReport(context.Background(), leafPhoto(t, 64, 64), "Apple Scab")
	require.NoError(t, err)
	assert.Equal(t, "# Apple Scab\n\nLife cycle...", report)

	call := gen.calls[0]
	assert.Equal(t, "expert-model", call.model)
	require.NotNil(t, call.config.ThinkingConfig)
	require.NotNil(t, call.config.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, int32(1000), *call.config.ThinkingConfig.ThinkingBudget)
}

func TestExpertReportSendsPhotoUnchanged(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"# Apple Scab"}}
	advisor := NewAdvisor(gen)

	photo := leafPhoto(t, 2000, 1000)
	_, err := advisor.ExpertReport(context.Background(), []byte(images.DataURI("image/jpeg", photo)), "Apple Scab")
	require.NoError(t, err)

	blob := inlinePart(t, gen.calls[0])
	assert.Equal(t, photo, blob.Data)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
}

func TestExpertReportUnavailable(t *testing.T) {
	gen := &fakeGenerator{answers: []string{""}}
	advisor := NewAdvisor(gen)

	report, err := advisor.ExpertReport(context.Background(), leafPhoto(t, 64, 64), "Apple Scab")
	require.NoError(t, err)
	assert.Equal(t, ExpertUnavailable, report)
}

func TestAnalyzeLivestock(t *testing.T) {
	gen := &fakeGenerator{answers: []string{`{"condition":"Mastitis","severity":"High","advice":"Call a vet","urduSummary":"..."}`}}
	advisor := NewAdvisor(gen)

	out, err := advisor.AnalyzeLivestock(context.Background(), leafPhoto(t, 64, 48), "")
	require.NoError(t, err)
	assert.Equal(t, "Mastitis", out.Condition)
	assert.Equal(t, "High", out.Severity)

	var prompt string
	for _, p := range gen.calls[0].contents[0].Parts {
		prompt += p.Text
	}
	assert.Contains(t, prompt, "cow")
}

func TestAnalyzeLivestockSendsPhotoUnchanged(t *testing.T) {
	gen := &fakeGenerator{answers: []string{`{"condition":"Healthy","severity":"Low","advice":"None"}`}}
	advisor := NewAdvisor(gen)

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 1600, 1200))
	require.NoError(t, png.Encode(&buf, img))

	_, err := advisor.AnalyzeLivestock(context.Background(), buf.Bytes(), "sheep")
	require.NoError(t, err)

	blob := inlinePart(t, gen.calls[0])
	assert.Equal(t, buf.Bytes(), blob.Data)
	assert.Equal(t, "image/png", blob.MIMEType)
}

func TestAnalyzeLivestockRejectsNonImage(t *testing.T) {
	gen := &fakeGenerator{}
	advisor := NewAdvisor(gen)

	_, err := advisor.AnalyzeLivestock(context.Background(), []byte("not an image!"), "cow")
	assert.True(t, errors.Is(err, ErrInvalidImage))
	assert.Empty(t, gen.calls)
}

func TestPredictYield(t *testing.T) {
	gen := &fakeGenerator{answers: []string{`{"estimatedYield":"12 tonnes","marketValue":"PKR 1.2M","riskFactors":["hail"]}`}}
	advisor := NewAdvisor(gen)

	out, err := advisor.PredictYield(context.Background(), YieldInput{LandSize: 2, Crop: "apple", Age: 8, Variety: "Ambri", Health: "good"})
	require.NoError(t, err)
	assert.Equal(t, "12 tonnes", out.EstimatedYield)
	assert.Equal(t, []string{"hail"}, out.RiskFactors)

	_, err = advisor.PredictYield(context.Background(), YieldInput{})
	assert.Error(t, err)
}

func hasSearchTool(config *genai.GenerateContentConfig) bool {
	for _, tool := range config.Tools {
		if tool.GoogleSearch != nil {
			return true
		}
	}
	return false
}

func hasMapsTool(config *genai.GenerateContentConfig) bool {
	for _, tool := range config.Tools {
		if tool.GoogleMaps != nil {
			return true
		}
	}
	return false
}

func promptText(call generateCall) string {
	var text string
	for _, c := range call.contents {
		for _, p := range c.Parts {
			text += p.Text
		}
	}
	return text
}

func TestDistrictWeather(t *testing.T) {
	gen := &fakeGenerator{answers: []string{`{"temperature":"14°C","condition":"Light rain","precipitation":"60%","forecast":"Showers till Friday","farmerTip":"Delay spraying"}`}}
	advisor := NewAdvisor(gen)

	out, err := advisor.DistrictWeather(context.Background(), " Baramulla ")
	require.NoError(t, err)
	assert.Equal(t, "14°C", out.Temperature)
	assert.Equal(t, "Delay spraying", out.FarmerTip)

	call := gen.calls[0]
	assert.Equal(t, DefaultModel, call.model)
	assert.True(t, hasSearchTool(call.config))
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	assert.Contains(t, call.config.ResponseSchema.Required, "farmerTip")
	assert.Contains(t, promptText(call), "Baramulla, J&K")

	_, err = advisor.DistrictWeather(context.Background(), "  ")
	assert.Error(t, err)
	assert.Len(t, gen.calls, 1)
}

func groundedResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:           &genai.Content{Parts: []*genai.Part{{Text: text}}},
			GroundingMetadata: &genai.GroundingMetadata{GroundingChunks: chunks},
		}},
	}
}

func TestNearbyMandis(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{groundedResponse(
		"Parimpora Fruit Mandi is 4 km away.",
		&genai.GroundingChunk{Maps: &genai.GroundingChunkMaps{Title: "Parimpora Fruit Mandi", URI: "https://maps.google.com/?cid=1"}},
		&genai.GroundingChunk{Web: &genai.GroundingChunkWeb{Title: "Mandi rates", URI: "https://example.org/rates"}},
		&genai.GroundingChunk{Maps: &genai.GroundingChunkMaps{Title: "Parimpora Fruit Mandi", URI: "https://maps.google.com/?cid=1"}},
		&genai.GroundingChunk{},
	)}}
	advisor := NewAdvisor(gen)

	out, err := advisor.NearbyMandis(context.Background(), 34.08, 74.79)
	require.NoError(t, err)
	assert.Equal(t, "Parimpora Fruit Mandi is 4 km away.", out.Text)
	assert.Equal(t, []Source{
		{Title: "Parimpora Fruit Mandi", URI: "https://maps.google.com/?cid=1"},
		{Title: "Mandi rates", URI: "https://example.org/rates"},
	}, out.Sources)

	call := gen.calls[0]
	assert.True(t, hasMapsTool(call.config))
	assert.True(t, hasSearchTool(call.config))
	require.NotNil(t, call.config.ToolConfig)
	latLng := call.config.ToolConfig.RetrievalConfig.LatLng
	assert.Equal(t, 34.08, *latLng.Latitude)
	assert.Equal(t, 74.79, *latLng.Longitude)
	assert.Contains(t, promptText(call), "Mandis near 34.08, 74.79")
}

func TestNearbyDealers(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Two dealers in Sopore."}}
	advisor := NewAdvisor(gen)

	out, err := advisor.NearbyDealers(context.Background(), 34.3, 74.47)
	require.NoError(t, err)
	assert.Equal(t, "Two dealers in Sopore.", out.Text)
	assert.Empty(t, out.Sources)

	call := gen.calls[0]
	assert.True(t, hasMapsTool(call.config))
	assert.False(t, hasSearchTool(call.config))
	assert.Contains(t, promptText(call), "pesticide dealers")
}

func TestNearbyPlacesRejectInvalidLocation(t *testing.T) {
	gen := &fakeGenerator{}
	advisor := NewAdvisor(gen)

	_, err := advisor.NearbyMandis(context.Background(), 91, 74)
	assert.True(t, errors.Is(err, ErrInvalidLocation))
	_, err = advisor.NearbyDealers(context.Background(), 34, -181)
	assert.True(t, errors.Is(err, ErrInvalidLocation))
	assert.Empty(t, gen.calls)
}

func TestNearbyPlacesEmptyResponse(t *testing.T) {
	gen := &fakeGenerator{answers: []string{""}}
	advisor := NewAdvisor(gen)

	_, err := advisor.NearbyDealers(context.Background(), 34, 74)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestExpertChat(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Spray captan after the rain stops."}}
	advisor := NewAdvisor(gen, WithModels("", "expert-model"))

	history := []ChatTurn{
		{Role: "user", Text: "My apple leaves have spots."},
		{Role: "model", Text: "Which variety?"},
		{Role: "farmer", Text: "Ambri."},
	}
	answer, err := advisor.ExpertChat(context.Background(), history, "What should I spray?", Urdu)
	require.NoError(t, err)
	assert.Equal(t, "Spray captan after the rain stops.", answer)

	call := gen.calls[0]
	assert.Equal(t, "expert-model", call.model)
	assert.True(t, hasSearchTool(call.config))
	require.NotNil(t, call.config.SystemInstruction)
	assert.Contains(t, call.config.SystemInstruction.Parts[0].Text, "Towseef Ahmad")
	assert.Contains(t, call.config.SystemInstruction.Parts[0].Text, "Urdu")

	require.Len(t, call.contents, 4)
	assert.Equal(t, string(genai.RoleUser), call.contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), call.contents[1].Role)
	assert.Equal(t, string(genai.RoleUser), call.contents[2].Role)
	assert.Equal(t, string(genai.RoleUser), call.contents[3].Role)
	assert.Equal(t, "What should I spray?", call.contents[3].Parts[0].Text)

	_, err = advisor.ExpertChat(context.Background(), history, " ", English)
	assert.Error(t, err)
}

func TestDiagnosisAudio(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: ""},
				{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: pcm}},
			}},
		}},
	}}}
	advisor := NewAdvisor(gen, WithTTSModel("tts-model"))

	audio, err := advisor.DiagnosisAudio(context.Background(), "Apple Scab")
	require.NoError(t, err)
	assert.Equal(t, pcm, audio.Data)
	assert.Equal(t, "audio/L16;codec=pcm;rate=24000", audio.MIMEType)

	call := gen.calls[0]
	assert.Equal(t, "tts-model", call.model)
	assert.Equal(t, []string{string(genai.ModalityAudio)}, call.config.ResponseModalities)
	assert.Equal(t, "Kore", call.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	assert.Contains(t, promptText(call), "hamein Apple Scab ki nishandahi")
}

func TestDiagnosisAudioWithoutSpeech(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"no audio here"}}
	advisor := NewAdvisor(gen)

	_, err := advisor.DiagnosisAudio(context.Background(), "Apple Scab")
	assert.True(t, errors.Is(err, ErrEmptyResponse))

	_, err = advisor.DiagnosisAudio(context.Background(), "")
	assert.Error(t, err)
	assert.Len(t, gen.calls, 1)
	assert.Equal(t, DefaultTTSModel, gen.calls[0].model)
}

func TestNewsTicker(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Snowfall in Gulmarg •\nDal Lake freezes", ""}}
	advisor := NewAdvisor(gen)

	text, err := advisor.NewsTicker(context.Background(), NewsKashmir)
	require.NoError(t, err)
	assert.Equal(t, "Snowfall in Gulmarg • Dal Lake freezes", text)
	assert.True(t, hasSearchTool(gen.calls[0].config))
	assert.Contains(t, promptText(gen.calls[0]), "Jammu and Kashmir")

	text, err = advisor.NewsTicker(context.Background(), NewsSports)
	require.NoError(t, err)
	assert.Equal(t, NewsUnavailable, text)

	_, err = advisor.NewsTicker(context.Background(), NewsCategory("weather"))
	assert.True(t, errors.Is(err, ErrUnknownCategory))
	assert.Len(t, gen.calls, 2)
}

func TestNewGeminiAdvisorRequiresKey(t *testing.T) {
	_, err := NewGeminiAdvisor(context.Background(), "  ")
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, Urdu, ParseLanguage("UR"))
	assert.Equal(t, Hindi, ParseLanguage(" hi "))
	assert.Equal(t, English, ParseLanguage("fr"))
	assert.Equal(t, English, ParseLanguage(""))
}
