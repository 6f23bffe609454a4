package diagnosis

import "strings"

// Language selects the response language of the model.
type Language string

const (
	English Language = "en"
	Urdu    Language = "ur"
	Hindi   Language = "hi"
)

// ParseLanguage maps a language code to a Language. Unknown codes fall back to English.
func ParseLanguage(code string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case Urdu:
		return Urdu
	case Hindi:
		return Hindi
	default:
		return English
	}
}

// DiseaseAnalysis is the structured crop disease diagnosis returned by the model.
type DiseaseAnalysis struct {
	DiseaseName        string   `json:"diseaseName"`
	Severity           string   `json:"severity"`
	Confidence         float64  `json:"confidence"`
	Description        string   `json:"description"`
	Treatment          []string `json:"treatment"`
	PreventiveMeasures []string `json:"preventiveMeasures"`
}

// LivestockAnalysis is the structured animal health assessment returned by the model.
type LivestockAnalysis struct {
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Advice      string `json:"advice"`
	UrduSummary string `json:"urduSummary"`
}

// YieldInput describes an orchard or field for yield prediction.
type YieldInput struct {
	LandSize float64 `json:"landSize"`
	Crop     string  `json:"crop"`
	Age      int     `json:"age"`
	Variety  string  `json:"variety"`
	Health   string  `json:"health"`
}

// YieldPrediction is the model's harvest estimate.
type YieldPrediction struct {
	EstimatedYield string   `json:"estimatedYield"`
	MarketValue    string   `json:"marketValue"`
	RiskFactors    []string `json:"riskFactors"`
}

// WeatherReport is the model's synthesis of current district weather.
type WeatherReport struct {
	Temperature   string `json:"temperature"`
	Condition     string `json:"condition"`
	Precipitation string `json:"precipitation"`
	Humidity      string `json:"humidity,omitempty"`
	WindSpeed     string `json:"windSpeed,omitempty"`
	Forecast      string `json:"forecast"`
	FarmerTip     string `json:"farmerTip"`
	UrduSummary   string `json:"urduSummary,omitempty"`
}

// Source is a web or map page the model grounded an answer on.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// PlaceSearch is a free-text answer about nearby places plus its sources.
type PlaceSearch struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// ChatTurn is one earlier message of an advice conversation. Role is "user"
// or "model".
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Audio is speech returned by the model.
type Audio struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// NewsCategory selects a headline feed.
type NewsCategory string

const (
	NewsKashmir NewsCategory = "kashmir"
	NewsSports  NewsCategory = "sports"
	NewsLatest  NewsCategory = "latest"
)
