package diagnosis

import (
	"fmt"

	"google.golang.org/genai"
)

// Fixed texts returned when the model produces nothing.
const (
	ExpertUnavailable = "Expert analysis currently unavailable."
	NewsUnavailable   = "News updates currently unavailable."
)

const advisorVoice = "Kore"

func languageInstruction(lang Language) string {
	switch lang {
	case Urdu:
		return "Provide response in Urdu script."
	case Hindi:
		return "Provide response in Hindi script."
	default:
		return "Provide response in English."
	}
}

func cropDiseasePrompt(lang Language) string {
	return fmt.Sprintf(`Act as a world-class senior plant pathologist from SKUAST-K Kashmir.
The provided image has been preprocessed to reveal high-frequency textures.
Analyze this plant image for agricultural diseases specific to the Kashmir Valley.
%s
Provide details in strict JSON format:
{
  "diseaseName": "Scientific and common name",
  "severity": "Low/Medium/High",
  "confidence": 0.0 to 1.0,
  "description": "Detailed clinical signs observed",
  "treatment": ["List of specific SKUAST-K approved chemical or organic remedies"],
  "preventiveMeasures": ["Specific cultural practices"]
}`, languageInstruction(lang))
}

func expertPrompt(diseaseName string) string {
	return fmt.Sprintf("You are a world-class AI Agricultural Scientist. The diagnosis identified this as %s. "+
		"Provide an advanced report with bio-cycle, triggers, and long-term management. Markdown format.", diseaseName)
}

func livestockPrompt(animalType string) string {
	return fmt.Sprintf("Analyze livestock health for a %s in J&K. JSON format.", animalType)
}

func yieldPrompt(in YieldInput) string {
	return fmt.Sprintf("Predict harvest yield for %s (variety %s, %d years old, %.1f kanals, health: %s) in Kashmir. JSON format.",
		in.Crop, in.Variety, in.Age, in.LandSize, in.Health)
}

func weatherPrompt(district string) string {
	return fmt.Sprintf("Retrieve current weather for %s, J&K. JSON format.", district)
}

func mandiPrompt(lat, lng float64) string {
	return fmt.Sprintf("Find Fruit and Vegetable Mandis near %g, %g in Kashmir.", lat, lng)
}

func dealerPrompt(lat, lng float64) string {
	return fmt.Sprintf("Find pesticide dealers near %g, %g in Kashmir.", lat, lng)
}

func advisorInstruction(lang Language) string {
	var speak string
	switch lang {
	case Urdu:
		speak = "Speak and write primarily in Urdu (اردو)."
	case Hindi:
		speak = "Speak and write primarily in Hindi (हिंदी)."
	default:
		speak = "Speak and write primarily in English."
	}
	return "You are 'Towseef Ahmad', a world-class agricultural expert specializing in the Kashmir Valley.\n" +
		speak + "\n" +
		"Your advice is strictly localized to the temperate climate of Jammu & Kashmir and must align with SKUAST-K guidelines.\n" +
		"Use a polite, fatherly, and professional tone."
}

func audioPrompt(diseaseName string) string {
	return fmt.Sprintf("As a friendly female agricultural expert from Kashmir, speak the following diagnosis in clear Urdu.\n"+
		"Start with: \"As-salamu alaykum. Aap ki fasal ka mushahida karne ke baad, hamein %s ki nishandahi hui hai.\"", diseaseName)
}

var newsPrompts = map[NewsCategory]string{
	NewsKashmir: "List 5 latest breaking news headlines from Jammu and Kashmir (Greater Kashmir, Rising Kashmir, Daily Excelsior). Format as short sentences separated by ' • '.",
	NewsSports:  "List 5 latest sports headlines focused on Cricket (IPL, International, JKCA). Format as short sentences separated by ' • '.",
	NewsLatest:  "List 5 top global news headlines from the last 6 hours. Format as short sentences separated by ' • '.",
}

func weatherSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"temperature":   stringSchema(),
			"condition":     stringSchema(),
			"precipitation": stringSchema(),
			"humidity":      stringSchema(),
			"windSpeed":     stringSchema(),
			"forecast":      stringSchema(),
			"farmerTip":     stringSchema(),
			"urduSummary":   stringSchema(),
		},
		Required: []string{"temperature", "condition", "precipitation", "forecast", "farmerTip"},
	}
}

func stringSchema() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func stringListSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: stringSchema()}
}

func diseaseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"diseaseName":        stringSchema(),
			"severity":           stringSchema(),
			"confidence":         {Type: genai.TypeNumber},
			"description":        stringSchema(),
			"treatment":          stringListSchema(),
			"preventiveMeasures": stringListSchema(),
		},
		Required: []string{"diseaseName", "severity", "confidence", "description", "treatment", "preventiveMeasures"},
	}
}

func livestockSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"condition":   stringSchema(),
			"severity":    stringSchema(),
			"advice":      stringSchema(),
			"urduSummary": stringSchema(),
		},
		Required: []string{"condition", "severity", "advice", "urduSummary"},
	}
}

func yieldSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"estimatedYield": stringSchema(),
			"marketValue":    stringSchema(),
			"riskFactors":    stringListSchema(),
		},
		Required: []string{"estimatedYield", "marketValue", "riskFactors"},
	}
}
