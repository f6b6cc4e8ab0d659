package models

// Caps on the suggestion lists kept in a stored analysis.
const (
	MaxHealthSuggestions = 4
	MaxDishSuggestions   = 3
)

// FallbackSuggestion is shown when the model output could not be used.
const FallbackSuggestion = "Unable to get detailed analysis; showing fallback values"

// Nutrition holds per-portion values for the submitted weight. All fields are
// whole numbers >= 0.
type Nutrition struct {
	Calories int64 `json:"calories"` // kcal
	Protein  int64 `json:"protein"`  // g
	Carbs    int64 `json:"carbs"`    // g
	Fat      int64 `json:"fat"`      // g
	Fiber    int64 `json:"fiber"`    // g
	GI       int64 `json:"GI"`       // glycemic index
	GL       int64 `json:"GL"`       // glycemic load
}

// AnalysisResult is the normalized nutrition estimate for one image.
type AnalysisResult struct {
	FoodType          string    `json:"foodType"`
	Confidence        float64   `json:"confidence"`
	Nutrition         Nutrition `json:"nutrition"`
	HealthSuggestions []string  `json:"healthSuggestions"`
	DishSuggestions   []string  `json:"dishSuggestions"`
}

// PlaceholderAnalysis is stored while the model call is still running.
func PlaceholderAnalysis() AnalysisResult {
	return AnalysisResult{
		FoodType:          "Processing",
		HealthSuggestions: []string{},
		DishSuggestions:   []string{},
	}
}

// FallbackAnalysis is the conservative result used when inference fails.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{
		FoodType:          "Unknown",
		Confidence:        0.5,
		HealthSuggestions: []string{FallbackSuggestion},
		DishSuggestions:   []string{},
	}
}
