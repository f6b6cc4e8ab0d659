// Package normalize turns the free-text reply of the vision model into a
// models.AnalysisResult. Every field is coerced here; nothing unchecked gets
// past this package.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"nutrivision/models"
)

// maxNutrient caps absurd model values before the int conversion.
const maxNutrient = 1_000_000

const defaultConfidence = 0.5

var fenceRE = regexp.MustCompile("(?is)```(?:json)?[ \\t]*\\r?\\n?(.*?)```")

// nutrition keys and the aliases models tend to use for them
var nutrientKeys = map[string][]string{
	"calories": {"calories", "kcal", "energy"},
	"protein":  {"protein"},
	"carbs":    {"carbs", "carbohydrates"},
	"fat":      {"fat"},
	"fiber":    {"fiber", "fibre"},
	"GI":       {"GI", "gi", "glycemicIndex", "glycemic_index"},
	"GL":       {"GL", "gl", "glycemicLoad", "glycemic_load"},
}

// Normalize parses raw model output and returns a sanitized analysis.
// It returns ErrUnparsable (or ErrMissingFields) when the text cannot be used.
func Normalize(raw string) (models.AnalysisResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	nut, ok := obj["nutrition"].(map[string]any)
	if !ok {
		return models.AnalysisResult{}, ErrMissingFields
	}

	res := models.AnalysisResult{
		FoodType:   foodType(obj["foodType"]),
		Confidence: confidence(obj["confidence"]),
		Nutrition: models.Nutrition{
			Calories: nutrient(nut, "calories"),
			Protein:  nutrient(nut, "protein"),
			Carbs:    nutrient(nut, "carbs"),
			Fat:      nutrient(nut, "fat"),
			Fiber:    nutrient(nut, "fiber"),
			GI:       nutrient(nut, "GI"),
			GL:       nutrient(nut, "GL"),
		},
		HealthSuggestions: stringList(obj["healthSuggestions"], models.MaxHealthSuggestions),
		DishSuggestions:   stringList(obj["dishSuggestions"], models.MaxDishSuggestions),
	}
	return res, nil
}

// ExtractJSON isolates the JSON text from a reply, unwrapping a fenced code
// block when present.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.Contains(text, "```") {
		if m := fenceRE.FindStringSubmatch(text); len(m) == 2 {
			text = strings.TrimSpace(m[1])
		}
	}
	return text
}

func decodeObject(raw string) (map[string]any, error) {
	text := ExtractJSON(raw)
	if obj, err := decodeStrict(text); err == nil {
		return obj, nil
	}
	// prose around the object: fall back to the outermost braces
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, ErrUnparsable
	}
	return decodeStrict(text[start : end+1])
}

func decodeStrict(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrUnparsable
	}
	// trailing garbage means we did not get a clean object
	if dec.More() {
		return nil, ErrUnparsable
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrUnparsable
	}
	return obj, nil
}

func foodType(v any) string {
	s := strings.TrimSpace(coerceString(v))
	if s == "" {
		return "Unknown"
	}
	return s
}

func confidence(v any) float64 {
	f, ok := number(v)
	if !ok {
		return defaultConfidence
	}
	return math.Max(0, math.Min(1, f))
}

func nutrient(nut map[string]any, key string) int64 {
	for _, alias := range nutrientKeys[key] {
		v, present := nut[alias]
		if !present {
			continue
		}
		f, ok := number(v)
		if !ok || f <= 0 {
			return 0
		}
		f = math.Round(f)
		if f > maxNutrient {
			return maxNutrient
		}
		return int64(f)
	}
	return 0
}

// number accepts JSON numbers and numeric strings; NaN and Inf are rejected.
func number(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringList(v any, limit int) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, coerceString(it))
	}
	return out
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(t); err != nil {
			return ""
		}
		return strings.TrimSpace(buf.String())
	}
}
