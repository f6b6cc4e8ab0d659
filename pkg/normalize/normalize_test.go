package normalize

import (
	"errors"
	"testing"
)

func TestNormalizeFencedBlock(t *testing.T) {
	raw := "Here you go:\n```json\n" + `{
  "foodType": "Grilled chicken",
  "confidence": 0.82,
  "nutrition": {"calories": 412.6, "protein": 52, "carbs": 0, "fat": 21.4, "fiber": 0, "GI": 0, "GL": 0},
  "healthSuggestions": ["Pair with vegetables", "Watch the sodium"],
  "dishSuggestions": ["Caesar salad"]
}` + "\n```\nEnjoy!"
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FoodType != "Grilled chicken" || res.Confidence != 0.82 {
		t.Fatalf("unexpected header fields: %+v", res)
	}
	if res.Nutrition.Calories != 413 || res.Nutrition.Fat != 21 || res.Nutrition.Protein != 52 {
		t.Fatalf("unexpected nutrition: %+v", res.Nutrition)
	}
	if len(res.HealthSuggestions) != 2 || len(res.DishSuggestions) != 1 {
		t.Fatalf("unexpected suggestions: %+v", res)
	}
}

func TestNormalizeCoercesBadValues(t *testing.T) {
	raw := `{
  "foodType": 12,
  "confidence": 7,
  "nutrition": {"calories": "250", "protein": -4, "carbs": "lots", "fat": null, "gi": 55, "glycemic_load": 12.5},
  "healthSuggestions": ["a", 2, true, null, {"x": 1}, "f"],
  "dishSuggestions": "not a list"
}`
	res, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FoodType != "12" {
		t.Fatalf("foodType not coerced: %q", res.FoodType)
	}
	if res.Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", res.Confidence)
	}
	n := res.Nutrition
	if n.Calories != 250 || n.Protein != 0 || n.Carbs != 0 || n.Fat != 0 || n.Fiber != 0 {
		t.Fatalf("unexpected nutrition: %+v", n)
	}
	if n.GI != 55 || n.GL != 13 {
		t.Fatalf("aliases not honoured: %+v", n)
	}
	want := []string{"a", "2", "true", ""}
	if len(res.HealthSuggestions) != len(want) {
		t.Fatalf("health suggestions not truncated: %v", res.HealthSuggestions)
	}
	for i := range want {
		if res.HealthSuggestions[i] != want[i] {
			t.Fatalf("suggestion %d = %q want %q", i, res.HealthSuggestions[i], want[i])
		}
	}
	if res.DishSuggestions == nil || len(res.DishSuggestions) != 0 {
		t.Fatalf("dish suggestions should default to empty: %v", res.DishSuggestions)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	res, err := Normalize(`{"nutrition": {}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FoodType != "Unknown" || res.Confidence != 0.5 {
		t.Fatalf("unexpected defaults: %+v", res)
	}
	if res.HealthSuggestions == nil || res.DishSuggestions == nil {
		t.Fatalf("lists must not be nil")
	}
}

func TestNormalizeConfidenceBounds(t *testing.T) {
	cases := map[string]float64{
		`{"confidence": -1, "nutrition": {}}`:    0,
		`{"confidence": "0.3", "nutrition": {}}`: 0.3,
		`{"confidence": "high", "nutrition": {}}`: 0.5,
	}
	for raw, want := range cases {
		res, err := Normalize(raw)
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if res.Confidence != want {
			t.Fatalf("%s: confidence %v want %v", raw, res.Confidence, want)
		}
	}
}

func TestNormalizeDishCap(t *testing.T) {
	res, err := Normalize(`{"nutrition": {"calories": 1e12}, "dishSuggestions": ["a","b","c","d","e"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.DishSuggestions) != 3 {
		t.Fatalf("dish suggestions not capped: %v", res.DishSuggestions)
	}
	if res.Nutrition.Calories != maxNutrient {
		t.Fatalf("calories not capped: %d", res.Nutrition.Calories)
	}
}

func TestNormalizeProseAroundObject(t *testing.T) {
	res, err := Normalize(`Sure! {"foodType": "rice", "nutrition": {"carbs": 45}} Hope this helps.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FoodType != "rice" || res.Nutrition.Carbs != 45 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot identify this food.",
		"```\nnot json\n```",
		`["a", "b"]`,
		`{"foodType": "x", "nutrition": `,
	} {
		if _, err := Normalize(raw); !errors.Is(err, ErrUnparsable) {
			t.Fatalf("%q: expected ErrUnparsable got %v", raw, err)
		}
	}
}

func TestNormalizeMissingNutrition(t *testing.T) {
	_, err := Normalize(`{"foodType": "soup", "confidence": 0.9}`)
	if !errors.Is(err, ErrMissingFields) || !errors.Is(err, ErrUnparsable) {
		t.Fatalf("expected ErrMissingFields got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	got := ExtractJSON("```JSON\n{\"a\":1}\n```")
	if got != `{"a":1}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
	if got := ExtractJSON("  {\"a\":1}  "); got != `{"a":1}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}
