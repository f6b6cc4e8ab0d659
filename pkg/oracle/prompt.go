package oracle

import (
	"fmt"
	"strconv"
	"strings"
)

const analysisPrompt = `You are a nutrition analysis assistant.
Given an image of food and a weight of %s grams, identify the primary food item in the image and output nutrition for the given weight.

Return ONLY valid JSON in the following schema (no extra commentary):
{
  "foodType": string,
  "confidence": number, // 0..1
  "nutrition": {
    "calories": number, // kcal for the provided weight
    "protein": number,  // grams for the provided weight
    "carbs": number,    // grams for the provided weight
    "fat": number,      // grams for the provided weight
    "fiber": number,    // grams for the provided weight (if unknown, estimate or use 0)
    "GI": number,       // glycemic index of the food (0..100)
    "GL": number        // glycemic load for the provided weight
  },
  "healthSuggestions": string[], // 2-4 short bullet-like suggestions
  "dishSuggestions": string[]    // up to 3 dishes that use this food
}`

const labelHintPrompt = `

Text read from a label visible in the photo (may contain OCR errors, use it only if it is consistent with the image):
%s`

// BuildPrompt returns the user text sent along with the image.
func BuildPrompt(weight float64, labelText string) string {
	w := strconv.FormatFloat(weight, 'f', -1, 64)
	p := fmt.Sprintf(analysisPrompt, w)
	if s := strings.TrimSpace(labelText); s != "" {
		p += fmt.Sprintf(labelHintPrompt, s)
	}
	return p
}
