package ocr

import (
	"strings"
	"unicode"
)

// words that show up on nutrition panels and ingredient lists
var labelWords = []string{"kcal", "energy", "protein", "fat", "carbohydrate", "sugar", "fibre", "fiber", "sodium", "ingredients", "serving", "nutrition"}

// snippet returns a shortened version of text for logging and prompts.
func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// normalizeOCRText collapses whitespace and replaces newlines/tabs.
func normalizeOCRText(t string) string {
	return strings.Join(strings.Fields(t), " ")
}

// looksLikeLabel filters tesseract noise from photos without printed text.
func looksLikeLabel(t string) bool {
	low := strings.ToLower(t)
	for _, w := range labelWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	words := 0
	for _, f := range strings.Fields(t) {
		letters := 0
		for _, r := range f {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if letters >= 3 {
			words++
		}
	}
	return words >= 4
}
