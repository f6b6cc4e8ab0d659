package dropwatch

import (
	"path/filepath"
	"regexp"
	"strconv"
)

// weightRE matches "_250g" or "-12.5g"; the character after the g is checked separately.
var weightRE = regexp.MustCompile(`(?i)[_\-](\d+(?:\.\d+)?)g`)

// WeightFromName extracts the scale reading embedded in a file name such as
// "plate_250g.jpg". It returns def when the name carries no positive weight.
func WeightFromName(name string, def float64) float64 {
	base := filepath.Base(name)
	base = base[:len(base)-len(filepath.Ext(base))]
	found := ""
	for _, loc := range weightRE.FindAllStringSubmatchIndex(base, -1) {
		end := loc[1]
		if end < len(base) && base[end] != '_' && base[end] != '-' {
			continue // "_250grams", "_3gb"
		}
		// last match wins: "rice_2g_bowl_300g" was weighed at 300g
		found = base[loc[2]:loc[3]]
	}
	if found == "" {
		return def
	}
	v, err := strconv.ParseFloat(found, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
