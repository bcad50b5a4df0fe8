package normalize

import (
	"regexp"
	"strings"
)

// Feature is one categorical attribute tagged from normalized text.
type Feature struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

type featurePattern struct {
	re    *regexp.Regexp
	label string // empty means use the matched text as the label
}

type featureCategory struct {
	name     string
	patterns []featurePattern
}

// featureCategories is an ordered list; every pattern that matches contributes
// a label. Labels are not deduplicated across categories.
var featureCategories = []featureCategory{
	{"transmission", []featurePattern{
		{regexp.MustCompile(`\b(automatico|automatica|tiptronic|cvt|secuencial)\b`), "automatica"},
		{regexp.MustCompile(`\b(manual|estandar|mecanico|mecanica)\b`), "manual"},
	}},
	{"fuel", []featurePattern{
		{regexp.MustCompile(`\bdiesel\b`), "diesel"},
		{regexp.MustCompile(`\b(gasolina|nafta)\b`), "gasolina"},
		{regexp.MustCompile(`\bhibrido\b`), "hibrido"},
		{regexp.MustCompile(`\belectrico\b`), "electrico"},
		{regexp.MustCompile(`\b(gas lp|glp|gnc)\b`), "gas"},
	}},
	{"drivetrain", []featurePattern{
		{regexp.MustCompile(`\b(4x4|4wd|awd|traccion integral)\b`), "4x4"},
		{regexp.MustCompile(`\b(4x2|2wd|fwd|rwd)\b`), "4x2"},
	}},
	{"engine", []featurePattern{
		{regexp.MustCompile(`\b[vl]\d{1,2}\b`), ""},       // v6, v8, l4
		{regexp.MustCompile(`\b\d\.\d ?(l|lts?)?\b`), ""}, // 2.0, 3.5l
		{regexp.MustCompile(`\bturbo\b`), "turbo"},
	}},
	{"body", []featurePattern{
		{regexp.MustCompile(`\bsedan\b`), "sedan"},
		{regexp.MustCompile(`\bhatchback\b`), "hatchback"},
		{regexp.MustCompile(`\bsuv\b`), "suv"},
		{regexp.MustCompile(`\b(pickup|pick-up)\b`), "pickup"},
		{regexp.MustCompile(`\bcoupe\b`), "coupe"},
		{regexp.MustCompile(`\b(convertible|cabriolet)\b`), "convertible"},
		{regexp.MustCompile(`\b(van|minivan)\b`), "van"},
		{regexp.MustCompile(`\b(vagoneta|station wagon|wagon)\b`), "wagon"},
	}},
}

// ExtractFeatures tags categorical attributes from text. Input is normalized
// first (a no-op when already normalized). Duplicate labels within a category
// collapse; the same label may appear under multiple categories.
func (n *Normalizer) ExtractFeatures(s string) []Feature {
	text := n.Normalize(s)
	if text == "" {
		return nil
	}

	var out []Feature
	for _, cat := range featureCategories {
		seen := make(map[string]bool)
		for _, p := range cat.patterns {
			m := p.re.FindString(text)
			if m == "" {
				continue
			}
			label := p.label
			if label == "" {
				label = strings.TrimSpace(m)
			}
			if seen[label] {
				continue
			}
			seen[label] = true
			out = append(out, Feature{Category: cat.name, Label: label})
		}
	}
	return out
}

// FeatureLabels returns the labels of features in order, for embedding text.
func FeatureLabels(features []Feature) []string {
	labels := make([]string, len(features))
	for i, f := range features {
		labels[i] = f.Label
	}
	return labels
}
