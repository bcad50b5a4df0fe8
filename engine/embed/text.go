package embed

import (
	"fmt"
	"strings"
)

// TextParts holds the normalized fields used to build embedding text.
// Absent parts are omitted from the output.
type TextParts struct {
	Brand       string
	Model       string
	Year        int
	Body        string
	Use         string
	Description string
	Features    []string
}

// BuildText assembles the structured embedding text:
//
//	"{brand} {model} [{year}] tipo {body} uso {use} {description} {features...}"
//
// Inputs are expected to be already normalized; BuildText only concatenates.
// An all-empty input yields "", which the Embedder substitutes with its
// placeholder before encoding.
func BuildText(p TextParts) string {
	var parts []string

	head := strings.TrimSpace(p.Brand + " " + p.Model)
	if head != "" {
		parts = append(parts, head)
	}
	if p.Year != 0 {
		parts = append(parts, fmt.Sprintf("[%d]", p.Year))
	}
	if p.Body != "" {
		parts = append(parts, "tipo "+p.Body)
	}
	if p.Use != "" {
		parts = append(parts, "uso "+p.Use)
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	parts = append(parts, p.Features...)

	return strings.Join(parts, " ")
}
