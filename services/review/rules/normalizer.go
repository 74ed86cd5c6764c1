// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"regexp"
	"strings"
)

var (
	// Leading bullets and list dashes at the start of each line.
	leadingBulletRe = regexp.MustCompile(`(?m)^[\s•\-\*]+`)

	// Circled digits used for sub-clause numbering in Korean contracts.
	circledDigitRe = regexp.MustCompile(`[①②③④⑤⑥⑦⑧⑨⑩]\s*`)

	// Parenthesized numbering such as "(1) ".
	parenNumberRe = regexp.MustCompile(`\(\d+\)\s*`)

	// Any whitespace run, including newlines left by the markers above.
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalizer strips list markers and numbering noise from an accepted
// clause and collapses whitespace.
//
// Normalize is a pure function and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
type Normalizer struct{}

// NewNormalizer returns the deterministic clause normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize returns the cleaned clause text.
func (n *Normalizer) Normalize(text string) string {
	cleaned := leadingBulletRe.ReplaceAllString(text, "")
	cleaned = circledDigitRe.ReplaceAllString(cleaned, "")
	cleaned = parenNumberRe.ReplaceAllString(cleaned, "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
