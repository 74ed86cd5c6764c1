// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest turns raw contract text into individual clauses ready for
// review.
//
// Korean standard-form contracts number their articles 제1조, 제2조, …
// so article headings are the primary split boundary. Oversized articles
// are re-split with a recursive character splitter so no clause exceeds
// the retrieval-friendly chunk size.
package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// MaxClauseChars is the re-split bound for oversized articles.
	MaxClauseChars = 1000

	// ClauseOverlap is the character overlap between re-split chunks so
	// sentence context survives the cut.
	ClauseOverlap = 100

	// minClauseRunes drops fragments too short to be a reviewable clause,
	// matching the rule validator's minimum length.
	minClauseRunes = 20
)

var (
	// articleHeadingRe matches 제N조 article headings at line starts.
	articleHeadingRe = regexp.MustCompile(`(?m)^\s*제\s*\d+\s*조`)

	// pageNumberRe matches standalone page markers like "- 3 -" or "12".
	pageNumberRe = regexp.MustCompile(`(?m)^\s*(?:-\s*\d+\s*-|\d+)\s*$`)

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// CleanPageText removes extraction noise from a page of contract text:
// page-number lines and runs of blank lines.
func CleanPageText(text string) string {
	cleaned := pageNumberRe.ReplaceAllString(text, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// SplitClauses splits contract text into reviewable clauses.
//
// # Description
//
//	Text is cut at every 제N조 article heading; the run before the first
//	heading (title, parties) is kept only if it is long enough to review
//	on its own. Articles longer than MaxClauseChars are re-split
//	recursively with ClauseOverlap overlap. Fragments under the minimum
//	clause length are dropped.
func SplitClauses(text string) ([]string, error) {
	cleaned := CleanPageText(text)
	if cleaned == "" {
		return nil, nil
	}

	var clauses []string
	for _, segment := range splitAtHeadings(cleaned) {
		resplit, err := resplitOversized(segment)
		if err != nil {
			return nil, err
		}
		for _, clause := range resplit {
			clause = strings.TrimSpace(clause)
			if utf8.RuneCountInString(clause) >= minClauseRunes {
				clauses = append(clauses, clause)
			}
		}
	}
	return clauses, nil
}

// splitAtHeadings cuts the text at article heading positions. Each segment
// starts with its own heading except a possible preamble segment.
func splitAtHeadings(text string) []string {
	bounds := articleHeadingRe.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	var segments []string
	if bounds[0][0] > 0 {
		segments = append(segments, text[:bounds[0][0]])
	}
	for i, bound := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		segments = append(segments, text[bound[0]:end])
	}
	return segments
}

// resplitOversized passes long segments through the recursive splitter.
func resplitOversized(segment string) ([]string, error) {
	if utf8.RuneCountInString(segment) <= MaxClauseChars {
		return []string{segment}, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(MaxClauseChars),
		textsplitter.WithChunkOverlap(ClauseOverlap),
	)
	chunks, err := splitter.SplitText(segment)
	if err != nil {
		return nil, fmt.Errorf("re-split oversized clause: %w", err)
	}
	return chunks, nil
}
