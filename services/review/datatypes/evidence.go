// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "sort"

// Evidence document types stored in the vector index.
const (
	EvidenceDocTypeCase = "case"
	EvidenceDocTypeLaw  = "law"
)

// EvidenceItem is one retrieved precedent case or statute excerpt.
type EvidenceItem struct {
	// Content is the indexed text of the case summary or statute excerpt.
	Content string `json:"content"`

	// Similarity is the relevance score in [0,1], descending within a
	// result list.
	Similarity float64 `json:"similarity"`

	// Metadata carries the index entry's properties (doc_type, source_file,
	// related_laws, case_no, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RelatedLaws extracts the statute references attached to an evidence item.
//
// The index stores them under the "related_laws" property, either as a
// []string or (after a JSON roundtrip) a []any of strings.
func (e EvidenceItem) RelatedLaws() []string {
	raw, ok := e.Metadata["related_laws"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// SourceFile returns the "source_file" metadata property, or empty.
func (e EvidenceItem) SourceFile() string {
	if s, ok := e.Metadata["source_file"].(string); ok {
		return s
	}
	return ""
}

// UnionRelatedLaws collects the distinct statute references across a case
// result list, in deterministic order.
func UnionRelatedLaws(cases []EvidenceItem) []string {
	seen := make(map[string]struct{})
	for _, c := range cases {
		for _, law := range c.RelatedLaws() {
			seen[law] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for law := range seen {
		out = append(out, law)
	}
	sort.Strings(out)
	return out
}
