// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("fairclause.review.evidence")

// DefaultRetrievalLimit caps each evidence list returned to the drafting
// stage.
const DefaultRetrievalLimit = 5

// RetrievalResult holds the two evidence lists a drafting prompt is built
// from. Both may be empty; an empty result is a caveat for the generator,
// not a failure.
type RetrievalResult struct {
	Cases []datatypes.EvidenceItem
	Laws  []datatypes.EvidenceItem
}

// Empty reports whether retrieval produced no usable evidence at all.
func (r RetrievalResult) Empty() bool {
	return len(r.Cases) == 0 && len(r.Laws) == 0
}

// =============================================================================
// Retriever
// =============================================================================

// Retriever shapes raw index queries into the evidence a review needs.
//
// # Description
//
//	A retrieval pass runs up to three queries. First, precedent cases
//	matching the violation type plus clause text, restricted to case
//	documents and filtered by the session's similarity threshold. If that
//	yields nothing, the same query is retried once without the document
//	type restriction. Finally, statute references collected from the case
//	metadata drive a follow-up query against law documents; when the cases
//	carry no references the original query text is reused.
type Retriever struct {
	searcher Searcher
	limit    int
}

// NewRetriever builds a retriever over the given searcher.
func NewRetriever(searcher Searcher) (*Retriever, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher must not be nil")
	}
	return &Retriever{searcher: searcher, limit: DefaultRetrievalLimit}, nil
}

// Retrieve gathers precedent cases and related statutes for an unfair
// clause. unfairType may be empty (fair-report path); threshold is the
// session's similarity floor in [0,1].
func (r *Retriever) Retrieve(ctx context.Context, unfairType, cleanedText string, threshold float64) (RetrievalResult, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("review.unfair_type", unfairType),
		attribute.Float64("review.similarity_threshold", threshold),
	)

	query := strings.TrimSpace(strings.TrimSpace(unfairType) + " " + cleanedText)

	cases, err := r.search(ctx, query, &SearchFilter{DocType: datatypes.EvidenceDocTypeCase}, threshold)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("case retrieval failed: %w", err)
	}
	if len(cases) == 0 {
		// The type filter can starve sparse indexes; retry once unfiltered.
		slog.Debug("No case documents above threshold, retrying without doc_type filter")
		cases, err = r.search(ctx, query, nil, threshold)
		if err != nil {
			return RetrievalResult{}, fmt.Errorf("fallback retrieval failed: %w", err)
		}
	}

	lawQuery := query
	if refs := datatypes.UnionRelatedLaws(cases); len(refs) > 0 {
		lawQuery = strings.Join(refs, " ")
	}
	laws, err := r.search(ctx, lawQuery, &SearchFilter{DocType: datatypes.EvidenceDocTypeLaw}, threshold)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("statute retrieval failed: %w", err)
	}

	span.SetAttributes(
		attribute.Int("review.cases_found", len(cases)),
		attribute.Int("review.laws_found", len(laws)),
	)
	if len(cases) == 0 && len(laws) == 0 {
		slog.Warn("Retrieval produced no evidence", "query_len", len(query))
	}
	return RetrievalResult{Cases: cases, Laws: laws}, nil
}

// search runs one index query and applies the similarity floor, keeping
// result order.
func (r *Retriever) search(ctx context.Context, query string, filter *SearchFilter, threshold float64) ([]datatypes.EvidenceItem, error) {
	items, err := r.searcher.Search(ctx, query, r.limit, filter)
	if err != nil {
		return nil, err
	}
	kept := items[:0]
	for _, item := range items {
		if item.Similarity >= threshold {
			kept = append(kept, item)
		}
	}
	if len(kept) > r.limit {
		kept = kept[:r.limit]
	}
	return kept, nil
}

// =============================================================================
// Degraded mode
// =============================================================================

// NoopSearcher satisfies Searcher when no vector index is configured.
// Every query returns no evidence, which downstream stages surface as a
// caveat in generated drafts.
type NoopSearcher struct{}

func (NoopSearcher) Search(context.Context, string, int, *SearchFilter) ([]datatypes.EvidenceItem, error) {
	return nil, nil
}
