// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence retrieves precedent cases and statute excerpts from the
// vector index for a clause under review.
//
// The package splits the concern in two: Searcher is the raw similarity
// query against one index (implemented by WeaviateSearcher), and Retriever
// is the review-specific shaping on top of it — threshold filtering, the
// unfiltered fallback pass, and the related-statute follow-up query.
package evidence

import (
	"context"
	"fmt"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// SearchFilter restricts a similarity query to one evidence document type.
type SearchFilter struct {
	// DocType is "case" or "law"; empty matches both.
	DocType string
}

// Searcher is a raw similarity query against the evidence index. Results
// are ordered by descending relevance with scores in [0,1].
type Searcher interface {
	Search(ctx context.Context, query string, k int, filter *SearchFilter) ([]datatypes.EvidenceItem, error)
}

// =============================================================================
// Weaviate implementation
// =============================================================================

// WeaviateSearcher implements Searcher over the LegalEvidence class.
type WeaviateSearcher struct {
	client    *weaviate.Client
	className string
}

// NewWeaviateSearcher creates a searcher over the given client.
func NewWeaviateSearcher(client *weaviate.Client) (*WeaviateSearcher, error) {
	if client == nil {
		return nil, fmt.Errorf("weaviate client must not be nil")
	}
	return &WeaviateSearcher{
		client:    client,
		className: datatypes.LegalEvidenceClassName,
	}, nil
}

// Search runs a nearText query, optionally filtered by document type.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, k int, filter *SearchFilter) ([]datatypes.EvidenceItem, error) {
	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "doc_type"},
		{Name: "source_file"},
		{Name: "related_laws"},
		{Name: "case_no"},
		{Name: "_additional { certainty }"},
	}

	builder := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(k)

	if filter != nil && filter.DocType != "" {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"doc_type"}).
			WithOperator(filters.Equal).
			WithValueString(filter.DocType))
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("evidence search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("evidence search error: %s", result.Errors[0].Message)
	}

	return s.parseResults(result)
}

// parseResults unpacks the GraphQL response into evidence items, keeping
// index order (descending relevance).
func (s *WeaviateSearcher) parseResults(result *models.GraphQLResponse) ([]datatypes.EvidenceItem, error) {
	get, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected GraphQL response: missing Get block")
	}
	rows, ok := get[s.className].([]any)
	if !ok {
		// A class with no matches comes back as null.
		return nil, nil
	}

	items := make([]datatypes.EvidenceItem, 0, len(rows))
	for _, row := range rows {
		props, ok := row.(map[string]any)
		if !ok {
			continue
		}

		item := datatypes.EvidenceItem{
			Metadata: make(map[string]any, len(props)),
		}
		for key, value := range props {
			switch key {
			case "content":
				if content, ok := value.(string); ok {
					item.Content = content
				}
			case "_additional":
				if additional, ok := value.(map[string]any); ok {
					if certainty, ok := additional["certainty"].(float64); ok {
						item.Similarity = certainty
					}
				}
			default:
				if value != nil {
					item.Metadata[key] = value
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}
