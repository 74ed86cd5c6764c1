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

import (
	"context"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// LegalEvidenceClassName is the Weaviate class holding precedent cases and
// statute excerpts. Cases and laws share one class, distinguished by the
// doc_type property, so a single nearText query can serve both retrieval
// passes.
const LegalEvidenceClassName = "LegalEvidence"

// GetLegalEvidenceSchema returns the class definition for the evidence index.
func GetLegalEvidenceSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       LegalEvidenceClassName,
		Description: "Precedent cases and statute excerpts supporting clause review.",
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Case summary or statute excerpt text.",
				Tokenization: "word",
			},
			{
				Name:            "doc_type",
				DataType:        []string{"text"},
				Description:     "Entry kind: 'case' for precedent, 'law' for statute.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "source_file",
				DataType:        []string{"text"},
				Description:     "Originating statute or casebook file.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "related_laws",
				DataType:    []string{"text[]"},
				Description: "Statute references cited by a precedent case.",
			},
			{
				Name:            "case_no",
				DataType:        []string{"text"},
				Description:     "Docket or decision number for precedent cases.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// EnsureReviewSchema creates the evidence class if it does not exist yet.
// Schema creation failures are logged, not fatal: the service degrades to
// the explicit no-evidence path instead of refusing to start.
func EnsureReviewSchema(client *weaviate.Client) {
	if client == nil {
		return
	}
	ctx := context.Background()

	exists, err := client.Schema().ClassExistenceChecker().
		WithClassName(LegalEvidenceClassName).
		Do(ctx)
	if err != nil {
		slog.Warn("Failed to check evidence schema", "error", err)
		return
	}
	if exists {
		return
	}

	if err := client.Schema().ClassCreator().
		WithClass(GetLegalEvidenceSchema()).
		Do(ctx); err != nil {
		slog.Warn("Failed to create evidence schema", "error", err)
		return
	}
	slog.Info("Created Weaviate schema", "class", LegalEvidenceClassName)
}
