// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine runs the clause review state machine.
//
// The engine owns control flow only: validation, classification, retrieval,
// generation, persistence, and result logging are all ports injected at
// construction. Each session advances one stage at a time until it either
// suspends at the feedback point or reaches the terminal stage.
package engine

import (
	"context"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/evidence"
	"github.com/AleutianAI/FairClause/services/review/generate"
)

// ClauseValidator applies the rule-based input gate. The second return is a
// human-readable rejection reason, empty when the clause passes.
type ClauseValidator interface {
	Validate(clause string) (bool, string)
}

// Normalizer strips formatting noise from clause text. Must be
// deterministic and idempotent.
type Normalizer interface {
	Normalize(text string) string
}

// FairnessClassifier labels a clause fair or unfair with a confidence in
// [0,1]. An unparsable model response is returned as an unset label with
// zero confidence, not an error; errors are reserved for transport
// failures.
type FairnessClassifier interface {
	Classify(ctx context.Context, clause string) (datatypes.ClassifyResult, error)
}

// UnfairTypifier assigns an unfair clause one entry of the closed
// violation taxonomy.
type UnfairTypifier interface {
	Typify(ctx context.Context, clause string) (string, error)
}

// EvidenceSearcher gathers precedent and statute evidence for a clause.
type EvidenceSearcher interface {
	Retrieve(ctx context.Context, unfairType, cleanedText string, threshold float64) (evidence.RetrievalResult, error)
}

// DraftGenerator produces the reviewer-facing output text.
type DraftGenerator interface {
	DraftProposal(ctx context.Context, in generate.ProposalInput) (string, error)
	FairReport(ctx context.Context, clauseText string, ev evidence.RetrievalResult) (string, error)
}

// SessionStore persists session snapshots across the feedback suspension
// point. Load returns (nil, nil) when no snapshot exists for the ID.
type SessionStore interface {
	Save(ctx context.Context, state *datatypes.ReviewState) error
	Load(ctx context.Context, sessionID string) (*datatypes.ReviewState, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// ResultLogger appends review outcomes to the result sink. Append failures
// are logged and swallowed by the engine; they never abort a session.
type ResultLogger interface {
	Append(ctx context.Context, record datatypes.ResultRecord) error
}
