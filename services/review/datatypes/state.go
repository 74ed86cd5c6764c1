// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the data model for the clause review pipeline.
//
// The central type is ReviewState: the single mutable record threaded
// through every stage of a review session. A ReviewState is created per
// submitted clause, owned exclusively by its session, and persisted as a
// versioned snapshot at the human-feedback suspension point.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

// MaxIterations bounds the number of proposal/feedback cycles per session.
const MaxIterations = 3

// DefaultSimilarityThreshold is the retrieval relevance cutoff used when the
// caller does not supply one.
const DefaultSimilarityThreshold = 0.5

// =============================================================================
// Enumerations
// =============================================================================

// Stage identifies a position in the review state machine.
//
// Stages are persisted inside session snapshots, so their string values are
// part of the snapshot schema and must stay stable across releases.
type Stage string

const (
	StageClean              Stage = "clean"
	StageFairnessClassify   Stage = "fairness_classify"
	StageTypify             Stage = "typify"
	StageRetrieve           Stage = "retrieve"
	StageGenerateProposal   Stage = "generate_proposal"
	StageGenerateFairReport Stage = "generate_fair_report"
	StageAwaitFeedback      Stage = "await_feedback"
	StageProcessFeedback    Stage = "process_feedback"
	StageTerminal           Stage = "terminal"
)

// Terminal reports whether the stage is the absorbing end state.
func (s Stage) Terminal() bool {
	return s == StageTerminal
}

// Suspended reports whether the stage yields control to an external caller.
func (s Stage) Suspended() bool {
	return s == StageAwaitFeedback
}

// FairnessLabel is the binary fairness classification of a clause.
type FairnessLabel string

const (
	FairnessUnset  FairnessLabel = ""
	FairnessFair   FairnessLabel = "fair"
	FairnessUnfair FairnessLabel = "unfair"
)

// FeedbackDecision is the human reviewer's verdict on a proposal.
type FeedbackDecision string

const (
	FeedbackUnset    FeedbackDecision = ""
	FeedbackApproved FeedbackDecision = "approved"
	FeedbackRejected FeedbackDecision = "rejected"
	FeedbackModify   FeedbackDecision = "modify"
)

// RetryAction is the sub-decision accompanying a rejected verdict.
type RetryAction string

const (
	RetryActionUnset   RetryAction = ""
	RetryActionRetry   RetryAction = "retry"
	RetryActionDiscard RetryAction = "discard"
)

// =============================================================================
// Classification history
// =============================================================================

// ClassifyResult records one fairness classification attempt.
type ClassifyResult struct {
	Label      FairnessLabel `json:"label"`
	Confidence float64       `json:"confidence"`
}

// =============================================================================
// ReviewState
// =============================================================================

// ReviewState is the mutable record for one review session.
//
// # Ownership
//
// A ReviewState is exclusively owned by its session. The engine mutates it
// in place between suspension points; no two goroutines ever share one.
//
// # Invariants
//
//   - Iteration never exceeds MaxIterations.
//   - UnfairType and unfair-path proposals exist only when
//     FairnessLabel == FairnessUnfair; the fair report only when fair.
//   - ValidationFailed == true implies no downstream field is populated.
type ReviewState struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Current   Stage     `json:"current_stage"`

	// Input. Clause is immutable once set; CleanedText is set once by the
	// normalizer.
	Clause      string `json:"clause"`
	CleanedText string `json:"cleaned_text,omitempty"`

	// Rule-based validation outcome. Once ValidationFailed is true the
	// session is terminal and nothing below is ever populated.
	ValidationFailed bool   `json:"validation_failed"`
	ValidationReason string `json:"validation_reason,omitempty"`

	// Fairness classification outcome and bounded retry bookkeeping.
	FairnessLabel      FairnessLabel    `json:"fairness_label,omitempty"`
	FairnessConfidence float64          `json:"fairness_confidence,omitempty"`
	FairnessRetryCount int              `json:"fairness_retry_count,omitempty"`
	ResultsHistory     []ClassifyResult `json:"results_history,omitempty"`

	// Violation taxonomy entry, unfair clauses only.
	UnfairType string `json:"unfair_type,omitempty"`

	// Retrieved evidence, each list capped at the retrieval limit.
	RetrievedCases      []EvidenceItem `json:"retrieved_cases,omitempty"`
	RetrievedLaws       []EvidenceItem `json:"retrieved_laws,omitempty"`
	SimilarityThreshold float64        `json:"similarity_threshold"`

	// Latest generated draft (unfair path) or fairness report (fair path).
	Proposal string `json:"proposal,omitempty"`

	// Feedback-loop bookkeeping.
	Iteration    int              `json:"iteration"`
	UserFeedback FeedbackDecision `json:"user_feedback,omitempty"`
	RetryAction  RetryAction      `json:"retry_action,omitempty"`
	ModifyReason string           `json:"modify_reason,omitempty"`
}

// NewReviewState creates the state for a fresh session.
//
// The session starts at StageClean with Iteration 1 and a generated
// session ID. A non-positive threshold falls back to the default.
func NewReviewState(clause string, similarityThreshold float64) *ReviewState {
	if similarityThreshold <= 0 || similarityThreshold > 1 {
		similarityThreshold = DefaultSimilarityThreshold
	}
	return &ReviewState{
		SessionID:           uuid.NewString(),
		CreatedAt:           time.Now().UTC(),
		Current:             StageClean,
		Clause:              clause,
		SimilarityThreshold: similarityThreshold,
		Iteration:           1,
	}
}

// BestFairnessResult returns the most confident classification seen so far.
//
// Used when the retry cap is exhausted without a confident label. Ties keep
// the earliest attempt. The boolean is false when the history is empty or
// holds only unparsable attempts, in which case callers fall back to the
// conservative unfair default.
func (s *ReviewState) BestFairnessResult() (ClassifyResult, bool) {
	best := ClassifyResult{}
	found := false
	for _, r := range s.ResultsHistory {
		if r.Label != FairnessFair && r.Label != FairnessUnfair {
			continue
		}
		if !found || r.Confidence > best.Confidence {
			best = r
			found = true
		}
	}
	return best, found
}

// ResetFeedback clears the feedback fields ahead of a regeneration cycle.
// ModifyReason is cleared only for retry cycles; modify cycles keep the
// reviewer's instruction so the generator can apply it.
func (s *ReviewState) ResetFeedback(keepModifyReason bool) {
	s.UserFeedback = FeedbackUnset
	s.RetryAction = RetryActionUnset
	if !keepModifyReason {
		s.ModifyReason = ""
	}
}

// Clone returns a deep copy of the state.
func (s *ReviewState) Clone() *ReviewState {
	cp := *s
	cp.ResultsHistory = append([]ClassifyResult(nil), s.ResultsHistory...)
	cp.RetrievedCases = cloneEvidence(s.RetrievedCases)
	cp.RetrievedLaws = cloneEvidence(s.RetrievedLaws)
	return &cp
}

func cloneEvidence(items []EvidenceItem) []EvidenceItem {
	if items == nil {
		return nil
	}
	out := make([]EvidenceItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Metadata != nil {
			md := make(map[string]any, len(it.Metadata))
			for k, v := range it.Metadata {
				md[k] = v
			}
			out[i].Metadata = md
		}
	}
	return out
}
