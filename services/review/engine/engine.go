// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("fairclause.review.engine")

// Config carries the engine's ports. All fields except Results are
// required.
type Config struct {
	Validator  ClauseValidator
	Normalizer Normalizer
	Classifier FairnessClassifier
	Typifier   UnfairTypifier
	Searcher   EvidenceSearcher
	Generator  DraftGenerator
	Store      SessionStore

	// Results is optional; a nil logger disables the result sink.
	Results ResultLogger
}

// Engine drives review sessions through the state machine. One Engine
// serves many sessions; it holds no per-session state of its own.
type Engine struct {
	validator  ClauseValidator
	normalizer Normalizer
	classifier FairnessClassifier
	typifier   UnfairTypifier
	searcher   EvidenceSearcher
	generator  DraftGenerator
	store      SessionStore
	results    ResultLogger
}

// New validates the port set and builds an engine.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Validator == nil:
		return nil, fmt.Errorf("engine requires a clause validator")
	case cfg.Normalizer == nil:
		return nil, fmt.Errorf("engine requires a normalizer")
	case cfg.Classifier == nil:
		return nil, fmt.Errorf("engine requires a fairness classifier")
	case cfg.Typifier == nil:
		return nil, fmt.Errorf("engine requires a typifier")
	case cfg.Searcher == nil:
		return nil, fmt.Errorf("engine requires an evidence searcher")
	case cfg.Generator == nil:
		return nil, fmt.Errorf("engine requires a draft generator")
	case cfg.Store == nil:
		return nil, fmt.Errorf("engine requires a session store")
	}
	return &Engine{
		validator:  cfg.Validator,
		normalizer: cfg.Normalizer,
		classifier: cfg.Classifier,
		typifier:   cfg.Typifier,
		searcher:   cfg.Searcher,
		generator:  cfg.Generator,
		store:      cfg.Store,
		results:    cfg.Results,
	}, nil
}

// ReviewOutcome is the caller-facing view of a session after the engine
// yields.
type ReviewOutcome struct {
	SessionID        string                  `json:"session_id"`
	Stage            datatypes.Stage         `json:"stage"`
	AwaitingFeedback bool                    `json:"awaiting_feedback"`
	FairnessLabel    datatypes.FairnessLabel `json:"fairness_label,omitempty"`
	UnfairType       string                  `json:"unfair_type,omitempty"`
	Proposal         string                  `json:"proposal,omitempty"`
	Iteration        int                     `json:"iteration"`
	MaxIterations    int                     `json:"max_iterations"`
	ValidationFailed bool                    `json:"validation_failed,omitempty"`
	ValidationReason string                  `json:"validation_reason,omitempty"`
}

func outcomeFromState(s *datatypes.ReviewState) ReviewOutcome {
	return ReviewOutcome{
		SessionID:        s.SessionID,
		Stage:            s.Current,
		AwaitingFeedback: s.Current.Suspended(),
		FairnessLabel:    s.FairnessLabel,
		UnfairType:       s.UnfairType,
		Proposal:         s.Proposal,
		Iteration:        s.Iteration,
		MaxIterations:    datatypes.MaxIterations,
		ValidationFailed: s.ValidationFailed,
		ValidationReason: s.ValidationReason,
	}
}

// Start creates a session for the clause and advances it until it yields:
// suspended awaiting feedback, or terminal (fair report or rejected
// input). A non-positive similarityThreshold selects the default.
func (e *Engine) Start(ctx context.Context, clause string, similarityThreshold float64) (ReviewOutcome, error) {
	ctx, span := tracer.Start(ctx, "Engine.Start")
	defer span.End()

	s := datatypes.NewReviewState(clause, similarityThreshold)
	span.SetAttributes(attribute.String("review.session_id", s.SessionID))
	observability.SessionsStarted.Inc()
	slog.Info("Starting review session",
		"session_id", s.SessionID, "clause_len", len(clause))

	if err := e.runUntilYield(ctx, s); err != nil {
		return ReviewOutcome{}, err
	}
	return outcomeFromState(s), nil
}

// Resume applies validated feedback to a suspended session and advances
// it until the next yield.
//
// # Outputs
//
//	ErrSessionNotFound, ErrSessionTerminal, or ErrNotAwaitingFeedback for
//	sessions in the wrong position; *datatypes.InvalidFeedbackError for a
//	bad payload; otherwise the post-yield outcome.
func (e *Engine) Resume(ctx context.Context, sessionID string, payload datatypes.FeedbackPayload) (ReviewOutcome, error) {
	ctx, span := tracer.Start(ctx, "Engine.Resume")
	defer span.End()
	span.SetAttributes(attribute.String("review.session_id", sessionID))

	s, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	if s.Current.Terminal() {
		return ReviewOutcome{}, fmt.Errorf("%w: %s", ErrSessionTerminal, sessionID)
	}
	if !s.Current.Suspended() {
		return ReviewOutcome{}, fmt.Errorf("%w: %s is at %q", ErrNotAwaitingFeedback, sessionID, s.Current)
	}
	if err := payload.Validate(); err != nil {
		return ReviewOutcome{}, err
	}

	payload.Apply(s)
	s.Current = datatypes.StageProcessFeedback
	slog.Info("Resuming review session",
		"session_id", sessionID,
		"feedback", string(s.UserFeedback), "iteration", s.Iteration)

	if err := e.runUntilYield(ctx, s); err != nil {
		return ReviewOutcome{}, err
	}
	return outcomeFromState(s), nil
}

// Get returns a copy of the session's current state.
func (e *Engine) Get(ctx context.Context, sessionID string) (*datatypes.ReviewState, error) {
	s, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Delete removes a session's snapshot.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	if _, err := e.loadSession(ctx, sessionID); err != nil {
		return err
	}
	return e.store.Delete(ctx, sessionID)
}

// List returns the IDs of all persisted sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (*datatypes.ReviewState, error) {
	s, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session load failed: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// logResult appends one record to the result sink. Sink failures never
// abort a session; they are counted and logged.
func (e *Engine) logResult(ctx context.Context, s *datatypes.ReviewState, status string) {
	switch status {
	case datatypes.StatusRejectedRetry, datatypes.StatusModifyRequest:
		observability.FeedbackOutcomes.WithLabelValues(status).Inc()
	default:
		observability.SessionsTerminal.WithLabelValues(status).Inc()
	}

	if e.results == nil {
		return
	}
	if err := e.results.Append(ctx, datatypes.NewResultRecord(s, status)); err != nil {
		observability.ResultLogFailures.Inc()
		slog.Warn("Failed to append result record",
			"session_id", s.SessionID, "status", status, "error", err)
	}
}
