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
	"time"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/evidence"
	"github.com/AleutianAI/FairClause/services/review/generate"
	"github.com/AleutianAI/FairClause/services/review/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// FairnessMaxRetries caps re-invocations of the fairness classifier
	// when a response is unparsable or under-confident.
	FairnessMaxRetries = 3

	// FairnessConfidenceMin is the acceptance bound for a classification.
	FairnessConfidenceMin = 0.7
)

// InputRejectedMarker prefixes CleanedText when rule validation rejects
// the input. The marker is user-visible and part of the snapshot schema.
const InputRejectedMarker = "[입력 거부]"

// runUntilYield advances the session until it suspends for feedback or
// terminates. The snapshot is persisted at both yield points.
//
// Steps follow a compute-then-commit discipline: a step that fails on an
// external call leaves the state exactly as it found it, so re-running
// the session after the dependency recovers repeats only the failed step.
func (e *Engine) runUntilYield(ctx context.Context, s *datatypes.ReviewState) error {
	for {
		if s.Current.Terminal() || s.Current.Suspended() {
			if err := e.store.Save(ctx, s); err != nil {
				return stepError(s.Current, fmt.Errorf("snapshot save failed: %w", err))
			}
			return nil
		}

		next, err := e.step(ctx, s)
		if err != nil {
			return err
		}
		s.Current = next
	}
}

// step dispatches one state machine transition. The switch is exhaustive
// over non-yield stages; an unknown stage is a programming error.
func (e *Engine) step(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	ctx, span := tracer.Start(ctx, "Engine.step")
	defer span.End()
	span.SetAttributes(
		attribute.String("review.session_id", s.SessionID),
		attribute.String("review.stage", string(s.Current)),
	)

	start := time.Now()
	defer func() {
		observability.StepDuration.WithLabelValues(string(s.Current)).
			Observe(time.Since(start).Seconds())
	}()

	switch s.Current {
	case datatypes.StageClean:
		return e.stepClean(ctx, s)
	case datatypes.StageFairnessClassify:
		return e.stepFairnessClassify(ctx, s)
	case datatypes.StageTypify:
		return e.stepTypify(ctx, s)
	case datatypes.StageRetrieve:
		return e.stepRetrieve(ctx, s)
	case datatypes.StageGenerateProposal:
		return e.stepGenerateProposal(ctx, s)
	case datatypes.StageGenerateFairReport:
		return e.stepGenerateFairReport(ctx, s)
	case datatypes.StageProcessFeedback:
		return e.stepProcessFeedback(ctx, s)
	default:
		return datatypes.StageTerminal,
			stepError(s.Current, fmt.Errorf("stage %q has no transition", s.Current))
	}
}

// stepClean runs the rule-based input gate and the normalizer. A rejected
// clause terminates the session immediately with a user-visible reason.
func (e *Engine) stepClean(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	ok, reason := e.validator.Validate(s.Clause)
	if !ok {
		s.ValidationFailed = true
		s.ValidationReason = reason
		s.CleanedText = InputRejectedMarker + " " + reason
		e.logResult(ctx, s, datatypes.StatusInputRejected)
		return datatypes.StageTerminal, nil
	}
	s.CleanedText = e.normalizer.Normalize(s.Clause)
	return datatypes.StageFairnessClassify, nil
}

// stepFairnessClassify runs the bounded classification retry loop.
//
// # Description
//
//	The classifier is re-invoked while the response is unparsable or the
//	confidence is below the acceptance bound, up to FairnessMaxRetries
//	retries. On exhaustion the most confident label seen wins; a history
//	with no parsable label at all falls back to unfair, so ambiguous
//	clauses still get human review.
func (e *Engine) stepFairnessClassify(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	var (
		history []datatypes.ClassifyResult
		retries int
		chosen  datatypes.ClassifyResult
		settled bool
	)

	for {
		result, err := e.classifier.Classify(ctx, s.CleanedText)
		if err != nil {
			return "", stepError(datatypes.StageFairnessClassify,
				fmt.Errorf("fairness classification failed: %w", err))
		}
		history = append(history, result)

		parsable := result.Label == datatypes.FairnessFair || result.Label == datatypes.FairnessUnfair
		if parsable && result.Confidence >= FairnessConfidenceMin {
			chosen, settled = result, true
			break
		}
		if retries >= FairnessMaxRetries {
			break
		}
		retries++
		slog.Debug("Retrying fairness classification",
			"session_id", s.SessionID, "retry", retries,
			"label", string(result.Label), "confidence", result.Confidence)
	}

	// Commit point: nothing above mutated the state.
	s.ResultsHistory = append(s.ResultsHistory, history...)
	s.FairnessRetryCount = retries
	observability.FairnessRetries.Observe(float64(retries))

	if !settled {
		if best, ok := s.BestFairnessResult(); ok {
			chosen = best
		} else {
			chosen = datatypes.ClassifyResult{Label: datatypes.FairnessUnfair}
		}
		slog.Warn("Fairness classification retries exhausted",
			"session_id", s.SessionID,
			"label", string(chosen.Label), "confidence", chosen.Confidence)
	}
	s.FairnessLabel = chosen.Label
	s.FairnessConfidence = chosen.Confidence

	if s.FairnessLabel == datatypes.FairnessFair {
		return datatypes.StageRetrieve, nil
	}
	return datatypes.StageTypify, nil
}

// stepTypify assigns the violation category. Unfair sessions only.
func (e *Engine) stepTypify(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	unfairType, err := e.typifier.Typify(ctx, s.CleanedText)
	if err != nil {
		return "", stepError(datatypes.StageTypify,
			fmt.Errorf("violation typification failed: %w", err))
	}
	s.UnfairType = unfairType
	return datatypes.StageRetrieve, nil
}

// stepRetrieve gathers evidence. Empty results are committed as-is; the
// generator states the absence rather than the engine failing the session.
func (e *Engine) stepRetrieve(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	result, err := e.searcher.Retrieve(ctx, s.UnfairType, s.CleanedText, s.SimilarityThreshold)
	if err != nil {
		return "", stepError(datatypes.StageRetrieve, err)
	}
	s.RetrievedCases = result.Cases
	s.RetrievedLaws = result.Laws

	if s.FairnessLabel == datatypes.FairnessFair {
		return datatypes.StageGenerateFairReport, nil
	}
	return datatypes.StageGenerateProposal, nil
}

// stepGenerateProposal drafts (or redrafts) the revision proposal and
// suspends for feedback.
func (e *Engine) stepGenerateProposal(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	draft, err := e.generator.DraftProposal(ctx, generate.ProposalInput{
		ClauseText:   s.CleanedText,
		UnfairType:   s.UnfairType,
		ModifyReason: s.ModifyReason,
		Evidence: evidence.RetrievalResult{
			Cases: s.RetrievedCases,
			Laws:  s.RetrievedLaws,
		},
	})
	if err != nil {
		return "", stepError(datatypes.StageGenerateProposal, err)
	}
	s.Proposal = draft
	return datatypes.StageAwaitFeedback, nil
}

// stepGenerateFairReport writes the fairness confirmation and terminates.
// The fair path never suspends and never increments the iteration counter.
func (e *Engine) stepGenerateFairReport(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	report, err := e.generator.FairReport(ctx, s.CleanedText, evidence.RetrievalResult{
		Cases: s.RetrievedCases,
		Laws:  s.RetrievedLaws,
	})
	if err != nil {
		return "", stepError(datatypes.StageGenerateFairReport, err)
	}
	s.Proposal = report
	e.logResult(ctx, s, datatypes.StatusFairReport)
	return datatypes.StageTerminal, nil
}

// stepProcessFeedback routes the reviewer's verdict. The cases are
// evaluated in precedence order; anything unrecognized terminates the
// session rather than failing it.
func (e *Engine) stepProcessFeedback(ctx context.Context, s *datatypes.ReviewState) (datatypes.Stage, error) {
	switch {
	case s.UserFeedback == datatypes.FeedbackApproved:
		e.logResult(ctx, s, datatypes.StatusApproved)
		return datatypes.StageTerminal, nil

	case s.UserFeedback == datatypes.FeedbackRejected && s.RetryAction == datatypes.RetryActionDiscard:
		e.logResult(ctx, s, datatypes.StatusRejectedDiscard)
		return datatypes.StageTerminal, nil

	case s.UserFeedback == datatypes.FeedbackRejected && s.RetryAction == datatypes.RetryActionRetry:
		if s.Iteration >= datatypes.MaxIterations {
			// The iteration bound wins over the retry request.
			return e.forceApprove(ctx, s), nil
		}
		e.logResult(ctx, s, datatypes.StatusRejectedRetry)
		s.Iteration++
		s.ResetFeedback(false)
		return datatypes.StageGenerateProposal, nil

	case s.UserFeedback == datatypes.FeedbackModify:
		if s.Iteration >= datatypes.MaxIterations {
			return e.forceApprove(ctx, s), nil
		}
		e.logResult(ctx, s, datatypes.StatusModifyRequest)
		s.Iteration++
		s.ResetFeedback(true)
		return datatypes.StageGenerateProposal, nil

	default:
		slog.Warn("Unrecognized feedback, terminating session",
			"session_id", s.SessionID,
			"feedback", string(s.UserFeedback), "retry_action", string(s.RetryAction))
		e.logResult(ctx, s, datatypes.StatusUnrecognized)
		return datatypes.StageTerminal, nil
	}
}

// forceApprove settles a session whose regeneration budget is spent. The
// last proposal stands as the final answer.
func (e *Engine) forceApprove(ctx context.Context, s *datatypes.ReviewState) datatypes.Stage {
	slog.Info("Iteration cap reached, forcing approval",
		"session_id", s.SessionID, "iteration", s.Iteration)
	e.logResult(ctx, s, datatypes.StatusMaxIterationReached)
	s.UserFeedback = datatypes.FeedbackApproved
	return datatypes.StageTerminal
}
