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
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// feedbackValidator validates the struct-level tags on FeedbackPayload.
// validator.Validate is safe for concurrent use and caches struct metadata.
var feedbackValidator = validator.New()

// FeedbackPayload is the externally supplied resumption input for a
// suspended session.
//
// # Validation
//
// A payload must be validated before it touches a ReviewState:
//
//   - Feedback is required and must be approved, rejected, or modify.
//   - RetryAction is required with rejected and forbidden otherwise.
//   - ModifyReason is required (non-blank) with modify and forbidden otherwise.
//   - SimilarityThreshold, when present, must be in [0,1].
//
// Invalid combinations are rejected with *InvalidFeedbackError and the
// session state stays untouched so the caller can resubmit.
type FeedbackPayload struct {
	Feedback            FeedbackDecision `json:"feedback" validate:"required,oneof=approved rejected modify"`
	RetryAction         RetryAction      `json:"retry_action,omitempty" validate:"omitempty,oneof=retry discard"`
	ModifyReason        string           `json:"modify_reason,omitempty"`
	SimilarityThreshold *float64         `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// InvalidFeedbackError describes a malformed or out-of-range feedback
// payload. It is returned before any state mutation.
type InvalidFeedbackError struct {
	Field  string
	Reason string
}

func (e *InvalidFeedbackError) Error() string {
	return fmt.Sprintf("invalid feedback: %s: %s", e.Field, e.Reason)
}

// Validate checks the payload against the rules above.
func (p *FeedbackPayload) Validate() error {
	if err := feedbackValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		field, reason := "payload", err.Error()
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field = strings.ToLower(verrs[0].Field())
			reason = fmt.Sprintf("failed %q constraint", verrs[0].Tag())
		}
		return &InvalidFeedbackError{Field: field, Reason: reason}
	}

	switch p.Feedback {
	case FeedbackRejected:
		if p.RetryAction == RetryActionUnset {
			return &InvalidFeedbackError{
				Field:  "retry_action",
				Reason: "required when feedback is rejected",
			}
		}
	case FeedbackModify:
		if strings.TrimSpace(p.ModifyReason) == "" {
			return &InvalidFeedbackError{
				Field:  "modify_reason",
				Reason: "required when feedback is modify",
			}
		}
		if p.RetryAction != RetryActionUnset {
			return &InvalidFeedbackError{
				Field:  "retry_action",
				Reason: "only valid when feedback is rejected",
			}
		}
	case FeedbackApproved:
		if p.RetryAction != RetryActionUnset {
			return &InvalidFeedbackError{
				Field:  "retry_action",
				Reason: "only valid when feedback is rejected",
			}
		}
	}
	return nil
}

// Apply copies a validated payload onto the state. Callers must have run
// Validate first; Apply assumes the combination is legal.
func (p *FeedbackPayload) Apply(s *ReviewState) {
	s.UserFeedback = p.Feedback
	s.RetryAction = p.RetryAction
	s.ModifyReason = strings.TrimSpace(p.ModifyReason)
	if p.SimilarityThreshold != nil {
		s.SimilarityThreshold = *p.SimilarityThreshold
	}
}
