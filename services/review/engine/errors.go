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
	"errors"
	"fmt"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
)

var (
	// ErrSessionNotFound means no snapshot exists for the session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionTerminal means the session has already completed and
	// cannot accept feedback.
	ErrSessionTerminal = errors.New("session already terminal")

	// ErrNotAwaitingFeedback means the session exists but is not suspended
	// at the feedback point.
	ErrNotAwaitingFeedback = errors.New("session not awaiting feedback")
)

// StepError tags an external-service failure with the stage it occurred
// at. The state is left un-mutated for the failed step, so re-running the
// same step after the caller recovers is safe.
type StepError struct {
	Stage datatypes.Stage
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("review step %q failed: %v", e.Stage, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepError(stage datatypes.Stage, err error) *StepError {
	return &StepError{Stage: stage, Err: err}
}
