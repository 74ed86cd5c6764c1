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

import "time"

// Result statuses written to the append-only result log. One record is
// appended per terminal or feedback-cycle event.
const (
	StatusApproved            = "approved"
	StatusRejectedDiscard     = "rejected_discard"
	StatusRejectedRetry       = "rejected_retry"
	StatusModifyRequest       = "modify_request"
	StatusMaxIterationReached = "max_iteration_reached"
	StatusInputRejected       = "input_rejected"
	StatusFairReport          = "fair_report"
	StatusUnrecognized        = "unrecognized_feedback"
)

// ResultRecord is one entry in the result log.
type ResultRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	SessionID       string    `json:"session_id"`
	Status          string    `json:"status"`
	Iteration       int       `json:"iteration"`
	TotalIterations int       `json:"total_iterations"`
	Clause          string    `json:"clause"`
	CleanedText     string    `json:"cleaned_text,omitempty"`
	UnfairType      string    `json:"unfair_type,omitempty"`
	Proposal        string    `json:"proposal,omitempty"`
	ModifyReason    string    `json:"modify_reason,omitempty"`
}

// NewResultRecord builds a record for the given state and status.
func NewResultRecord(s *ReviewState, status string) ResultRecord {
	return ResultRecord{
		Timestamp:       time.Now().UTC(),
		SessionID:       s.SessionID,
		Status:          status,
		Iteration:       s.Iteration,
		TotalIterations: MaxIterations,
		Clause:          s.Clause,
		CleanedText:     s.CleanedText,
		UnfairType:      s.UnfairType,
		Proposal:        s.Proposal,
		ModifyReason:    s.ModifyReason,
	}
}
