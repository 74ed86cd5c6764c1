// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP API over the review engine.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/engine"
	"github.com/gin-gonic/gin"
)

// ReviewEngine is the engine surface the handlers need. The concrete
// *engine.Engine satisfies it; tests substitute fakes.
type ReviewEngine interface {
	Start(ctx context.Context, clause string, similarityThreshold float64) (engine.ReviewOutcome, error)
	Resume(ctx context.Context, sessionID string, payload datatypes.FeedbackPayload) (engine.ReviewOutcome, error)
	Get(ctx context.Context, sessionID string) (*datatypes.ReviewState, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// StartReviewRequest is the body of POST /v1/reviews.
type StartReviewRequest struct {
	Clause              string  `json:"clause" binding:"required"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// StartReview starts a review session for one clause.
func StartReview(eng ReviewEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "clause is required"})
			return
		}
		slog.Info("Received review request", "clause_len", len(req.Clause))

		outcome, err := eng.Start(c.Request.Context(), req.Clause, req.SimilarityThreshold)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusCreated, outcome)
	}
}

// GetReview returns the current snapshot of a session.
func GetReview(eng ReviewEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := eng.Get(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// SubmitFeedback resumes a suspended session with reviewer feedback.
func SubmitFeedback(eng ReviewEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")

		var payload datatypes.FeedbackPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed feedback payload"})
			return
		}
		slog.Info("Received feedback",
			"session_id", sessionID, "feedback", string(payload.Feedback))

		outcome, err := eng.Resume(c.Request.Context(), sessionID, payload)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(c *gin.Context, err error) {
	var invalid *datatypes.InvalidFeedbackError
	var step *engine.StepError

	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, engine.ErrSessionTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
	case errors.Is(err, engine.ErrNotAwaitingFeedback):
		c.JSON(http.StatusConflict, gin.H{"error": "session is not awaiting feedback"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid feedback", "field": invalid.Field, "reason": invalid.Reason,
		})
	case errors.As(err, &step):
		slog.Error("Review step failed", "stage", string(step.Stage), "error", step.Err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "review step failed", "stage": string(step.Stage),
		})
	default:
		slog.Error("Review request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
