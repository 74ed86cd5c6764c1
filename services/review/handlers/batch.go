// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/FairClause/services/review/batch"
	"github.com/AleutianAI/FairClause/services/review/ingest"
	"github.com/gin-gonic/gin"
)

// BatchRunner runs many clauses as independent sessions.
type BatchRunner interface {
	Run(ctx context.Context, clauses []string, similarityThreshold float64) ([]batch.Result, error)
}

// BatchReviewRequest is the body of POST /v1/reviews/batch.
type BatchReviewRequest struct {
	Clauses             []string `json:"clauses" binding:"required,min=1"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
}

// BatchReview reviews every submitted clause as its own session.
func BatchReview(runner BatchRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "clauses is required"})
			return
		}
		slog.Info("Received batch review request", "clauses", len(req.Clauses))

		results, err := runner.Run(c.Request.Context(), req.Clauses, req.SimilarityThreshold)
		if err != nil {
			slog.Error("Batch review failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "batch review failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// SplitClausesRequest is the body of POST /v1/clauses/split.
type SplitClausesRequest struct {
	Text string `json:"text" binding:"required"`
}

// SplitClauses splits raw contract text into reviewable clauses.
func SplitClauses(c *gin.Context) {
	var req SplitClausesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	clauses, err := ingest.SplitClauses(req.Text)
	if err != nil {
		slog.Error("Clause splitting failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clause splitting failed"})
		return
	}
	if clauses == nil {
		clauses = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"clauses": clauses})
}
