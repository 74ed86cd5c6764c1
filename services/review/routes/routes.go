// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/AleutianAI/FairClause/services/review/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the review API on the router.
func SetupRoutes(router *gin.Engine, eng handlers.ReviewEngine, runner handlers.BatchRunner) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		reviews := v1.Group("/reviews")
		{
			reviews.POST("", handlers.StartReview(eng))
			reviews.POST("/batch", handlers.BatchReview(runner))
			reviews.GET("/:sessionId", handlers.GetReview(eng))
			reviews.POST("/:sessionId/feedback", handlers.SubmitFeedback(eng))
		}
		v1.POST("/clauses/split", handlers.SplitClauses)

		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.ListSessions(eng))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(eng))
		}
	}
}
