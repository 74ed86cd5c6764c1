// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability holds the Prometheus metrics for the review
// pipeline. Metrics self-register via promauto; importing packages
// increment them directly.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts review sessions created.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fairclause",
		Subsystem: "review",
		Name:      "sessions_started_total",
		Help:      "Number of review sessions started.",
	})

	// SessionsTerminal counts sessions reaching the terminal stage, by
	// final result status.
	SessionsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairclause",
		Subsystem: "review",
		Name:      "sessions_terminal_total",
		Help:      "Number of review sessions completed, by result status.",
	}, []string{"status"})

	// FeedbackOutcomes counts processed feedback cycles by routed status.
	FeedbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairclause",
		Subsystem: "review",
		Name:      "feedback_outcomes_total",
		Help:      "Number of feedback cycles processed, by outcome.",
	}, []string{"status"})

	// FairnessRetries observes classification retries consumed per session.
	FairnessRetries = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fairclause",
		Subsystem: "review",
		Name:      "fairness_retries",
		Help:      "Fairness classification retries consumed per session.",
		Buckets:   []float64{0, 1, 2, 3},
	})

	// StepDuration observes wall time per state machine step.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fairclause",
		Subsystem: "review",
		Name:      "step_duration_seconds",
		Help:      "Wall time spent in each review step.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// ResultLogFailures counts swallowed result sink append failures.
	ResultLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fairclause",
		Subsystem: "review",
		Name:      "result_log_failures_total",
		Help:      "Result log appends that failed and were swallowed.",
	})
)
