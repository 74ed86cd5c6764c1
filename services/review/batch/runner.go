// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package batch reviews many clauses as independent sessions.
//
// Sessions share no mutable state, so they run concurrently under a
// bounded worker limit. A failing session is reported in its slot and
// never aborts its siblings.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/FairClause/services/review/engine"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds simultaneous sessions per batch.
const DefaultConcurrency = 4

// Starter starts one review session. Implemented by the engine.
type Starter interface {
	Start(ctx context.Context, clause string, similarityThreshold float64) (engine.ReviewOutcome, error)
}

// Result is the outcome slot for one clause, in submission order.
type Result struct {
	Index   int                  `json:"index"`
	Clause  string               `json:"clause"`
	Outcome engine.ReviewOutcome `json:"outcome,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Runner fans clauses out to review sessions.
type Runner struct {
	starter     Starter
	concurrency int
}

// NewRunner builds a runner. Non-positive concurrency selects the default.
func NewRunner(starter Starter, concurrency int) (*Runner, error) {
	if starter == nil {
		return nil, fmt.Errorf("starter must not be nil")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{starter: starter, concurrency: concurrency}, nil
}

// Run reviews every clause as its own session and returns one result per
// clause in input order. Session failures land in their result slot; the
// returned error is reserved for context cancellation.
func (r *Runner) Run(ctx context.Context, clauses []string, similarityThreshold float64) ([]Result, error) {
	results := make([]Result, len(clauses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, clause := range clauses {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome, err := r.starter.Start(ctx, clause, similarityThreshold)
			results[i] = Result{Index: i, Clause: clause, Outcome: outcome}
			if err != nil {
				// Isolate the failure to this slot.
				results[i].Error = err.Error()
				slog.Warn("Batch session failed", "index", i, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch run interrupted: %w", err)
	}
	return results, nil
}
