// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/AleutianAI/FairClause/services/review"
	"github.com/AleutianAI/FairClause/services/review/batch"
	"github.com/AleutianAI/FairClause/services/review/ingest"
	"github.com/spf13/cobra"
)

// runBatch splits a contract file into clauses and reviews each one as an
// independent session. Results are written as JSON, one slot per clause.
func runBatch(cmd *cobra.Command, args []string) {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Failed to read contract file: %v", err)
	}

	clauses, err := ingest.SplitClauses(ingest.CleanPageText(string(raw)))
	if err != nil {
		log.Fatalf("Failed to split contract: %v", err)
	}
	if len(clauses) == 0 {
		log.Fatalf("No reviewable clauses found in %s", args[0])
	}
	fmt.Fprintf(os.Stderr, "Reviewing %d clauses from %s\n", len(clauses), args[0])

	svc, err := review.New(config.serviceConfig())
	if err != nil {
		log.Fatalf("Failed to initialize review service: %v", err)
	}
	defer svc.Close()

	runner, err := batch.NewRunner(svc.Engine(), config.Review.BatchConcurrency)
	if err != nil {
		log.Fatalf("Failed to build batch runner: %v", err)
	}

	threshold := similarityThreshold
	if threshold == 0 {
		threshold = config.Review.SimilarityThreshold
	}
	results, err := runner.Run(context.Background(), clauses, threshold)
	if err != nil {
		log.Fatalf("Batch run failed: %v", err)
	}

	if err := writeResults(results); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
}

func writeResults(results []batch.Result) error {
	out := os.Stdout
	if batchOutputPath != "" {
		f, err := os.Create(batchOutputPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", batchOutputPath, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
