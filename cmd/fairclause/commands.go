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
	"github.com/spf13/cobra"
)

var (
	configPath          string
	similarityThreshold float64
	batchOutputPath     string

	rootCmd = &cobra.Command{
		Use:   "fairclause",
		Short: "A service that reviews contract clauses for unfairness",
		Long: `FairClause classifies a contract clause as fair or unfair, retrieves
supporting precedent and statute evidence, drafts an improved clause, and
runs a bounded human-approval loop over the draft.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the review HTTP server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	reviewCmd = &cobra.Command{
		Use:   "review [clause]",
		Short: "Review a single clause interactively",
		Args:  cobra.ExactArgs(1),
		Run:   runReview, // Defined in cmd_review.go
	}

	batchCmd = &cobra.Command{
		Use:   "batch [contract file]",
		Short: "Split a contract file into clauses and review them all",
		Args:  cobra.ExactArgs(1),
		Run:   runBatch, // Defined in cmd_batch.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"path to the configuration file")
	reviewCmd.Flags().Float64Var(&similarityThreshold, "threshold", 0,
		"evidence similarity threshold in [0,1]; 0 uses the configured default")
	batchCmd.Flags().Float64Var(&similarityThreshold, "threshold", 0,
		"evidence similarity threshold in [0,1]; 0 uses the configured default")
	batchCmd.Flags().StringVarP(&batchOutputPath, "output", "o", "",
		"write batch results to this JSON file instead of stdout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(batchCmd)
}
