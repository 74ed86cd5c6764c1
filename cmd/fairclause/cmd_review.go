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
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/AleutianAI/FairClause/services/review"
	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/engine"
	"github.com/spf13/cobra"
)

// runReview reviews one clause and walks the feedback loop on the
// terminal until the session terminates.
func runReview(cmd *cobra.Command, args []string) {
	svc, err := review.New(config.serviceConfig())
	if err != nil {
		log.Fatalf("Failed to initialize review service: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()
	threshold := similarityThreshold
	if threshold == 0 {
		threshold = config.Review.SimilarityThreshold
	}

	outcome, err := svc.Engine().Start(ctx, args[0], threshold)
	if err != nil {
		log.Fatalf("Review failed: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	for outcome.AwaitingFeedback {
		printOutcome(outcome)
		payload, ok := promptFeedback(reader)
		if !ok {
			fmt.Println("Aborted; session remains resumable via the HTTP API.")
			fmt.Printf("session_id: %s\n", outcome.SessionID)
			return
		}
		outcome, err = svc.Engine().Resume(ctx, outcome.SessionID, payload)
		if err != nil {
			var invalid *datatypes.InvalidFeedbackError
			if errors.As(err, &invalid) {
				fmt.Printf("Invalid feedback (%s): %s\n", invalid.Field, invalid.Reason)
				continue
			}
			log.Fatalf("Feedback failed: %v", err)
		}
	}
	printFinal(outcome)
}

func printOutcome(outcome engine.ReviewOutcome) {
	fmt.Printf("\n=== 검토 결과 (%d/%d) ===\n", outcome.Iteration, outcome.MaxIterations)
	if outcome.UnfairType != "" {
		fmt.Printf("위반 유형: %s\n", outcome.UnfairType)
	}
	fmt.Printf("\n%s\n\n", outcome.Proposal)
}

func printFinal(outcome engine.ReviewOutcome) {
	fmt.Printf("\n=== 최종 결과 ===\n")
	if outcome.ValidationFailed {
		fmt.Printf("입력 거부: %s\n", outcome.ValidationReason)
		return
	}
	if outcome.FairnessLabel == datatypes.FairnessFair {
		fmt.Printf("공정 판정 보고서:\n%s\n", outcome.Proposal)
		return
	}
	fmt.Printf("확정된 개선안 (%d회 반복):\n%s\n", outcome.Iteration, outcome.Proposal)
}

// promptFeedback collects one feedback payload from the terminal. Returns
// false when input ends (Ctrl-D).
func promptFeedback(reader *bufio.Reader) (datatypes.FeedbackPayload, bool) {
	decision, ok := prompt(reader, "피드백 [approved/rejected/modify]: ")
	if !ok {
		return datatypes.FeedbackPayload{}, false
	}

	payload := datatypes.FeedbackPayload{Feedback: datatypes.FeedbackDecision(decision)}
	switch payload.Feedback {
	case datatypes.FeedbackRejected:
		action, ok := prompt(reader, "재시도 여부 [retry/discard]: ")
		if !ok {
			return datatypes.FeedbackPayload{}, false
		}
		payload.RetryAction = datatypes.RetryAction(action)
	case datatypes.FeedbackModify:
		reason, ok := prompt(reader, "수정 요청 내용: ")
		if !ok {
			return datatypes.FeedbackPayload{}, false
		}
		payload.ModifyReason = reason
	}
	return payload, true
}

func prompt(reader *bufio.Reader, label string) (string, bool) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}
