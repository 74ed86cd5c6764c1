// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify provides the LLM-backed classifiers of the review
// pipeline: the binary fairness classifier and the unfairness typifier.
//
// Each classifier performs exactly one model call per invocation. Retry
// bookkeeping (the bounded re-classification loop) belongs to the review
// engine, which owns the per-session retry counters.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/AleutianAI/FairClause/services/llm"
	"github.com/AleutianAI/FairClause/services/review/datatypes"
)

// Label strings the model is instructed to answer with.
const (
	labelFairKo   = "공정"
	labelUnfairKo = "불공정"
)

const fairnessPromptTemplate = `당신은 약관 심사 전문가입니다. 아래 계약 조항이 소비자 보호 기준에서 공정한지 판단하세요.

조항:
%s

반드시 두 줄로만 답하세요.
첫째 줄: "공정" 또는 "불공정"
둘째 줄: 0.0에서 1.0 사이의 확신도 숫자`

// FairnessClassifier classifies a clause as fair or unfair with a
// confidence score, using a single LLM call per Classify invocation.
type FairnessClassifier struct {
	llmClient llm.LLMClient
}

// NewFairnessClassifier creates a classifier over the given LLM backend.
func NewFairnessClassifier(llmClient llm.LLMClient) *FairnessClassifier {
	return &FairnessClassifier{llmClient: llmClient}
}

// Classify runs one classification attempt.
//
// An unparsable model response is not an error: it yields a result with
// FairnessUnset and zero confidence, which the engine records in the retry
// history and retries against its cap. Transport-level failures are
// returned as errors so the engine can propagate them with the originating
// stage.
func (c *FairnessClassifier) Classify(ctx context.Context, clause string) (datatypes.ClassifyResult, error) {
	prompt := fmt.Sprintf(fairnessPromptTemplate, clause)

	temp := float32(0.0)
	response, err := c.llmClient.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return datatypes.ClassifyResult{}, fmt.Errorf("fairness classification call failed: %w", err)
	}

	result := ParseFairnessResponse(response)
	if result.Label == datatypes.FairnessUnset {
		slog.Warn("Unparsable fairness response", "response", truncate(response, 120))
	}
	return result, nil
}

// ParseFairnessResponse parses the two-line "label\nconfidence" reply.
//
// Unknown labels map to FairnessUnset; a missing or malformed confidence
// line yields 0.0. Both English and Korean label spellings are accepted
// since smaller models drift between the two.
func ParseFairnessResponse(response string) datatypes.ClassifyResult {
	lines := strings.Split(strings.TrimSpace(response), "\n")

	result := datatypes.ClassifyResult{}
	if len(lines) >= 1 {
		result.Label = parseLabel(lines[0])
	}
	if len(lines) >= 2 {
		if conf, err := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64); err == nil {
			if conf >= 0 && conf <= 1 {
				result.Confidence = conf
			}
		}
	}
	return result
}

func parseLabel(line string) datatypes.FairnessLabel {
	label := strings.TrimSpace(line)
	label = strings.Trim(label, `"'.,: `)
	switch {
	case label == labelUnfairKo || strings.EqualFold(label, "unfair"):
		return datatypes.FairnessUnfair
	case label == labelFairKo || strings.EqualFold(label, "fair"):
		return datatypes.FairnessFair
	default:
		return datatypes.FairnessUnset
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
