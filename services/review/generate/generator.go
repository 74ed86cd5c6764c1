// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generate turns a reviewed clause plus its retrieved evidence into
// reviewer-facing text: a revision proposal for unfair clauses, or a short
// fairness report for fair ones.
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/FairClause/services/llm"
	"github.com/AleutianAI/FairClause/services/review/evidence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("fairclause.review.generate")

var defaultParams = llm.GenerationParams{
	Temperature: float32Ptr(0.3),
	MaxTokens:   intPtr(1024),
}

func float32Ptr(v float32) *float32 { return &v }
func intPtr(v int) *int             { return &v }

// NoEvidenceCaveat is inserted into prompts when retrieval produced no
// usable documents, so the model states the absence instead of inventing
// legal bases.
const NoEvidenceCaveat = "(검색된 판례·법령 근거 없음 — 근거 부족을 명시하고 일반 원칙 수준에서만 제안할 것)"

// groundingRule pins generation to retrieved evidence. Fabricated statute
// citations and invented numeric periods are the main failure mode here.
const groundingRule = "아래 제공된 판례·법령 내용만 근거로 인용하고, " +
	"제공되지 않은 법적 근거나 구체적 기간·수치를 새로 만들어내지 마십시오."

// ProposalInput carries everything a revision draft depends on.
type ProposalInput struct {
	ClauseText   string
	UnfairType   string
	ModifyReason string
	Evidence     evidence.RetrievalResult
}

// Generator produces review output text via the configured LLM backend.
type Generator struct {
	client llm.LLMClient
}

// NewGenerator builds a generator over the given backend.
func NewGenerator(client llm.LLMClient) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client must not be nil")
	}
	return &Generator{client: client}, nil
}

// DraftProposal writes a revision proposal for an unfair clause.
//
// # Description
//
//	The prompt carries the clause, its violation type, the retrieved
//	evidence, and — on revision rounds — the reviewer's modification
//	request, which takes precedence over the previous draft's framing.
func (g *Generator) DraftProposal(ctx context.Context, in ProposalInput) (string, error) {
	ctx, span := tracer.Start(ctx, "Generator.DraftProposal")
	defer span.End()
	span.SetAttributes(
		attribute.String("review.unfair_type", in.UnfairType),
		attribute.Bool("review.has_modify_reason", in.ModifyReason != ""),
	)

	var b strings.Builder
	b.WriteString("다음 약관 조항은 불공정 소지가 있는 것으로 분류되었습니다.\n")
	fmt.Fprintf(&b, "위반 유형: %s\n\n", in.UnfairType)
	fmt.Fprintf(&b, "조항 원문:\n%s\n\n", in.ClauseText)

	b.WriteString("참고 근거:\n")
	b.WriteString(FormatEvidence(in.Evidence))
	b.WriteString("\n")

	if reason := strings.TrimSpace(in.ModifyReason); reason != "" {
		fmt.Fprintf(&b, "검토자 수정 요청 (이전 초안보다 이 요청을 우선할 것):\n%s\n\n", reason)
	}

	b.WriteString(groundingRule)
	b.WriteString("\n\n위 조항을 공정하게 개선한 수정안을 작성하고, 각 변경 사항의 근거를 함께 제시하십시오.")

	draft, err := g.client.Generate(ctx, b.String(), defaultParams)
	if err != nil {
		return "", fmt.Errorf("proposal generation failed: %w", err)
	}
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", fmt.Errorf("proposal generation returned empty text")
	}
	return draft, nil
}

// FairReport writes a short justification for a clause judged fair,
// citing whatever supporting evidence was retrieved.
func (g *Generator) FairReport(ctx context.Context, clauseText string, ev evidence.RetrievalResult) (string, error) {
	ctx, span := tracer.Start(ctx, "Generator.FairReport")
	defer span.End()

	var b strings.Builder
	b.WriteString("다음 약관 조항은 공정한 것으로 분류되었습니다.\n\n")
	fmt.Fprintf(&b, "조항 원문:\n%s\n\n", clauseText)
	b.WriteString("참고 근거:\n")
	b.WriteString(FormatEvidence(ev))
	b.WriteString("\n")
	b.WriteString(groundingRule)
	b.WriteString("\n\n이 조항이 공정하다고 판단되는 이유를 근거와 함께 간결하게 정리하십시오.")

	report, err := g.client.Generate(ctx, b.String(), defaultParams)
	if err != nil {
		return "", fmt.Errorf("fair report generation failed: %w", err)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return "", fmt.Errorf("fair report generation returned empty text")
	}
	return report, nil
}

// FormatEvidence renders the retrieved documents as numbered prompt
// sections, or the no-evidence caveat when both lists are empty.
func FormatEvidence(ev evidence.RetrievalResult) string {
	if ev.Empty() {
		return NoEvidenceCaveat + "\n"
	}

	var b strings.Builder
	if len(ev.Cases) > 0 {
		b.WriteString("[관련 판례]\n")
		for i, item := range ev.Cases {
			fmt.Fprintf(&b, "%d. %s", i+1, strings.TrimSpace(item.Content))
			if source := item.SourceFile(); source != "" {
				fmt.Fprintf(&b, " (출처: %s)", source)
			}
			b.WriteString("\n")
		}
	}
	if len(ev.Laws) > 0 {
		b.WriteString("[관련 법령]\n")
		for i, item := range ev.Laws {
			fmt.Fprintf(&b, "%d. %s", i+1, strings.TrimSpace(item.Content))
			if source := item.SourceFile(); source != "" {
				fmt.Fprintf(&b, " (출처: %s)", source)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
