// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/FairClause/services/llm"
)

// ViolationTypes is the closed taxonomy of unfairness categories. The last
// entry is the catch-all; any model output outside the taxonomy maps to it.
var ViolationTypes = []string{
	"계약해지 사유 포괄적",
	"사업자 면책 과도",
	"고객 권리 제한",
	"일방적 계약 변경",
	"부당한 손해배상 예정",
	"기타",
}

// ViolationTypeOther is the catch-all taxonomy entry.
const ViolationTypeOther = "기타"

const typifyPromptTemplate = `다음 불공정 약관 조항이 어떤 유형의 위반에 해당하는지 분류하세요.

조항:
%s

아래 유형 중 정확히 하나만 답하세요. 다른 설명은 쓰지 마세요.
%s`

// UnfairTypifier maps an unfair clause to exactly one violation category.
type UnfairTypifier struct {
	llmClient llm.LLMClient
}

// NewUnfairTypifier creates a typifier over the given LLM backend.
func NewUnfairTypifier(llmClient llm.LLMClient) *UnfairTypifier {
	return &UnfairTypifier{llmClient: llmClient}
}

// Typify classifies the clause into the violation taxonomy.
//
// The result is always a member of ViolationTypes: responses outside the
// taxonomy default to the catch-all. Only transport-level failures return
// an error.
func (t *UnfairTypifier) Typify(ctx context.Context, clause string) (string, error) {
	prompt := fmt.Sprintf(typifyPromptTemplate, clause, strings.Join(ViolationTypes, "\n"))

	temp := float32(0.0)
	response, err := t.llmClient.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return "", fmt.Errorf("violation type classification call failed: %w", err)
	}

	category := NormalizeViolationType(response)
	if category == ViolationTypeOther && !strings.Contains(response, ViolationTypeOther) {
		slog.Debug("Violation type outside taxonomy, using catch-all",
			"response", truncate(response, 120))
	}
	return category, nil
}

// NormalizeViolationType maps raw model output onto the closed taxonomy.
//
// Matching is forgiving: an exact line match wins, then the first taxonomy
// entry contained anywhere in the response. Everything else is the
// catch-all.
func NormalizeViolationType(response string) string {
	trimmed := strings.TrimSpace(response)
	trimmed = strings.Trim(trimmed, `"'.,: `)

	for _, vt := range ViolationTypes {
		if trimmed == vt {
			return vt
		}
	}
	for _, vt := range ViolationTypes {
		if vt != ViolationTypeOther && strings.Contains(response, vt) {
			return vt
		}
	}
	return ViolationTypeOther
}
