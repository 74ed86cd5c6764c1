package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/FairClause/services/llm"
	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/evidence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func sampleEvidence() evidence.RetrievalResult {
	return evidence.RetrievalResult{
		Cases: []datatypes.EvidenceItem{{
			Content:    "사업자의 일방적 해지를 무효로 본 판례",
			Similarity: 0.88,
			Metadata:   map[string]any{"source_file": "case_2021.json"},
		}},
		Laws: []datatypes.EvidenceItem{{
			Content:    "약관의 규제에 관한 법률 제9조",
			Similarity: 0.82,
		}},
	}
}

func TestGenerator_DraftProposal(t *testing.T) {
	t.Run("prompt carries clause, type, evidence and grounding rule", func(t *testing.T) {
		client := &fakeLLM{response: "  제1조를 다음과 같이 수정합니다...  "}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		got, err := gen.DraftProposal(context.Background(), ProposalInput{
			ClauseText: "회사는 언제든지 계약을 해지할 수 있다.",
			UnfairType: "계약해지 사유 포괄적",
			Evidence:   sampleEvidence(),
		})
		require.NoError(t, err)
		assert.Equal(t, "제1조를 다음과 같이 수정합니다...", got)

		require.Len(t, client.prompts, 1)
		prompt := client.prompts[0]
		assert.Contains(t, prompt, "회사는 언제든지 계약을 해지할 수 있다.")
		assert.Contains(t, prompt, "계약해지 사유 포괄적")
		assert.Contains(t, prompt, "일방적 해지를 무효로 본 판례")
		assert.Contains(t, prompt, "case_2021.json")
		assert.Contains(t, prompt, "약관의 규제에 관한 법률 제9조")
		assert.Contains(t, prompt, "만들어내지 마십시오")
		assert.NotContains(t, prompt, "수정 요청")
	})

	t.Run("modify reason included on revision rounds", func(t *testing.T) {
		client := &fakeLLM{response: "수정안"}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		_, err = gen.DraftProposal(context.Background(), ProposalInput{
			ClauseText:   "조항",
			UnfairType:   "기타",
			ModifyReason: "해지 통지 기간을 명시해 주세요",
			Evidence:     sampleEvidence(),
		})
		require.NoError(t, err)
		assert.Contains(t, client.prompts[0], "해지 통지 기간을 명시해 주세요")
		assert.Contains(t, client.prompts[0], "우선할 것")
	})

	t.Run("no-evidence caveat replaces evidence block", func(t *testing.T) {
		client := &fakeLLM{response: "수정안"}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		_, err = gen.DraftProposal(context.Background(), ProposalInput{
			ClauseText: "조항",
			UnfairType: "기타",
		})
		require.NoError(t, err)
		assert.Contains(t, client.prompts[0], NoEvidenceCaveat)
		assert.NotContains(t, client.prompts[0], "[관련 판례]")
	})

	t.Run("backend error wrapped", func(t *testing.T) {
		client := &fakeLLM{err: errors.New("timeout")}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		_, err = gen.DraftProposal(context.Background(), ProposalInput{ClauseText: "조항", UnfairType: "기타"})
		assert.ErrorContains(t, err, "proposal generation failed")
	})

	t.Run("empty draft is an error", func(t *testing.T) {
		client := &fakeLLM{response: "   "}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		_, err = gen.DraftProposal(context.Background(), ProposalInput{ClauseText: "조항", UnfairType: "기타"})
		assert.ErrorContains(t, err, "empty")
	})
}

func TestGenerator_FairReport(t *testing.T) {
	t.Run("report cites retrieved evidence", func(t *testing.T) {
		client := &fakeLLM{response: "이 조항은 상호 해지권을 보장하므로 공정합니다."}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		got, err := gen.FairReport(context.Background(), "양 당사자는 30일 전 통지로 해지할 수 있다.", sampleEvidence())
		require.NoError(t, err)
		assert.Contains(t, got, "공정합니다")
		assert.Contains(t, client.prompts[0], "양 당사자는 30일 전 통지로 해지할 수 있다.")
		assert.Contains(t, client.prompts[0], "공정한 것으로 분류")
	})

	t.Run("no evidence still produces a report with caveat", func(t *testing.T) {
		client := &fakeLLM{response: "근거 문서는 없으나 일반 원칙상 공정합니다."}
		gen, err := NewGenerator(client)
		require.NoError(t, err)

		_, err = gen.FairReport(context.Background(), "조항", evidence.RetrievalResult{})
		require.NoError(t, err)
		assert.Contains(t, client.prompts[0], NoEvidenceCaveat)
	})
}

func TestFormatEvidence_Numbering(t *testing.T) {
	ev := evidence.RetrievalResult{
		Cases: []datatypes.EvidenceItem{
			{Content: "판례 하나"},
			{Content: "판례 둘"},
		},
	}
	formatted := FormatEvidence(ev)
	assert.Contains(t, formatted, "1. 판례 하나")
	assert.Contains(t, formatted, "2. 판례 둘")
	assert.NotContains(t, formatted, "[관련 법령]")
}
