package evidence

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedQuery captures one Search invocation for assertions.
type recordedQuery struct {
	query   string
	k       int
	docType string
}

// fakeSearcher returns canned results keyed by doc type ("" for
// unfiltered queries) and records every call.
type fakeSearcher struct {
	results map[string][]datatypes.EvidenceItem
	err     error
	calls   []recordedQuery
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int, filter *SearchFilter) ([]datatypes.EvidenceItem, error) {
	docType := ""
	if filter != nil {
		docType = filter.DocType
	}
	f.calls = append(f.calls, recordedQuery{query: query, k: k, docType: docType})
	if f.err != nil {
		return nil, f.err
	}
	return f.results[docType], nil
}

func caseItem(content string, similarity float64, laws ...string) datatypes.EvidenceItem {
	meta := map[string]any{"doc_type": datatypes.EvidenceDocTypeCase}
	if len(laws) > 0 {
		refs := make([]any, len(laws))
		for i, law := range laws {
			refs[i] = law
		}
		meta["related_laws"] = refs
	}
	return datatypes.EvidenceItem{Content: content, Similarity: similarity, Metadata: meta}
}

func lawItem(content string, similarity float64) datatypes.EvidenceItem {
	return datatypes.EvidenceItem{
		Content:    content,
		Similarity: similarity,
		Metadata:   map[string]any{"doc_type": datatypes.EvidenceDocTypeLaw},
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	t.Run("filters below-threshold cases and queries laws by related refs", func(t *testing.T) {
		searcher := &fakeSearcher{results: map[string][]datatypes.EvidenceItem{
			datatypes.EvidenceDocTypeCase: {
				caseItem("판례 A", 0.91, "약관의 규제에 관한 법률 제9조"),
				caseItem("판례 B", 0.42),
			},
			datatypes.EvidenceDocTypeLaw: {
				lawItem("약관법 제9조 전문", 0.88),
			},
		}}
		retriever, err := NewRetriever(searcher)
		require.NoError(t, err)

		got, err := retriever.Retrieve(context.Background(), "계약해지 사유 포괄적", "회사는 언제든지 계약을 해지할 수 있다", 0.5)
		require.NoError(t, err)

		require.Len(t, got.Cases, 1)
		assert.Equal(t, "판례 A", got.Cases[0].Content)
		require.Len(t, got.Laws, 1)
		assert.False(t, got.Empty())

		require.Len(t, searcher.calls, 2)
		assert.Equal(t, datatypes.EvidenceDocTypeCase, searcher.calls[0].docType)
		assert.Equal(t, "계약해지 사유 포괄적 회사는 언제든지 계약을 해지할 수 있다", searcher.calls[0].query)
		assert.Equal(t, DefaultRetrievalLimit, searcher.calls[0].k)
		assert.Equal(t, datatypes.EvidenceDocTypeLaw, searcher.calls[1].docType)
		assert.Equal(t, "약관의 규제에 관한 법률 제9조", searcher.calls[1].query)
	})

	t.Run("retries without doc_type filter when cases come back empty", func(t *testing.T) {
		searcher := &fakeSearcher{results: map[string][]datatypes.EvidenceItem{
			// Filtered query yields nothing; unfiltered yields one hit.
			"": {caseItem("혼합 문서", 0.75)},
		}}
		retriever, err := NewRetriever(searcher)
		require.NoError(t, err)

		got, err := retriever.Retrieve(context.Background(), "사업자 면책 과도", "본문", 0.5)
		require.NoError(t, err)

		require.Len(t, got.Cases, 1)
		require.Len(t, searcher.calls, 3)
		assert.Equal(t, datatypes.EvidenceDocTypeCase, searcher.calls[0].docType)
		assert.Equal(t, "", searcher.calls[1].docType)
		assert.Equal(t, datatypes.EvidenceDocTypeLaw, searcher.calls[2].docType)
	})

	t.Run("law query falls back to original text without related refs", func(t *testing.T) {
		searcher := &fakeSearcher{results: map[string][]datatypes.EvidenceItem{
			datatypes.EvidenceDocTypeCase: {caseItem("판례", 0.8)},
		}}
		retriever, err := NewRetriever(searcher)
		require.NoError(t, err)

		_, err = retriever.Retrieve(context.Background(), "기타", "조항 본문", 0.5)
		require.NoError(t, err)

		lawCall := searcher.calls[len(searcher.calls)-1]
		assert.Equal(t, datatypes.EvidenceDocTypeLaw, lawCall.docType)
		assert.Equal(t, "기타 조항 본문", lawCall.query)
	})

	t.Run("empty unfair type produces a clean query", func(t *testing.T) {
		searcher := &fakeSearcher{results: map[string][]datatypes.EvidenceItem{}}
		retriever, err := NewRetriever(searcher)
		require.NoError(t, err)

		got, err := retriever.Retrieve(context.Background(), "", "조항 본문", 0.5)
		require.NoError(t, err)

		assert.True(t, got.Empty())
		assert.Equal(t, "조항 본문", searcher.calls[0].query)
	})

	t.Run("search error is wrapped not swallowed", func(t *testing.T) {
		searcher := &fakeSearcher{err: errors.New("connection refused")}
		retriever, err := NewRetriever(searcher)
		require.NoError(t, err)

		_, err = retriever.Retrieve(context.Background(), "기타", "본문", 0.5)
		require.Error(t, err)
		assert.ErrorContains(t, err, "case retrieval failed")
	})

	t.Run("nil searcher rejected at construction", func(t *testing.T) {
		_, err := NewRetriever(nil)
		assert.Error(t, err)
	})
}

func TestNoopSearcher(t *testing.T) {
	items, err := NoopSearcher{}.Search(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
