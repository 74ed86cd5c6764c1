package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/evidence"
	"github.com/AleutianAI/FairClause/services/review/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioClause passes rule validation: long enough and carries contract
// keywords.
const scenarioClause = "이용자가 본 서비스를 부정 이용시 회사는 사전 통지 없이 계약을 즉시 해지할 수 있다"

// =============================================================================
// Fakes
// =============================================================================

type fakeValidator struct {
	ok     bool
	reason string
	calls  int
}

func (f *fakeValidator) Validate(string) (bool, string) {
	f.calls++
	return f.ok, f.reason
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(text string) string { return text }

type fakeClassifier struct {
	results []datatypes.ClassifyResult
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(context.Context, string) (datatypes.ClassifyResult, error) {
	f.calls++
	if f.err != nil {
		return datatypes.ClassifyResult{}, f.err
	}
	i := f.calls - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}

type fakeTypifier struct {
	unfairType string
	err        error
	calls      int
}

func (f *fakeTypifier) Typify(context.Context, string) (string, error) {
	f.calls++
	return f.unfairType, f.err
}

type retrieveCall struct {
	unfairType string
	threshold  float64
}

type fakeSearcher struct {
	result evidence.RetrievalResult
	err    error
	calls  []retrieveCall
}

func (f *fakeSearcher) Retrieve(_ context.Context, unfairType, _ string, threshold float64) (evidence.RetrievalResult, error) {
	f.calls = append(f.calls, retrieveCall{unfairType: unfairType, threshold: threshold})
	if f.err != nil {
		return evidence.RetrievalResult{}, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	proposal      string
	proposalErr   error
	proposalCalls []generate.ProposalInput
	report        string
	reportErr     error
	reportCalls   int
}

func (f *fakeGenerator) DraftProposal(_ context.Context, in generate.ProposalInput) (string, error) {
	f.proposalCalls = append(f.proposalCalls, in)
	if f.proposalErr != nil {
		return "", f.proposalErr
	}
	return f.proposal, nil
}

func (f *fakeGenerator) FairReport(context.Context, string, evidence.RetrievalResult) (string, error) {
	f.reportCalls++
	if f.reportErr != nil {
		return "", f.reportErr
	}
	return f.report, nil
}

type memStore struct {
	sessions map[string]*datatypes.ReviewState
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*datatypes.ReviewState{}}
}

func (m *memStore) Save(_ context.Context, s *datatypes.ReviewState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (*datatypes.ReviewState, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memStore) List(context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

type recordingLogger struct {
	records []datatypes.ResultRecord
	err     error
}

func (r *recordingLogger) Append(_ context.Context, record datatypes.ResultRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *recordingLogger) statuses() []string {
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Status
	}
	return out
}

// harness bundles an engine with its fakes for assertions.
type harness struct {
	engine     *Engine
	validator  *fakeValidator
	classifier *fakeClassifier
	typifier   *fakeTypifier
	searcher   *fakeSearcher
	generator  *fakeGenerator
	store      *memStore
	results    *recordingLogger
}

// newHarness wires an engine whose fakes walk the unfair path by default.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		validator: &fakeValidator{ok: true},
		classifier: &fakeClassifier{results: []datatypes.ClassifyResult{
			{Label: datatypes.FairnessUnfair, Confidence: 0.9},
		}},
		typifier: &fakeTypifier{unfairType: "계약해지 사유 포괄적"},
		searcher: &fakeSearcher{result: evidence.RetrievalResult{
			Cases: []datatypes.EvidenceItem{{Content: "판례", Similarity: 0.8}},
		}},
		generator: &fakeGenerator{proposal: "개선안 초안", report: "공정 보고서"},
		store:     newMemStore(),
		results:   &recordingLogger{},
	}
	eng, err := New(Config{
		Validator:  h.validator,
		Normalizer: fakeNormalizer{},
		Classifier: h.classifier,
		Typifier:   h.typifier,
		Searcher:   h.searcher,
		Generator:  h.generator,
		Store:      h.store,
		Results:    h.results,
	})
	require.NoError(t, err)
	h.engine = eng
	return h
}

func feedback(decision datatypes.FeedbackDecision, action datatypes.RetryAction, reason string) datatypes.FeedbackPayload {
	return datatypes.FeedbackPayload{Feedback: decision, RetryAction: action, ModifyReason: reason}
}

// =============================================================================
// Start
// =============================================================================

func TestEngine_Start_UnfairPath(t *testing.T) {
	h := newHarness(t)

	out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
	require.NoError(t, err)

	assert.True(t, out.AwaitingFeedback)
	assert.Equal(t, datatypes.StageAwaitFeedback, out.Stage)
	assert.Equal(t, 1, out.Iteration)
	assert.Equal(t, datatypes.MaxIterations, out.MaxIterations)
	assert.Equal(t, datatypes.FairnessUnfair, out.FairnessLabel)
	assert.Equal(t, "계약해지 사유 포괄적", out.UnfairType)
	assert.Equal(t, "개선안 초안", out.Proposal)

	// Suspension persisted the snapshot.
	saved, err := h.engine.Get(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StageAwaitFeedback, saved.Current)
	assert.NotEmpty(t, saved.RetrievedCases)

	require.Len(t, h.searcher.calls, 1)
	assert.Equal(t, "계약해지 사유 포괄적", h.searcher.calls[0].unfairType)
	assert.InDelta(t, 0.5, h.searcher.calls[0].threshold, 1e-9)
}

func TestEngine_Start_ValidationShortCircuit(t *testing.T) {
	h := newHarness(t)
	h.validator.ok = false
	h.validator.reason = "약관 조항으로 보기 어렵습니다"

	out, err := h.engine.Start(context.Background(), "?", 0.5)
	require.NoError(t, err)

	assert.Equal(t, datatypes.StageTerminal, out.Stage)
	assert.True(t, out.ValidationFailed)
	assert.Equal(t, "약관 조항으로 보기 어렵습니다", out.ValidationReason)

	// Nothing downstream ran.
	assert.Zero(t, h.classifier.calls)
	assert.Zero(t, h.typifier.calls)
	assert.Empty(t, h.searcher.calls)
	assert.Empty(t, h.generator.proposalCalls)
	assert.Equal(t, []string{datatypes.StatusInputRejected}, h.results.statuses())

	saved, err := h.engine.Get(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Contains(t, saved.CleanedText, InputRejectedMarker)
}

func TestEngine_Start_FairPath(t *testing.T) {
	h := newHarness(t)
	h.classifier.results = []datatypes.ClassifyResult{
		{Label: datatypes.FairnessFair, Confidence: 0.95},
	}

	out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
	require.NoError(t, err)

	assert.Equal(t, datatypes.StageTerminal, out.Stage)
	assert.False(t, out.AwaitingFeedback)
	assert.Equal(t, datatypes.FairnessFair, out.FairnessLabel)
	assert.Empty(t, out.UnfairType)
	assert.Equal(t, "공정 보고서", out.Proposal)
	assert.Equal(t, 1, out.Iteration)

	// Fair sessions never typify and never draft proposals.
	assert.Zero(t, h.typifier.calls)
	assert.Empty(t, h.generator.proposalCalls)
	assert.Equal(t, 1, h.generator.reportCalls)
	assert.Equal(t, []string{datatypes.StatusFairReport}, h.results.statuses())

	// Retrieval still ran, with no unfair type in the query.
	require.Len(t, h.searcher.calls, 1)
	assert.Empty(t, h.searcher.calls[0].unfairType)
}

func TestEngine_Start_DefaultThreshold(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Start(context.Background(), scenarioClause, 0)
	require.NoError(t, err)
	assert.InDelta(t, datatypes.DefaultSimilarityThreshold, h.searcher.calls[0].threshold, 1e-9)
}

// =============================================================================
// Fairness retry loop
// =============================================================================

func TestEngine_FairnessRetry(t *testing.T) {
	t.Run("retries until confident", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.results = []datatypes.ClassifyResult{
			{Label: datatypes.FairnessUnfair, Confidence: 0.4},
			{Label: datatypes.FairnessUnset, Confidence: 0},
			{Label: datatypes.FairnessUnfair, Confidence: 0.85},
		}

		out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
		require.NoError(t, err)

		assert.Equal(t, 3, h.classifier.calls)
		saved, err := h.engine.Get(context.Background(), out.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 2, saved.FairnessRetryCount)
		assert.Len(t, saved.ResultsHistory, 3)
		assert.InDelta(t, 0.85, saved.FairnessConfidence, 1e-9)
	})

	t.Run("exhaustion picks the most confident label seen", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.results = []datatypes.ClassifyResult{
			{Label: datatypes.FairnessUnfair, Confidence: 0.3},
			{Label: datatypes.FairnessFair, Confidence: 0.6},
			{Label: datatypes.FairnessUnfair, Confidence: 0.5},
			{Label: datatypes.FairnessUnfair, Confidence: 0.2},
		}

		out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
		require.NoError(t, err)

		assert.Equal(t, FairnessMaxRetries+1, h.classifier.calls)
		assert.Equal(t, datatypes.FairnessFair, out.FairnessLabel)
		assert.Equal(t, datatypes.StageTerminal, out.Stage)
	})

	t.Run("unparsable history falls back to unfair", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.results = []datatypes.ClassifyResult{
			{Label: datatypes.FairnessUnset, Confidence: 0},
		}

		out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
		require.NoError(t, err)
		assert.Equal(t, datatypes.FairnessUnfair, out.FairnessLabel)
		assert.True(t, out.AwaitingFeedback)
	})
}

// =============================================================================
// Feedback routing
// =============================================================================

func startSuspended(t *testing.T, h *harness) string {
	t.Helper()
	out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
	require.NoError(t, err)
	require.True(t, out.AwaitingFeedback)
	return out.SessionID
}

func TestEngine_Resume_Approved(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	out, err := h.engine.Resume(context.Background(), id,
		feedback(datatypes.FeedbackApproved, datatypes.RetryActionUnset, ""))
	require.NoError(t, err)

	assert.Equal(t, datatypes.StageTerminal, out.Stage)
	assert.Equal(t, 1, out.Iteration)
	assert.Equal(t, []string{datatypes.StatusApproved}, h.results.statuses())
	// One proposal total; approval regenerates nothing.
	assert.Len(t, h.generator.proposalCalls, 1)
}

func TestEngine_Resume_RejectedDiscard(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	out, err := h.engine.Resume(context.Background(), id,
		feedback(datatypes.FeedbackRejected, datatypes.RetryActionDiscard, ""))
	require.NoError(t, err)

	assert.Equal(t, datatypes.StageTerminal, out.Stage)
	assert.Equal(t, []string{datatypes.StatusRejectedDiscard}, h.results.statuses())
}

func TestEngine_Resume_RejectedRetry(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	// Leave a modify reason behind to prove retry clears it.
	h.store.sessions[id].ModifyReason = "이전 수정 요청"

	out, err := h.engine.Resume(context.Background(), id,
		feedback(datatypes.FeedbackRejected, datatypes.RetryActionRetry, ""))
	require.NoError(t, err)

	assert.True(t, out.AwaitingFeedback)
	assert.Equal(t, 2, out.Iteration)
	assert.Equal(t, []string{datatypes.StatusRejectedRetry}, h.results.statuses())

	require.Len(t, h.generator.proposalCalls, 2)
	assert.Empty(t, h.generator.proposalCalls[1].ModifyReason)
}

func TestEngine_Resume_ModifyCarriesReason(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	out, err := h.engine.Resume(context.Background(), id,
		feedback(datatypes.FeedbackModify, datatypes.RetryActionUnset, "해지 통지 기간을 명시해 주세요"))
	require.NoError(t, err)

	assert.True(t, out.AwaitingFeedback)
	assert.Equal(t, 2, out.Iteration)
	assert.Equal(t, []string{datatypes.StatusModifyRequest}, h.results.statuses())

	require.Len(t, h.generator.proposalCalls, 2)
	assert.Equal(t, "해지 통지 기간을 명시해 주세요", h.generator.proposalCalls[1].ModifyReason)
}

func TestEngine_Resume_ModifySequenceHitsCap(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	modify := func(reason string) ReviewOutcome {
		out, err := h.engine.Resume(context.Background(), id,
			feedback(datatypes.FeedbackModify, datatypes.RetryActionUnset, reason))
		require.NoError(t, err)
		return out
	}

	out := modify("첫 번째 수정")
	assert.Equal(t, 2, out.Iteration)
	out = modify("두 번째 수정")
	assert.Equal(t, 3, out.Iteration)

	// Third modify arrives at the cap: forced approval, last draft stands.
	out = modify("세 번째 수정")
	assert.Equal(t, datatypes.StageTerminal, out.Stage)
	assert.Equal(t, 3, out.Iteration)
	assert.Equal(t, "개선안 초안", out.Proposal)

	assert.Len(t, h.generator.proposalCalls, 3)
	assert.Equal(t, []string{
		datatypes.StatusModifyRequest,
		datatypes.StatusModifyRequest,
		datatypes.StatusMaxIterationReached,
	}, h.results.statuses())

	saved, err := h.engine.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, datatypes.FeedbackApproved, saved.UserFeedback)
}

func TestEngine_Resume_RetryAtCapForcesApproval(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)
	h.store.sessions[id].Iteration = datatypes.MaxIterations

	out, err := h.engine.Resume(context.Background(), id,
		feedback(datatypes.FeedbackRejected, datatypes.RetryActionRetry, ""))
	require.NoError(t, err)

	assert.Equal(t, datatypes.StageTerminal, out.Stage)
	assert.Equal(t, datatypes.MaxIterations, out.Iteration)
	assert.Equal(t, []string{datatypes.StatusMaxIterationReached}, h.results.statuses())
	assert.Len(t, h.generator.proposalCalls, 1)
}

func TestEngine_Resume_InvalidPayload(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	_, err := h.engine.Resume(context.Background(), id,
		feedback(datatypes.FeedbackModify, datatypes.RetryActionUnset, "  "))

	var invalid *datatypes.InvalidFeedbackError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "modify_reason", invalid.Field)

	// Session untouched and still resumable.
	saved, err := h.engine.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StageAwaitFeedback, saved.Current)
	assert.Equal(t, 1, saved.Iteration)
}

func TestEngine_Resume_ThresholdUpdate(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	threshold := 0.8
	_, err := h.engine.Resume(context.Background(), id, datatypes.FeedbackPayload{
		Feedback:            datatypes.FeedbackModify,
		ModifyReason:        "근거를 더 엄격하게",
		SimilarityThreshold: &threshold,
	})
	require.NoError(t, err)

	saved, err := h.engine.Get(context.Background(), id)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, saved.SimilarityThreshold, 1e-9)
}

func TestEngine_Resume_SessionErrors(t *testing.T) {
	h := newHarness(t)

	t.Run("unknown session", func(t *testing.T) {
		_, err := h.engine.Resume(context.Background(), "missing",
			feedback(datatypes.FeedbackApproved, datatypes.RetryActionUnset, ""))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("terminal session", func(t *testing.T) {
		id := startSuspended(t, h)
		_, err := h.engine.Resume(context.Background(), id,
			feedback(datatypes.FeedbackApproved, datatypes.RetryActionUnset, ""))
		require.NoError(t, err)

		_, err = h.engine.Resume(context.Background(), id,
			feedback(datatypes.FeedbackApproved, datatypes.RetryActionUnset, ""))
		assert.ErrorIs(t, err, ErrSessionTerminal)
	})

	t.Run("not awaiting feedback", func(t *testing.T) {
		id := startSuspended(t, h)
		h.store.sessions[id].Current = datatypes.StageRetrieve

		_, err := h.engine.Resume(context.Background(), id,
			feedback(datatypes.FeedbackApproved, datatypes.RetryActionUnset, ""))
		assert.ErrorIs(t, err, ErrNotAwaitingFeedback)
	})
}

// =============================================================================
// Failure semantics
// =============================================================================

func TestEngine_StepErrors(t *testing.T) {
	t.Run("classifier transport failure tags the stage", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.err = errors.New("backend down")

		_, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
		var step *StepError
		require.ErrorAs(t, err, &step)
		assert.Equal(t, datatypes.StageFairnessClassify, step.Stage)
	})

	t.Run("failed step leaves state unmutated for re-entry", func(t *testing.T) {
		h := newHarness(t)
		h.searcher.err = errors.New("index unavailable")

		s := datatypes.NewReviewState(scenarioClause, 0.5)
		err := h.engine.runUntilYield(context.Background(), s)
		require.Error(t, err)

		// Position is still Retrieve with no evidence committed; clearing
		// the fault and re-running completes the session.
		assert.Equal(t, datatypes.StageRetrieve, s.Current)
		assert.Empty(t, s.RetrievedCases)

		h.searcher.err = nil
		require.NoError(t, h.engine.runUntilYield(context.Background(), s))
		assert.Equal(t, datatypes.StageAwaitFeedback, s.Current)
	})

	t.Run("result sink failure never aborts the session", func(t *testing.T) {
		h := newHarness(t)
		h.results.err = errors.New("disk full")
		h.classifier.results = []datatypes.ClassifyResult{
			{Label: datatypes.FairnessFair, Confidence: 0.9},
		}

		out, err := h.engine.Start(context.Background(), scenarioClause, 0.5)
		require.NoError(t, err)
		assert.Equal(t, datatypes.StageTerminal, out.Stage)
	})
}

// =============================================================================
// Session admin
// =============================================================================

func TestEngine_DeleteAndList(t *testing.T) {
	h := newHarness(t)
	id := startSuspended(t, h)

	ids, err := h.engine.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	require.NoError(t, h.engine.Delete(context.Background(), id))
	_, err = h.engine.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, h.engine.Delete(context.Background(), "missing"), ErrSessionNotFound)
}

func TestNew_RequiresPorts(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
