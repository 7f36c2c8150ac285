package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"civic-chat-be/pkg/retrieval/structured"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"

	"github.com/stretchr/testify/assert"
)

type stubGateway struct {
	historyAnswer string
	historyErr    error
	historyCalls  int
	mergeAnswer   string
	mergeErr      error
	mergeCalls    int
}

func (s *stubGateway) PlanReuse(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (bool, error) {
	return false, nil
}
func (s *stubGateway) ClassifyMode(ctx context.Context, question string, recent []router.Turn) (router.Mode, error) {
	return router.ModeHybrid, nil
}
func (s *stubGateway) DraftSQL(ctx context.Context, question, schema string, recent []router.Turn) (string, error) {
	return "", nil
}
func (s *stubGateway) DraftSQLAnswer(ctx context.Context, question, resultBlock string) (string, error) {
	return "", nil
}
func (s *stubGateway) DraftRAGAnswer(ctx context.Context, question, contextBlock string, recent []router.Turn) (string, error) {
	return "", nil
}
func (s *stubGateway) MergeAnswers(ctx context.Context, question, sqlAnswer, ragAnswer string) (string, error) {
	s.mergeCalls++
	return s.mergeAnswer, s.mergeErr
}
func (s *stubGateway) AnswerFromHistory(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (string, error) {
	s.historyCalls++
	return s.historyAnswer, s.historyErr
}

type stubJudge struct {
	verdict router.ReuseVerdict
	calls   int
}

func (s *stubJudge) ShouldReuse(ctx context.Context, question string, recent []router.Turn, entry *router.CacheEntry) router.ReuseVerdict {
	s.calls++
	return s.verdict
}

type stubClassifier struct {
	mode       router.Mode
	lastRecent []router.Turn
}

func (s *stubClassifier) Classify(ctx context.Context, question string, recent []router.Turn) router.RoutingPlan {
	s.lastRecent = recent
	return router.RoutingPlan{Mode: s.mode}
}

type stubStructured struct {
	result *router.StructuredResult
	err    error
	calls  int
}

func (s *stubStructured) Retrieve(ctx context.Context, question string, recent []router.Turn) (*router.StructuredResult, error) {
	s.calls++
	return s.result, s.err
}

type stubUnstructured struct {
	result *router.UnstructuredResult
	err    error
	calls  int
}

func (s *stubUnstructured) Retrieve(ctx context.Context, question string, k int, recent []router.Turn) (*router.UnstructuredResult, error) {
	s.calls++
	return s.result, s.err
}

type stubSessions struct {
	entry *router.CacheEntry
	puts  []*router.CacheEntry
}

func (s *stubSessions) Get(sessionID string) (*router.CacheEntry, bool) {
	return s.entry, s.entry != nil
}

func (s *stubSessions) Put(sessionID string, update *router.CacheEntry) {
	s.puts = append(s.puts, update)
}

type stubHinter struct {
	hints []string
}

func (s *stubHinter) KeywordHint(ctx context.Context, question string) []string {
	return s.hints
}

type fixture struct {
	gateway      *stubGateway
	judge        *stubJudge
	classifier   *stubClassifier
	structured   *stubStructured
	unstructured *stubUnstructured
	sessions     *stubSessions
	hinter       *stubHinter
	pipeline     *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		gateway:    &stubGateway{},
		judge:      &stubJudge{verdict: router.ReuseVerdict{Reuse: false, Reason: router.ReasonNoHistory}},
		classifier: &stubClassifier{mode: router.ModeHybrid},
		structured: &stubStructured{result: &router.StructuredResult{
			AnswerFragment: "sql answer",
			Tables:         []string{"service_requests"},
		}},
		unstructured: &stubUnstructured{result: &router.UnstructuredResult{
			AnswerFragment: "rag answer",
			Chunks:         []router.Chunk{{Text: "chunk", Source: "survey.pdf", DocType: "survey"}},
		}},
		sessions: &stubSessions{},
		hinter:   &stubHinter{},
	}
	f.pipeline = NewPipeline(
		f.gateway, f.judge, f.classifier, f.structured, f.unstructured,
		f.sessions, f.hinter, Options{}, nil,
	)
	return f
}

func TestHandleTurnEmptyQuestion(t *testing.T) {
	f := newFixture()

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "   \n\t", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Please enter a question.", reply.Answer)
	assert.Equal(t, router.ModeHistory, reply.Mode)
	assert.Empty(t, reply.Sources)
	assert.NotNil(t, reply.Sources, "sources serialize as [], not null")
	assert.Zero(t, f.judge.calls, "no model work for an empty question")
}

func TestHandleTurnReuseServesFromHistory(t *testing.T) {
	f := newFixture()
	f.sessions.entry = &router.CacheEntry{
		Question:   "How many potholes?",
		Answer:     "42 potholes.",
		Mode:       router.ModeStructured,
		Structured: &router.StructuredResult{Tables: []string{"service_requests"}},
	}
	f.judge.verdict = router.ReuseVerdict{Reuse: true, Reason: router.ReasonModelJudged}
	f.gateway.historyAnswer = "Still 42 potholes."

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "And how many was that?", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Still 42 potholes.", reply.Answer)
	assert.Equal(t, router.ModeHistory, reply.Mode)
	assert.Equal(t, []router.SourceCitation{{Type: "sql", Table: "service_requests"}}, reply.Sources)
	assert.Zero(t, f.structured.calls)
	assert.Zero(t, f.unstructured.calls)
}

func TestHandleTurnHistoryDemotedOnColdCache(t *testing.T) {
	f := newFixture()
	f.classifier.mode = router.ModeHistory
	f.gateway.mergeAnswer = "merged answer"

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "What did we talk about?", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeHybrid, reply.Mode)
	assert.Equal(t, "merged answer", reply.Answer)
	assert.Equal(t, 1, f.structured.calls)
	assert.Equal(t, 1, f.unstructured.calls)
	assert.Zero(t, f.gateway.historyCalls)
}

func TestHandleTurnHistoryWithWarmCache(t *testing.T) {
	f := newFixture()
	f.classifier.mode = router.ModeHistory
	f.sessions.entry = &router.CacheEntry{
		Question:     "What do residents want?",
		Answer:       "More lighting.",
		Unstructured: &router.UnstructuredResult{Chunks: []router.Chunk{{Source: "survey.pdf", DocType: "survey"}}},
	}
	f.gateway.historyAnswer = "They asked for more lighting."

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "Remind me?", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeHistory, reply.Mode)
	assert.Equal(t, "They asked for more lighting.", reply.Answer)
	assert.Zero(t, f.structured.calls)
	assert.Zero(t, f.unstructured.calls)
}

func TestHandleTurnStructuredMode(t *testing.T) {
	f := newFixture()
	f.classifier.mode = router.ModeStructured

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "How many requests?", nil)

	assert.NoError(t, err)
	assert.Equal(t, "sql answer", reply.Answer)
	assert.Equal(t, router.ModeStructured, reply.Mode)
	assert.Zero(t, f.unstructured.calls)
	if assert.Len(t, f.sessions.puts, 1) {
		assert.NotNil(t, f.sessions.puts[0].Structured)
	}
}

func TestHandleTurnSchemaMissPromotesToUnstructured(t *testing.T) {
	f := newFixture()
	f.classifier.mode = router.ModeStructured
	f.structured.err = &structured.Error{Kind: structured.KindSchemaMiss}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "What is the city's vision?", nil)

	assert.NoError(t, err)
	assert.Equal(t, "rag answer", reply.Answer)
	assert.Equal(t, router.ModeUnstructured, reply.Mode)
	assert.Equal(t, 1, f.unstructured.calls)
}

func TestHandleTurnEmptyChunksWithHintsRetriesHybrid(t *testing.T) {
	f := newFixture()
	f.classifier.mode = router.ModeUnstructured
	f.hinter.hints = []string{"weekly_events"}
	f.gateway.mergeAnswer = "merged answer"
	f.unstructured.result = &router.UnstructuredResult{
		Chunks:         []router.Chunk{},
		AnswerFragment: "No relevant documents found.",
	}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "events this week?", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeHybrid, reply.Mode)
	assert.Equal(t, "merged answer", reply.Answer)
	assert.Equal(t, 1, f.structured.calls)
	assert.Equal(t, 2, f.unstructured.calls, "first pass plus the hybrid retry")
}

func TestHandleTurnEmptyChunksWithoutHintsStands(t *testing.T) {
	f := newFixture()
	f.classifier.mode = router.ModeUnstructured
	f.unstructured.result = &router.UnstructuredResult{
		Chunks:         []router.Chunk{},
		AnswerFragment: "No relevant documents found.",
	}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "anything about dragons?", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeUnstructured, reply.Mode)
	assert.Equal(t, "No relevant documents found.", reply.Answer)
	assert.Zero(t, f.structured.calls)
}

func TestHandleTurnHybridMergesBothSides(t *testing.T) {
	f := newFixture()
	f.gateway.mergeAnswer = "Potholes dominate requests and residents confirm it in surveys."

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "How are potholes doing?", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeHybrid, reply.Mode)
	assert.Equal(t, f.gateway.mergeAnswer, reply.Answer)
	assert.Len(t, reply.Sources, 2, "one sql citation, one rag citation")
	assert.Equal(t, "sql", reply.Sources[0].Type)
	assert.Equal(t, "rag", reply.Sources[1].Type)
	if assert.Len(t, f.sessions.puts, 1) {
		assert.NotNil(t, f.sessions.puts[0].Structured)
		assert.NotNil(t, f.sessions.puts[0].Unstructured)
	}
}

func TestHandleTurnHybridDegradesToUnstructured(t *testing.T) {
	f := newFixture()
	f.structured.err = &structured.Error{Kind: structured.KindExecutorError, Err: errors.New("timeout")}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeUnstructured, reply.Mode, "reply reports the surviving mode")
	assert.Equal(t, "rag answer", reply.Answer)
	assert.Zero(t, f.gateway.mergeCalls)
}

func TestHandleTurnHybridDegradesToStructured(t *testing.T) {
	f := newFixture()
	f.unstructured.err = errors.New("index unavailable")

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeStructured, reply.Mode)
	assert.Equal(t, "sql answer", reply.Answer)
	assert.Zero(t, f.gateway.mergeCalls)
}

func TestHandleTurnHybridDeadlinePreservesCache(t *testing.T) {
	f := newFixture()
	f.structured.err = &structured.Error{
		Kind: structured.KindExecutorError,
		Err:  context.DeadlineExceeded,
	}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, router.ModeUnstructured, reply.Mode, "surviving side still answers")
	assert.Equal(t, "rag answer", reply.Answer)
	assert.Empty(t, f.sessions.puts, "a timed-out turn must not displace cached artifacts")
}

func TestHandleTurnHybridBothSidesFail(t *testing.T) {
	f := newFixture()
	f.structured.err = &structured.Error{Kind: structured.KindExecutorError}
	f.unstructured.err = errors.New("index unavailable")

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Unable to retrieve information at this time.", reply.Answer)
	assert.Equal(t, router.ModeHybrid, reply.Mode)
	assert.Empty(t, reply.Sources)
	assert.Empty(t, f.sessions.puts, "a failed turn must not displace cached artifacts")
}

func TestHandleTurnContractErrorIsFatal(t *testing.T) {
	f := newFixture()
	f.structured.err = &structured.Error{
		Kind: structured.KindDraftInvalid,
		Err:  &gateway.ModelContractError{Op: "DraftSQL", Output: "garbage"},
	}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Unable to retrieve information at this time.", reply.Answer)
	assert.Empty(t, f.sessions.puts, "contract failure ends the turn even though the rag side survived")
}

func TestHandleTurnNonReadOnlyQueryIsFatal(t *testing.T) {
	f := newFixture()
	f.structured.err = &structured.Error{Kind: structured.KindNonReadOnlyQuery}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Unable to retrieve information at this time.", reply.Answer)
	assert.Empty(t, f.sessions.puts)
}

func TestHandleTurnMergeFailure(t *testing.T) {
	f := newFixture()
	f.gateway.mergeErr = &gateway.ModelContractError{Op: "MergeAnswers", Output: ""}

	reply, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Unable to retrieve information at this time.", reply.Answer)
	assert.Empty(t, f.sessions.puts)
}

func TestHandleTurnClampsHistoryWindow(t *testing.T) {
	f := newFixture()
	f.gateway.mergeAnswer = "answer"

	history := make([]router.Turn, 25)
	for i := range history {
		history[i] = router.Turn{Role: "user", Content: fmt.Sprintf("turn %d", i)}
	}

	_, err := f.pipeline.HandleTurn(context.Background(), "s1", "q", history)

	assert.NoError(t, err)
	assert.Len(t, f.classifier.lastRecent, 10, "default window keeps the last ten turns")
	assert.Equal(t, "turn 24", f.classifier.lastRecent[9].Content)
}
