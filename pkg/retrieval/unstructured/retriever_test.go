package unstructured

import (
	"context"
	"errors"
	"testing"

	"civic-chat-be/internal/entity"
	"civic-chat-be/internal/repository/contract"
	"civic-chat-be/pkg/embedding"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

type stubIndex struct {
	results   []*contract.ScoredDocumentEmbedding
	err       error
	lastLimit int
}

func (s *stubIndex) SearchSimilarWithScore(ctx context.Context, queryEmbedding []float32, limit int) ([]*contract.ScoredDocumentEmbedding, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

func (s *stubIndex) Create(ctx context.Context, e *entity.DocumentEmbedding) error { return nil }
func (s *stubIndex) CreateBulk(ctx context.Context, es []*entity.DocumentEmbedding) error {
	return nil
}
func (s *stubIndex) Delete(ctx context.Context, id uuid.UUID) error          { return nil }
func (s *stubIndex) DeleteBySource(ctx context.Context, source string) error { return nil }
func (s *stubIndex) Count(ctx context.Context) (int64, error)                { return 0, nil }

type stubGateway struct {
	answer string
	err    error
	calls  int
}

func (s *stubGateway) PlanReuse(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (bool, error) {
	return false, nil
}
func (s *stubGateway) ClassifyMode(ctx context.Context, question string, recent []router.Turn) (router.Mode, error) {
	return router.ModeUnstructured, nil
}
func (s *stubGateway) DraftSQL(ctx context.Context, question, schema string, recent []router.Turn) (string, error) {
	return "", nil
}
func (s *stubGateway) DraftSQLAnswer(ctx context.Context, question, resultBlock string) (string, error) {
	return "", nil
}
func (s *stubGateway) DraftRAGAnswer(ctx context.Context, question, contextBlock string, recent []router.Turn) (string, error) {
	s.calls++
	return s.answer, s.err
}
func (s *stubGateway) MergeAnswers(ctx context.Context, question, sqlAnswer, ragAnswer string) (string, error) {
	return "", nil
}
func (s *stubGateway) AnswerFromHistory(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (string, error) {
	return "", nil
}

func scoredDoc(text, source, docType string, distance float64) *contract.ScoredDocumentEmbedding {
	return &contract.ScoredDocumentEmbedding{
		Embedding: &entity.DocumentEmbedding{
			Document: text,
			Source:   source,
			DocType:  docType,
		},
		Distance: distance,
	}
}

func TestRetrieveHappyPath(t *testing.T) {
	index := &stubIndex{results: []*contract.ScoredDocumentEmbedding{
		scoredDoc("Residents want more lighting.", "survey.pdf", "survey", 0.3),
		scoredDoc("Meeting covered park cleanup.", "minutes.pdf", "minutes", 0.5),
	}}
	gw := &stubGateway{answer: "Residents want more lighting and park cleanup."}
	r := NewRetriever(gw, &stubEmbedder{}, index, 5, 10, 0.9, nil)

	result, err := r.Retrieve(context.Background(), "What do residents want?", 0, nil)

	assert.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
	assert.Equal(t, "Residents want more lighting and park cleanup.", result.AnswerFragment)
	assert.Equal(t, 5, index.lastLimit, "k defaults to configured kDefault")
}

func TestRetrieveClampsK(t *testing.T) {
	index := &stubIndex{}
	r := NewRetriever(&stubGateway{}, &stubEmbedder{}, index, 5, 10, 0.9, nil)

	_, err := r.Retrieve(context.Background(), "q", 50, nil)

	assert.NoError(t, err)
	assert.Equal(t, 10, index.lastLimit, "k above the cap is clamped")
}

func TestRetrieveDropsDistantChunks(t *testing.T) {
	index := &stubIndex{results: []*contract.ScoredDocumentEmbedding{
		scoredDoc("near", "a.pdf", "report", 0.2),
		scoredDoc("far", "b.pdf", "report", 0.95),
	}}
	gw := &stubGateway{answer: "Only the near chunk matters."}
	r := NewRetriever(gw, &stubEmbedder{}, index, 5, 10, 0.9, nil)

	result, err := r.Retrieve(context.Background(), "q", 0, nil)

	assert.NoError(t, err)
	assert.Len(t, result.Chunks, 1)
	assert.Equal(t, "near", result.Chunks[0].Text)
}

func TestRetrieveNormalizesMissingSource(t *testing.T) {
	index := &stubIndex{results: []*contract.ScoredDocumentEmbedding{
		scoredDoc("orphan chunk", "", "report", 0.2),
	}}
	gw := &stubGateway{answer: "answer"}
	r := NewRetriever(gw, &stubEmbedder{}, index, 5, 10, 0.9, nil)

	result, err := r.Retrieve(context.Background(), "q", 0, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Unknown", result.Chunks[0].Source)
}

func TestRetrieveEmptyIndexReturnsLiteral(t *testing.T) {
	gw := &stubGateway{}
	r := NewRetriever(gw, &stubEmbedder{}, &stubIndex{}, 5, 10, 0.9, nil)

	result, err := r.Retrieve(context.Background(), "q", 0, nil)

	assert.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Equal(t, "No relevant documents found.", result.AnswerFragment)
	assert.Zero(t, gw.calls, "no model call when nothing survives the filter")
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	r := NewRetriever(&stubGateway{}, &stubEmbedder{err: errors.New("api down")}, &stubIndex{}, 5, 10, 0.9, nil)

	_, err := r.Retrieve(context.Background(), "q", 0, nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindEmbeddingFailure, retErr.Kind)
}

func TestRetrieveIndexUnavailable(t *testing.T) {
	index := &stubIndex{err: errors.New("connection refused")}
	r := NewRetriever(&stubGateway{}, &stubEmbedder{}, index, 5, 10, 0.9, nil)

	_, err := r.Retrieve(context.Background(), "q", 0, nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindIndexUnavailable, retErr.Kind)
}

func TestRetrieveGatewayErrorPassesThrough(t *testing.T) {
	index := &stubIndex{results: []*contract.ScoredDocumentEmbedding{
		scoredDoc("text", "a.pdf", "report", 0.2),
	}}
	contractErr := &gateway.ModelContractError{Op: "DraftRAGAnswer", Output: "garbage"}
	gw := &stubGateway{err: contractErr}
	r := NewRetriever(gw, &stubEmbedder{}, index, 5, 10, 0.9, nil)

	_, err := r.Retrieve(context.Background(), "q", 0, nil)

	var got *gateway.ModelContractError
	assert.ErrorAs(t, err, &got, "contract errors surface untagged")
	var retErr *Error
	assert.False(t, errors.As(err, &retErr))
}
