package gateway

import (
	"context"
	"errors"
	"testing"

	"civic-chat-be/pkg/llm"
	"civic-chat-be/pkg/router"

	"github.com/stretchr/testify/assert"
)

// scriptedProvider replays canned completions in order.
type scriptedProvider struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.responses) {
		return "", errors.New("scripted provider exhausted")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func TestPlanReuseParsesToken(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"REUSE"}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	reuse, err := gw.PlanReuse(context.Background(), "And potholes?", nil, router.CacheDigest{})

	assert.NoError(t, err)
	assert.True(t, reuse)
	assert.Equal(t, 1, provider.calls)
}

func TestPlanReuseToleratesDecoration(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"```\nREFRESH\n```"}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	reuse, err := gw.PlanReuse(context.Background(), "New topic", nil, router.CacheDigest{})

	assert.NoError(t, err)
	assert.False(t, reuse)
}

func TestPlanReuseRetriesThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"I think you should reuse it", "REUSE"}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	reuse, err := gw.PlanReuse(context.Background(), "And potholes?", nil, router.CacheDigest{})

	assert.NoError(t, err)
	assert.True(t, reuse)
	assert.Equal(t, 2, provider.calls)
	assert.Contains(t, provider.prompts[1], "REMINDER", "retry prompt carries the tightened reminder")
}

func TestPlanReuseContractErrorAfterRetry(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"maybe", "definitely maybe"}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	_, err := gw.PlanReuse(context.Background(), "And potholes?", nil, router.CacheDigest{})

	var contractErr *ModelContractError
	assert.ErrorAs(t, err, &contractErr)
	assert.Equal(t, "PlanReuse", contractErr.Op)
	assert.Equal(t, 2, provider.calls)
}

func TestClassifyModeMapsTokens(t *testing.T) {
	tests := []struct {
		token string
		want  router.Mode
	}{
		{"SQL", router.ModeStructured},
		{"RAG", router.ModeUnstructured},
		{"HYBRID", router.ModeHybrid},
		{"HISTORY", router.ModeHistory},
		{"sql", router.ModeStructured},
		{"  HYBRID.\n", router.ModeHybrid},
	}

	for _, tt := range tests {
		provider := &scriptedProvider{responses: []string{tt.token}}
		gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

		mode, err := gw.ClassifyMode(context.Background(), "What events are coming up?", nil)

		assert.NoError(t, err)
		assert.Equal(t, tt.want, mode, "token %q", tt.token)
	}
}

func TestDraftSQLParsesJSONObject(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"sql": "SELECT * FROM weekly_events"}`}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	query, err := gw.DraftSQL(context.Background(), "upcoming events", "schema", nil)

	assert.NoError(t, err)
	assert.Equal(t, "SELECT * FROM weekly_events", query)
}

func TestDraftSQLStripsFenceAndProse(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"Here is the query:\n```json\n{\"sql\": \"SELECT category FROM service_requests\"}\n```",
	}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	query, err := gw.DraftSQL(context.Background(), "categories", "schema", nil)

	assert.NoError(t, err)
	assert.Equal(t, "SELECT category FROM service_requests", query)
}

func TestDraftSQLEmptyQueryRetries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"sql": ""}`, `{"sql": "SELECT 1"}`}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	query, err := gw.DraftSQL(context.Background(), "anything", "schema", nil)

	assert.NoError(t, err)
	assert.Equal(t, "SELECT 1", query)
	assert.Equal(t, 2, provider.calls)
}

func TestDraftSQLContractError(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"no json here", "still no json"}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	_, err := gw.DraftSQL(context.Background(), "anything", "schema", nil)

	var contractErr *ModelContractError
	assert.ErrorAs(t, err, &contractErr)
	assert.Equal(t, "DraftSQL", contractErr.Op)
}

func TestGenerateTextRetriesOnEmpty(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"   \n", "The most common request was potholes."}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	answer, err := gw.DraftSQLAnswer(context.Background(), "most common?", "category | count")

	assert.NoError(t, err)
	assert.Equal(t, "The most common request was potholes.", answer)
	assert.Equal(t, 2, provider.calls)
}

func TestGenerateTextContractErrorOnDoubleEmpty(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"", ""}}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	_, err := gw.MergeAnswers(context.Background(), "q", "sql answer", "rag answer")

	var contractErr *ModelContractError
	assert.ErrorAs(t, err, &contractErr)
	assert.Equal(t, "MergeAnswers", contractErr.Op)
}

func TestProviderErrorIsNotContractError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	gw := NewLLMGateway(provider, DefaultTemperatures(), nil)

	_, err := gw.ClassifyMode(context.Background(), "q", nil)

	var contractErr *ModelContractError
	assert.Error(t, err)
	assert.False(t, errors.As(err, &contractErr))
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"```\nfenced\n```", "fenced"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"```{\"a\": 1}```", "{\"a\": 1}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in), "input %q", tt.in)
	}
}
