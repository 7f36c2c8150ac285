package structured

import (
	"context"
	"errors"
	"strings"
	"testing"

	"civic-chat-be/pkg/metadata"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"
	"civic-chat-be/pkg/sqlexec"

	"github.com/stretchr/testify/assert"
)

type stubMetadata struct {
	hints     []string
	schema    string
	schemaErr error
}

func (s *stubMetadata) ListTables(ctx context.Context) ([]metadata.TableInfo, error) {
	return nil, nil
}

func (s *stubMetadata) KeywordHint(ctx context.Context, question string) []string {
	return s.hints
}

func (s *stubMetadata) SchemaPrompt(ctx context.Context) (string, error) {
	return s.schema, s.schemaErr
}

type stubGateway struct {
	query     string
	queryErr  error
	answer    string
	answerErr error
}

func (s *stubGateway) PlanReuse(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (bool, error) {
	return false, nil
}
func (s *stubGateway) ClassifyMode(ctx context.Context, question string, recent []router.Turn) (router.Mode, error) {
	return router.ModeStructured, nil
}
func (s *stubGateway) DraftSQL(ctx context.Context, question, schema string, recent []router.Turn) (string, error) {
	return s.query, s.queryErr
}
func (s *stubGateway) DraftSQLAnswer(ctx context.Context, question, resultBlock string) (string, error) {
	return s.answer, s.answerErr
}
func (s *stubGateway) DraftRAGAnswer(ctx context.Context, question, contextBlock string, recent []router.Turn) (string, error) {
	return "", nil
}
func (s *stubGateway) MergeAnswers(ctx context.Context, question, sqlAnswer, ragAnswer string) (string, error) {
	return "", nil
}
func (s *stubGateway) AnswerFromHistory(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (string, error) {
	return "", nil
}

type stubExecutor struct {
	result *sqlexec.QueryResult
	err    error
}

func (s *stubExecutor) ExecuteReadOnly(ctx context.Context, query string, rowLimit int) (*sqlexec.QueryResult, error) {
	return s.result, s.err
}

func workingMetadata() *stubMetadata {
	return &stubMetadata{
		hints:  []string{"service_requests"},
		schema: "Table service_requests - 311 service requests",
	}
}

func TestRetrieveHappyPath(t *testing.T) {
	gw := &stubGateway{
		query:  "SELECT category, COUNT(*) FROM service_requests GROUP BY category",
		answer: "Potholes were the most common request.",
	}
	exec := &stubExecutor{result: &sqlexec.QueryResult{
		Columns:          []string{"category", "count"},
		Rows:             [][]any{{"pothole", int64(42)}},
		TablesReferenced: []string{"service_requests"},
	}}
	r := NewRetriever(gw, workingMetadata(), exec, 500, nil)

	result, err := r.Retrieve(context.Background(), "most common requests?", nil)

	assert.NoError(t, err)
	assert.Equal(t, "Potholes were the most common request.", result.AnswerFragment)
	assert.Equal(t, []string{"service_requests"}, result.Tables)
	assert.Equal(t, gw.query, result.Query)
}

func TestRetrieveSchemaMiss(t *testing.T) {
	md := &stubMetadata{hints: nil}
	r := NewRetriever(&stubGateway{}, md, &stubExecutor{}, 500, nil)

	_, err := r.Retrieve(context.Background(), "what is the meaning of life?", nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindSchemaMiss, retErr.Kind)
}

func TestRetrieveSchemaPromptFailure(t *testing.T) {
	md := &stubMetadata{hints: []string{"weekly_events"}, schemaErr: errors.New("catalog down")}
	r := NewRetriever(&stubGateway{}, md, &stubExecutor{}, 500, nil)

	_, err := r.Retrieve(context.Background(), "events?", nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindExecutorError, retErr.Kind)
}

func TestRetrieveDraftInvalid(t *testing.T) {
	contractErr := &gateway.ModelContractError{Op: "DraftSQL", Output: "garbage"}
	gw := &stubGateway{queryErr: contractErr}
	r := NewRetriever(gw, workingMetadata(), &stubExecutor{}, 500, nil)

	_, err := r.Retrieve(context.Background(), "requests?", nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindDraftInvalid, retErr.Kind)

	var got *gateway.ModelContractError
	assert.ErrorAs(t, err, &got, "contract error stays reachable through Unwrap")
}

func TestRetrieveRejectsMutatingDraft(t *testing.T) {
	gw := &stubGateway{query: "DELETE FROM service_requests"}
	exec := &stubExecutor{result: &sqlexec.QueryResult{}}
	r := NewRetriever(gw, workingMetadata(), exec, 500, nil)

	_, err := r.Retrieve(context.Background(), "remove everything", nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindNonReadOnlyQuery, retErr.Kind)
}

func TestRetrieveExecutorError(t *testing.T) {
	gw := &stubGateway{query: "SELECT * FROM service_requests"}
	exec := &stubExecutor{err: &sqlexec.ExecError{Kind: "timeout", Message: "canceling statement"}}
	r := NewRetriever(gw, workingMetadata(), exec, 500, nil)

	_, err := r.Retrieve(context.Background(), "requests?", nil)

	var retErr *Error
	assert.ErrorAs(t, err, &retErr)
	assert.Equal(t, KindExecutorError, retErr.Kind)
}

func TestRetrieveZeroRowsSkipsModel(t *testing.T) {
	gw := &stubGateway{query: "SELECT * FROM service_requests WHERE 1=0", answerErr: errors.New("should not be called")}
	exec := &stubExecutor{result: &sqlexec.QueryResult{
		Columns:          []string{"category"},
		Rows:             [][]any{},
		TablesReferenced: []string{"service_requests"},
	}}
	r := NewRetriever(gw, workingMetadata(), exec, 500, nil)

	result, err := r.Retrieve(context.Background(), "anything from 1850?", nil)

	assert.NoError(t, err)
	assert.Equal(t, "No matching records found.", result.AnswerFragment)
}

func TestRetrieveTruncationNote(t *testing.T) {
	gw := &stubGateway{
		query:  "SELECT * FROM incident_reports",
		answer: "There were many incidents.",
	}
	exec := &stubExecutor{result: &sqlexec.QueryResult{
		Columns:          []string{"offense"},
		Rows:             [][]any{{"larceny"}, {"vandalism"}},
		TablesReferenced: []string{"incident_reports"},
		Truncated:        true,
	}}
	r := NewRetriever(gw, workingMetadata(), exec, 500, nil)

	result, err := r.Retrieve(context.Background(), "incidents?", nil)

	assert.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.AnswerFragment, "only the first 2 matching rows were considered")
}

func TestFormatResultBlockCapsRows(t *testing.T) {
	rows := make([][]any, 80)
	for i := range rows {
		rows[i] = []any{i}
	}
	block := formatResultBlock(&sqlexec.QueryResult{
		Columns: []string{"n"},
		Rows:    rows,
	})

	assert.Contains(t, block, "(showing first 50 of 80 rows)")
	assert.Equal(t, 50+2, strings.Count(block, "\n"), "header plus 50 rows plus note")
}

func TestFormatResultBlockNulls(t *testing.T) {
	block := formatResultBlock(&sqlexec.QueryResult{
		Columns: []string{"closed_at"},
		Rows:    [][]any{{nil}},
	})

	assert.Contains(t, block, "NULL")
}
