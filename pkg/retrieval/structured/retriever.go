package structured

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"civic-chat-be/pkg/metadata"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"
	"civic-chat-be/pkg/sqlexec"
)

// FailureKind tags why a structured retrieval produced no result.
type FailureKind string

const (
	KindSchemaMiss       FailureKind = "schema_miss"
	KindDraftInvalid     FailureKind = "draft_invalid"
	KindExecutorError    FailureKind = "executor_error"
	KindNonReadOnlyQuery FailureKind = "non_read_only_query"
)

// Error is the structured side's failure report. The pipeline branches on
// Kind; Err keeps the cause for the log.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	noMatchingRecords = "No matching records found."

	// Rows shown to the answer-drafting model; the full set still reaches
	// the caller.
	maxPromptRows = 50
)

type Retriever struct {
	gateway  gateway.Gateway
	metadata metadata.IProvider
	executor sqlexec.IExecutor
	rowLimit int
	logger   *log.Logger
}

func NewRetriever(gw gateway.Gateway, md metadata.IProvider, exec sqlexec.IExecutor, rowLimit int, logger *log.Logger) *Retriever {
	if rowLimit <= 0 {
		rowLimit = 500
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{
		gateway:  gw,
		metadata: md,
		executor: exec,
		rowLimit: rowLimit,
		logger:   logger,
	}
}

// Retrieve drafts one read-only query for the question, executes it, and
// composes the structured answer fragment.
func (r *Retriever) Retrieve(ctx context.Context, question string, recent []router.Turn) (*router.StructuredResult, error) {
	hints := r.metadata.KeywordHint(ctx, question)
	if len(hints) == 0 {
		return nil, &Error{Kind: KindSchemaMiss, Err: fmt.Errorf("no plausible table for question")}
	}

	schema, err := r.metadata.SchemaPrompt(ctx)
	if err != nil {
		return nil, &Error{Kind: KindExecutorError, Err: err}
	}

	query, err := r.gateway.DraftSQL(ctx, question, schema, recent)
	if err != nil {
		return nil, &Error{Kind: KindDraftInvalid, Err: err}
	}
	r.logger.Printf("[SQL] Drafted query: %s", strings.Join(strings.Fields(query), " "))

	// Reject before execution so a mutating draft never reaches the pool
	if err := sqlexec.GuardReadOnly(query); err != nil {
		return nil, &Error{Kind: KindNonReadOnlyQuery, Err: err}
	}

	result, err := r.executor.ExecuteReadOnly(ctx, query, r.rowLimit)
	if err != nil {
		if errors.Is(err, sqlexec.ErrNonReadOnly) {
			return nil, &Error{Kind: KindNonReadOnlyQuery, Err: err}
		}
		return nil, &Error{Kind: KindExecutorError, Err: err}
	}
	r.logger.Printf("[SQL] Executed against %s: %d rows (truncated=%v)",
		strings.Join(result.TablesReferenced, ", "), len(result.Rows), result.Truncated)

	out := &router.StructuredResult{
		Columns:   result.Columns,
		Rows:      result.Rows,
		Tables:    result.TablesReferenced,
		Query:     query,
		Truncated: result.Truncated,
	}

	if len(result.Rows) == 0 {
		out.AnswerFragment = noMatchingRecords
		return out, nil
	}

	fragment, err := r.gateway.DraftSQLAnswer(ctx, question, formatResultBlock(result))
	if err != nil {
		return nil, &Error{Kind: KindDraftInvalid, Err: err}
	}
	if result.Truncated {
		fragment = fmt.Sprintf("%s\n\nNote: only the first %d matching rows were considered; the full set is larger.",
			fragment, len(result.Rows))
	}
	out.AnswerFragment = fragment
	return out, nil
}

// formatResultBlock renders the query result as the table the model reads.
func formatResultBlock(result *sqlexec.QueryResult) string {
	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString("\n")

	shown := len(result.Rows)
	if shown > maxPromptRows {
		shown = maxPromptRows
	}
	for _, row := range result.Rows[:shown] {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	if len(result.Rows) > shown {
		b.WriteString(fmt.Sprintf("(showing first %d of %d rows)\n", shown, len(result.Rows)))
	}
	if result.Truncated {
		b.WriteString("(result was truncated at the row limit)\n")
	}
	return b.String()
}
