package sqlexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// QueryResult is the executor's report for one read-only query.
// TablesReferenced comes from the planner, not from text sniffing, so it
// reflects the tables the database actually touched.
type QueryResult struct {
	Columns          []string
	Rows             [][]any
	TablesReferenced []string
	Truncated        bool
}

// IExecutor runs model-drafted queries against the civic database.
type IExecutor interface {
	ExecuteReadOnly(ctx context.Context, query string, rowLimit int) (*QueryResult, error)
}

// ErrNonReadOnly marks statements rejected by the guard before execution.
var ErrNonReadOnly = errors.New("query is not a read-only SELECT statement")

// ExecError classifies a database failure for the retriever.
type ExecError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

type ErrorKind string

const (
	ErrorKindSyntax      ErrorKind = "syntax"
	ErrorKindUndefined   ErrorKind = "undefined_object"
	ErrorKindPrivilege   ErrorKind = "privilege"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindUnavailable ErrorKind = "unavailable"
	ErrorKindOther       ErrorKind = "other"
)

func (e *ExecError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("executor %s error (SQLSTATE %s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("executor %s error: %s", e.Kind, e.Message)
}

type executor struct {
	db *gorm.DB
}

func NewExecutor(db *gorm.DB) IExecutor {
	return &executor{db: db}
}

// ExecuteReadOnly wraps the drafted query in a probe subquery that reads
// rowLimit+1 rows: seeing the extra row is how truncation is detected
// without a COUNT pass.
func (e *executor) ExecuteReadOnly(ctx context.Context, query string, rowLimit int) (*QueryResult, error) {
	if err := GuardReadOnly(query); err != nil {
		return nil, err
	}
	if rowLimit <= 0 {
		rowLimit = 500
	}

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS probe LIMIT %d", stripTrailingSemicolon(query), rowLimit+1)

	tables, err := e.tablesFromPlan(ctx, wrapped)
	if err != nil {
		return nil, classifyDBError(err)
	}

	rows, err := e.db.WithContext(ctx).Raw(wrapped).Rows()
	if err != nil {
		return nil, classifyDBError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classifyDBError(err)
	}

	result := &QueryResult{
		Columns:          columns,
		TablesReferenced: tables,
	}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, classifyDBError(err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError(err)
	}

	if len(result.Rows) > rowLimit {
		result.Rows = result.Rows[:rowLimit]
		result.Truncated = true
	}

	return result, nil
}

// explainNode mirrors the parts of Postgres' JSON plan output we need.
type explainNode struct {
	RelationName string        `json:"Relation Name"`
	Plans        []explainNode `json:"Plans"`
}

type explainRoot struct {
	Plan explainNode `json:"Plan"`
}

// tablesFromPlan asks the planner which relations the query touches.
func (e *executor) tablesFromPlan(ctx context.Context, query string) ([]string, error) {
	var planJSON string
	if err := e.db.WithContext(ctx).Raw("EXPLAIN (FORMAT JSON) " + query).Scan(&planJSON).Error; err != nil {
		return nil, err
	}

	var roots []explainRoot
	if err := json.Unmarshal([]byte(planJSON), &roots); err != nil {
		return nil, fmt.Errorf("parse query plan: %w", err)
	}

	seen := make(map[string]bool)
	var tables []string
	var walk func(node explainNode)
	walk = func(node explainNode) {
		if node.RelationName != "" && !seen[node.RelationName] {
			seen[node.RelationName] = true
			tables = append(tables, node.RelationName)
		}
		for _, child := range node.Plans {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root.Plan)
	}
	return tables, nil
}

func classifyDBError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ExecError{Kind: ErrorKindTimeout, Message: err.Error()}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := ErrorKindOther
		switch {
		case pgErr.Code == "42601":
			kind = ErrorKindSyntax
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "42":
			// 42P01 undefined table, 42703 undefined column, 42501 privilege
			if pgErr.Code == "42501" {
				kind = ErrorKindPrivilege
			} else {
				kind = ErrorKindUndefined
			}
		case pgErr.Code == "57014":
			kind = ErrorKindTimeout
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "57"):
			kind = ErrorKindUnavailable
		}
		return &ExecError{Kind: kind, Code: pgErr.Code, Message: pgErr.Message}
	}

	return &ExecError{Kind: ErrorKindOther, Message: err.Error()}
}
