package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/models"
	"github.com/databot/databot-backend/internal/sqlgen"
	"github.com/databot/databot-backend/internal/warehouse"
)

// stubText always returns the same completion.
type stubText struct {
	out     string
	err     error
	lastReq llm.Request
}

func (s *stubText) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	return s.out, s.err
}

type stubQueries struct {
	generated     string
	generateErr   error
	corrected     string
	correctedErr  error
	refinement    *sqlgen.Refinement
	refineErr     error
	correctCalls  int
	gotFailedSQL  string
	gotDBError    string
	gotRefinement string
}

func (s *stubQueries) Generate(ctx context.Context, question string) (string, error) {
	return s.generated, s.generateErr
}

func (s *stubQueries) GenerateWithError(ctx context.Context, question, failedSQL, dbError string) (string, error) {
	s.correctCalls++
	s.gotFailedSQL = failedSQL
	s.gotDBError = dbError
	return s.corrected, s.correctedErr
}

func (s *stubQueries) Refine(ctx context.Context, originalSQL, originalQuestion, refinementRequest string) (*sqlgen.Refinement, error) {
	s.gotRefinement = refinementRequest
	return s.refinement, s.refineErr
}

// stubExecutor fails per-query based on the failures map.
type stubExecutor struct {
	failures map[string]error
	results  map[string]*models.ResultSet
	calls    []string
}

func (s *stubExecutor) Execute(ctx context.Context, query string) (*models.ResultSet, error) {
	s.calls = append(s.calls, query)
	if err, ok := s.failures[query]; ok {
		return nil, err
	}
	if rs, ok := s.results[query]; ok {
		return rs, nil
	}
	return rowsOf(3), nil
}

func newTestSummarizer(out string) *Summarizer {
	return NewSummarizer(&stubText{out: out}, newTestLogger())
}

func TestAnalyst_HappyPath(t *testing.T) {
	queries := &stubQueries{generated: "SELECT * FROM users"}
	executor := &stubExecutor{}
	analyst := NewAnalyst(queries, executor, newTestSummarizer("Found 3 users."), newTestLogger())

	result, err := analyst.Analyze(context.Background(), "show users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", result.SQL)
	assert.Equal(t, 3, result.Result.RowCount())
	assert.Equal(t, "Found 3 users.", result.Summary)
	assert.Zero(t, queries.correctCalls)
}

func TestAnalyst_SelfCorrectsOnExecutionError(t *testing.T) {
	execErr := &warehouse.ExecError{Err: errors.New(`column "citty" does not exist`)}
	queries := &stubQueries{
		generated: "SELECT citty FROM users",
		corrected: "SELECT city FROM users",
	}
	executor := &stubExecutor{
		failures: map[string]error{"SELECT citty FROM users": execErr},
	}
	analyst := NewAnalyst(queries, executor, newTestSummarizer("done"), newTestLogger())

	result, err := analyst.Analyze(context.Background(), "show cities")
	require.NoError(t, err)
	assert.Equal(t, "SELECT city FROM users", result.SQL)
	assert.Equal(t, 1, queries.correctCalls)
	assert.Equal(t, "SELECT citty FROM users", queries.gotFailedSQL)
	assert.Contains(t, queries.gotDBError, "citty")
	assert.Equal(t, []string{"SELECT citty FROM users", "SELECT city FROM users"}, executor.calls)
}

func TestAnalyst_TransientErrorNotSelfCorrected(t *testing.T) {
	execErr := &warehouse.ExecError{Err: errors.New("timeout"), Transient: true}
	queries := &stubQueries{generated: "SELECT * FROM big"}
	executor := &stubExecutor{
		failures: map[string]error{"SELECT * FROM big": execErr},
	}
	analyst := NewAnalyst(queries, executor, newTestSummarizer("done"), newTestLogger())

	_, err := analyst.Analyze(context.Background(), "show everything")
	require.Error(t, err)
	assert.Zero(t, queries.correctCalls, "timeouts are not a prompt problem")
}

func TestAnalyst_CorrectedQueryStillFailing(t *testing.T) {
	queries := &stubQueries{
		generated: "SELECT a FROM t",
		corrected: "SELECT b FROM t",
	}
	executor := &stubExecutor{
		failures: map[string]error{
			"SELECT a FROM t": &warehouse.ExecError{Err: errors.New("syntax error")},
			"SELECT b FROM t": &warehouse.ExecError{Err: errors.New("syntax error")},
		},
	}
	analyst := NewAnalyst(queries, executor, newTestSummarizer("done"), newTestLogger())

	_, err := analyst.Analyze(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, 1, queries.correctCalls, "only one correction attempt")
}

func TestAnalyst_GenerationError(t *testing.T) {
	queries := &stubQueries{generateErr: sqlgen.ErrGeneration}
	executor := &stubExecutor{}
	analyst := NewAnalyst(queries, executor, newTestSummarizer("done"), newTestLogger())

	_, err := analyst.Analyze(context.Background(), "nonsense")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlgen.ErrGeneration)
	assert.Empty(t, executor.calls)
}
