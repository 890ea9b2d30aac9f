package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/models"
)

// QueryResult is the (summary, result set, query text) triple produced
// by a fresh or refined query. The caller saves it into the session as
// one unit.
type QueryResult struct {
	Summary string
	Result  *models.ResultSet
	SQL     string
}

// Refiner handles query_refinement: it has the previous SQL modified,
// re-executes it, and re-summarizes. A failure at any step leaves the
// caller's previous result state untouched because nothing is saved
// here.
type Refiner struct {
	queries    QueryGenerator
	executor   QueryExecutor
	summarizer *Summarizer
	logger     *logrus.Logger
}

// NewRefiner creates a query refiner.
func NewRefiner(queries QueryGenerator, executor QueryExecutor, summarizer *Summarizer, logger *logrus.Logger) *Refiner {
	return &Refiner{
		queries:    queries,
		executor:   executor,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Refine modifies the original query per the refinement request and
// executes the result. The original executable SQL is passed through
// to the generator untouched; that is what keeps the refined query's
// structure aligned with the original.
func (r *Refiner) Refine(ctx context.Context, originalSQL, originalQuestion, refinementRequest string) (*QueryResult, error) {
	refinement, err := r.queries.Refine(ctx, originalSQL, originalQuestion, refinementRequest)
	if err != nil {
		return nil, err
	}

	rs, err := r.executor.Execute(ctx, refinement.SQL)
	if err != nil {
		return nil, fmt.Errorf("refined query failed: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"rows":        rs.RowCount(),
		"explanation": refinement.Explanation,
	}).Info("Refined query executed")

	summary := r.summarizer.SummarizeRefinement(ctx, originalQuestion, refinementRequest, refinement.Explanation, rs)
	return &QueryResult{Summary: summary, Result: rs, SQL: refinement.SQL}, nil
}
