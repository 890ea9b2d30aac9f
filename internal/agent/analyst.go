package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/warehouse"
)

// Analyst handles new_data_query: a fresh question becomes generated
// SQL, an executed result set, and a narrative summary.
type Analyst struct {
	queries    QueryGenerator
	executor   QueryExecutor
	summarizer *Summarizer
	logger     *logrus.Logger
}

// NewAnalyst creates a query initiator.
func NewAnalyst(queries QueryGenerator, executor QueryExecutor, summarizer *Summarizer, logger *logrus.Logger) *Analyst {
	return &Analyst{
		queries:    queries,
		executor:   executor,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Analyze answers a fresh, self-contained question. If the generated
// SQL fails with a non-transient execution error, generation is retried
// once with the database diagnostic so the model can correct itself;
// transient failures are already retried inside the executor.
func (a *Analyst) Analyze(ctx context.Context, question string) (*QueryResult, error) {
	query, err := a.queries.Generate(ctx, question)
	if err != nil {
		return nil, err
	}

	rs, err := a.executor.Execute(ctx, query)
	if err != nil {
		if warehouse.IsTransient(err) {
			return nil, fmt.Errorf("query failed: %w", err)
		}

		a.logger.WithError(err).Warn("Generated query failed, retrying with error feedback")
		corrected, genErr := a.queries.GenerateWithError(ctx, question, query, err.Error())
		if genErr != nil {
			return nil, fmt.Errorf("query failed and could not be corrected: %w", err)
		}
		query = corrected
		rs, err = a.executor.Execute(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("corrected query failed: %w", err)
		}
	}

	a.logger.WithField("rows", rs.RowCount()).Info("Fresh query executed")
	summary := a.summarizer.Summarize(ctx, question, rs, query)
	return &QueryResult{Summary: summary, Result: rs, SQL: query}, nil
}
