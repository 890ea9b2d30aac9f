package agent

import (
	"context"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/models"
	"github.com/databot/databot-backend/internal/sqlgen"
)

// TextGenerator is the slice of the text-generation client the agents
// need.
type TextGenerator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// QueryGenerator produces and refines warehouse SQL.
type QueryGenerator interface {
	Generate(ctx context.Context, question string) (string, error)
	GenerateWithError(ctx context.Context, question, failedSQL, dbError string) (string, error)
	Refine(ctx context.Context, originalSQL, originalQuestion, refinementRequest string) (*sqlgen.Refinement, error)
}

// QueryExecutor runs SQL against the warehouse.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*models.ResultSet, error)
}

// Exporter turns a result set into a downloadable artifact.
type Exporter interface {
	Export(rs *models.ResultSet, queryText string) (*models.Artifact, error)
}
