package sqlgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/schema"
)

// ErrGeneration marks a failure to produce valid query text.
var ErrGeneration = errors.New("query generation failed")

// TextGenerator is the slice of the text-generation client the SQL
// generator needs.
type TextGenerator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Refinement is the outcome of modifying an existing query.
type Refinement struct {
	SQL         string
	Explanation string
}

const generateSystemPrompt = `You are a senior analytics engineer writing PostgreSQL for a fixed data warehouse.
Translate the user's question into ONE executable SELECT statement.

Rules:
- Use only the documented tables and columns below.
- Respect the FK links and business rules in the documentation.
- Guard against soft-delete and NULL flags where the rules mention them.
- Return ONLY the SQL, optionally inside a single sql code fence. No commentary.`

const refineSystemPrompt = `You are a senior analytics engineer refactoring PostgreSQL for a fixed data warehouse.
The user already ran a query and now wants it REFINED. Modify the given SQL; do not write a new query from scratch.

Rules:
- Preserve the original query's structure: keep its SELECT list shape, aggregations,
  GROUP BY and existing filters. Add new predicates, joins or aggregation changes on top.
- Use only the documented tables and columns below for anything you add.
- If the refinement cannot be satisfied by modifying this query (it needs a different
  base entity), say so in the explanation and return an empty "sql".

Respond with JSON: {"sql": "<modified SQL>", "explanation": "<one or two sentences on what changed>"}`

// Generator produces and refines warehouse SQL through the
// text-generation service, grounded in the schema documentation.
type Generator struct {
	generator     TextGenerator
	schemaContext string
	logger        *logrus.Logger
}

// NewGenerator creates a SQL generator over the given schema docs.
func NewGenerator(generator TextGenerator, docs *schema.Docs, logger *logrus.Logger) *Generator {
	return &Generator{
		generator:     generator,
		schemaContext: docs.PromptContext(),
		logger:        logger,
	}
}

// Generate produces a fresh query for a self-contained question.
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf("Schema documentation:\n%s\n\nQuestion: %s", g.schemaContext, question)
	return g.complete(ctx, generateSystemPrompt, prompt)
}

// GenerateWithError retries generation with execution-error feedback so
// the model can correct its own SQL.
func (g *Generator) GenerateWithError(ctx context.Context, question, failedSQL, dbError string) (string, error) {
	prompt := fmt.Sprintf(
		"Schema documentation:\n%s\n\nQuestion: %s\n\nThis SQL failed:\n%s\n\nDatabase error:\n%s\n\nProduce a corrected query.",
		g.schemaContext, question, failedSQL, dbError,
	)
	return g.complete(ctx, generateSystemPrompt, prompt)
}

func (g *Generator) complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := g.generator.Complete(ctx, llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	sql := ExtractSQL(out)
	if sql == "" {
		return "", fmt.Errorf("%w: model returned no query text", ErrGeneration)
	}
	return sql, nil
}

// Refine modifies the original executable SQL per the refinement
// request. The original query text itself is handed to the model so
// its table choices, grouping and filters survive the change.
func (g *Generator) Refine(ctx context.Context, originalSQL, originalQuestion, refinementRequest string) (*Refinement, error) {
	prompt := fmt.Sprintf(
		"Original user question:\n%s\n\nCurrent SQL:\n```sql\n%s\n```\n\nRefinement request:\n%s\n\nSchema documentation:\n%s\n\nModify the SQL to answer the refinement. Respond in JSON.",
		originalQuestion, originalSQL, refinementRequest, g.schemaContext,
	)

	out, err := g.generator.Complete(ctx, llm.Request{
		System:      refineSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   2000,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	var parsed struct {
		SQL         string `json:"sql"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unparseable refinement response: %v", ErrGeneration, err)
	}

	sql := ExtractSQL(parsed.SQL)
	if sql == "" {
		if parsed.Explanation != "" {
			return nil, fmt.Errorf("%w: %s", ErrGeneration, parsed.Explanation)
		}
		return nil, fmt.Errorf("%w: model returned no refined query", ErrGeneration)
	}

	g.logger.WithField("explanation", parsed.Explanation).Info("SQL refined")
	return &Refinement{SQL: sql, Explanation: parsed.Explanation}, nil
}

// ExtractSQL strips a markdown code fence from model output, if any.
func ExtractSQL(out string) string {
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```sql")
	out = strings.TrimPrefix(out, "```")
	if idx := strings.LastIndex(out, "```"); idx >= 0 {
		out = out[:idx]
	}
	return strings.TrimSpace(out)
}
