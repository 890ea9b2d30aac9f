package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/models"
)

// exportOffer closes every data summary; the fast path recognizes it
// when the user answers with a bare "yes".
const exportOffer = "Want me to generate a table with this data? 📊"

const summarizerSystemPrompt = `You are a data analyst summarizing warehouse query results for a chat user.
Write a short narrative (3-5 sentences): the direct answer first, then the key numbers,
then the distribution if the data has a breakdown. Concrete figures, friendly tone,
no bullet points.`

// Summarizer produces the narrative that accompanies every result set.
type Summarizer struct {
	generator TextGenerator
	logger    *logrus.Logger
}

// NewSummarizer creates a result-set summarizer.
func NewSummarizer(generator TextGenerator, logger *logrus.Logger) *Summarizer {
	return &Summarizer{generator: generator, logger: logger}
}

// Summarize narrates the results of a fresh query. A generation
// failure degrades to a plain row-count summary instead of failing the
// whole message.
func (s *Summarizer) Summarize(ctx context.Context, question string, rs *models.ResultSet, query string) string {
	prompt := fmt.Sprintf(
		"Question: %s\n\nExecuted SQL:\n%s\n\nResults (%d rows):\n%s\nEnd your summary with exactly this line: %s",
		question, query, rs.RowCount(), rs.Preview(20), exportOffer,
	)
	return s.complete(ctx, prompt, rs)
}

// SummarizeRefinement narrates the results of a refined query,
// answering only the refinement rather than re-describing everything.
func (s *Summarizer) SummarizeRefinement(ctx context.Context, originalQuestion, refinement, explanation string, rs *models.ResultSet) string {
	prompt := fmt.Sprintf(
		"Original question: %s\nRefinement: %s\nWhat changed in the SQL: %s\n\nRefined results (%d rows):\n%s\nAnswer the refinement only; do not repeat the earlier analysis. End with exactly this line: %s",
		originalQuestion, refinement, explanation, rs.RowCount(), rs.Preview(20), exportOffer,
	)
	return s.complete(ctx, prompt, rs)
}

func (s *Summarizer) complete(ctx context.Context, prompt string, rs *models.ResultSet) string {
	out, err := s.generator.Complete(ctx, llm.Request{
		System:      summarizerSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Summary generation failed, using fallback")
		return fmt.Sprintf("The query returned %d rows. %s", rs.RowCount(), exportOffer)
	}
	return out
}
