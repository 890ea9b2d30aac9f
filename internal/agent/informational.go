package agent

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/llm"
)

const informationalSystemPrompt = `You are the help voice of a data-warehouse assistant that lives in a chat
workspace. Explain what the assistant can do, briefly and concretely:

- Answer analytical questions about the warehouse in plain language
  ("how many users joined in September?").
- Answer follow-ups about data it just fetched without re-querying.
- Refine the previous query on request ("only women", "of those, how many have a
  subscription?").
- Export the current results as a spreadsheet when asked.

Do not discuss topics outside the assistant's function. Keep answers short.`

// Fallback when even the help responder is unavailable.
const informationalFallback = "I turn questions about our data warehouse into SQL and answer in plain language. " +
	"Ask a data question, follow up on the results, refine the query, or ask me to export the current data as a spreadsheet."

// Informational answers questions about the assistant itself. It never
// touches session result state.
type Informational struct {
	generator TextGenerator
	logger    *logrus.Logger
}

// NewInformational creates the help responder.
func NewInformational(generator TextGenerator, logger *logrus.Logger) *Informational {
	return &Informational{generator: generator, logger: logger}
}

// Respond answers a capability or help question. Generation failures
// degrade to a canned capability description.
func (h *Informational) Respond(ctx context.Context, question string) string {
	answer, err := h.generator.Complete(ctx, llm.Request{
		System:      informationalSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: question}},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		h.logger.WithError(err).Warn("Informational response failed, using fallback")
		return informationalFallback
	}
	return answer
}
