package intent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/session"
)

// TextGenerator is the slice of the text-generation client the
// classifier needs.
type TextGenerator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

const classifierSystemPrompt = `You are an intent classifier for a conversational data-warehouse assistant.
Decide the intent of the newest user message, taking the conversation context into account.

The 5 intents:

1. continuation - A follow-up about data ALREADY fetched, answerable without changing SQL.
   Signs: clarifying questions ("what's the name?", "how old?"), pronouns referring to
   returned rows ("this user", "the first one"), requests for detail about listed entities.

2. query_refinement - A follow-up that needs the previous SQL MODIFIED: a new filter,
   join or aggregation on the same topic. Signs: "of those, how many...", "only women",
   "older than 25", "from Almaty", "with an active subscription".

3. table_request - A request to export the current data as a spreadsheet.
   Signs: bare confirmations after an export offer ("yes", "go ahead"), or explicit
   asks ("generate a table", "export to Excel", "выгрузи в excel").

4. new_data_query - A brand-new data question, self-sufficient or changing topic,
   even if data from an earlier question is still held.

5. informational - A question about the assistant itself: capabilities, help, usage.

Boundary rules:
- If no data is held in memory, continuation, query_refinement and table_request are
  invalid; never pick them.
- "What's her name?" -> continuation (the answer is already in the rows).
- "Of those, how many have a subscription?" -> query_refinement (new JOIN needed).
- "Show users with a subscription" -> new_data_query (stands on its own).

Answer with EXACTLY one word: continuation, query_refinement, table_request,
new_data_query, or informational. No explanations.`

// Classifier labels messages with one of the five intents using the
// text-generation service, after the deterministic fast path declined.
type Classifier struct {
	generator      TextGenerator
	retryOnTimeout bool
	logger         *logrus.Logger
}

// NewClassifier creates an intent classifier.
func NewClassifier(generator TextGenerator, retryOnTimeout bool, logger *logrus.Logger) *Classifier {
	return &Classifier{
		generator:      generator,
		retryOnTimeout: retryOnTimeout,
		logger:         logger,
	}
}

// Classify labels the message. It never fails: an unusable or absent
// label defaults to NewDataQuery, which starts a fresh self-contained
// query instead of misusing stale context, and the anomaly is logged.
func (c *Classifier) Classify(ctx context.Context, message string, history []session.Turn, hasData bool) Intent {
	req := llm.Request{
		System: classifierSystemPrompt,
		Messages: []llm.Message{
			{Role: session.RoleUser, Content: c.buildPrompt(message, history, hasData)},
		},
		Temperature: 0,
		MaxTokens:   10,
	}

	label, err := c.generator.Complete(ctx, req)
	if err != nil && c.retryOnTimeout && llm.IsTransient(err) {
		label, err = c.generator.Complete(ctx, req)
	}
	if err != nil {
		c.logger.WithError(err).Warn("Classification failed, defaulting to new_data_query")
		return NewDataQuery
	}

	result, ok := Parse(label)
	if !ok {
		c.logger.WithField("label", label).Warn("Classifier returned label outside the intent set, defaulting to new_data_query")
		return NewDataQuery
	}

	if result.NeedsResult() && !hasData {
		c.logger.WithField("intent", result.String()).Warn("Classifier picked a data-dependent intent with no data held, defaulting to new_data_query")
		return NewDataQuery
	}
	return result
}

func (c *Classifier) buildPrompt(message string, history []session.Turn, hasData bool) string {
	var b strings.Builder
	b.WriteString("Conversation context:\n")
	if len(history) == 0 {
		b.WriteString("This is the user's first message.\n")
	} else {
		for _, turn := range history {
			role := "User"
			if turn.Role == session.RoleAssistant {
				role = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, truncate(turn.Text, 150))
		}
	}

	if hasData {
		b.WriteString("\nData held in memory: YES (follow-up questions can be answered from it)\n")
	} else {
		b.WriteString("\nData held in memory: NO\n")
	}

	fmt.Fprintf(&b, "\nNew user message: %q\n\nDetermine the intent:", message)
	return b.String()
}

// truncate shortens s to at most n runes; byte slicing would split
// multi-byte characters in Cyrillic messages.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
