package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/models"
	"github.com/databot/databot-backend/internal/session"
)

const interpreterSystemPrompt = `You are a data analyst in conversation mode. Answer the user's follow-up
question using ONLY the data already fetched by the previous query. You have the result
rows, the SQL that produced them, the previous analysis, and the recent conversation.

Rules:
- Never invent values. If the question needs a column or entity that is not in the data,
  say plainly that the current data does not contain it and that a new query would be
  needed. Do not guess.
- Resolve references from the conversation: "this user", "the first one", "her" point at
  rows already shown.
- Answer like a person: "That's Aigul Smagulova, she had 145 visits" rather than
  "the value of the name column is...". Keep it short and concrete.
- Do not offer a spreadsheet export unless the user asked about one.`

// Interpreter answers continuation questions from the held result set.
// It never reaches the warehouse or the SQL generator.
type Interpreter struct {
	generator TextGenerator
	logger    *logrus.Logger
}

// NewInterpreter creates a result interpreter.
func NewInterpreter(generator TextGenerator, logger *logrus.Logger) *Interpreter {
	return &Interpreter{generator: generator, logger: logger}
}

// Answer produces a grounded reply to a question about the held data.
func (i *Interpreter) Answer(ctx context.Context, question string, rs *models.ResultSet, lastSummary, lastQuery string, history []session.Turn) (string, error) {
	prompt := fmt.Sprintf(
		"Data from the previous query:\n%s\n\nConversation so far:\n%s\nNew question:\n%s\n\nAnswer naturally from the data above.",
		i.buildDataContext(rs, lastQuery, lastSummary),
		formatHistory(history, 200),
		question,
	)

	answer, err := i.generator.Complete(ctx, llm.Request{
		System:      interpreterSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("failed to interpret results: %w", err)
	}

	i.logger.WithField("chars", len(answer)).Debug("Continuation answer generated")
	return answer, nil
}

func (i *Interpreter) buildDataContext(rs *models.ResultSet, query, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SQL: %s\n\n", truncateText(query, 300))
	fmt.Fprintf(&b, "Results (%d rows, %d columns):\n%s\n", rs.RowCount(), len(rs.Columns), rs.Preview(20))
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(rs.Columns, ", "))
	if summary != "" {
		fmt.Fprintf(&b, "\nPrevious analysis:\n%s\n", truncateText(summary, 500))
	}
	return b.String()
}

func formatHistory(history []session.Turn, maxLen int) string {
	if len(history) == 0 {
		return "(no previous messages)\n"
	}
	var b strings.Builder
	for _, turn := range history {
		role := "User"
		if turn.Role == session.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, truncateText(turn.Text, maxLen))
	}
	return b.String()
}

// truncateText shortens s to at most n runes; byte slicing would split
// multi-byte characters in Cyrillic text.
func truncateText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
