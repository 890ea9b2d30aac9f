package agent

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databot/databot-backend/internal/session"
)

func TestInterpreter_PromptCarriesDataContext(t *testing.T) {
	stub := &stubText{out: "That's the first row."}
	interp := NewInterpreter(stub, newTestLogger())

	history := []session.Turn{
		{Role: session.RoleUser, Text: "show users"},
		{Role: session.RoleAssistant, Text: "Found 3 users."},
	}
	answer, err := interp.Answer(context.Background(), "how old is the first one", rowsOf(3), "Found 3 users.", "SELECT * FROM users", history)
	require.NoError(t, err)
	assert.Equal(t, "That's the first row.", answer)

	prompt := stub.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "SELECT * FROM users")
	assert.Contains(t, prompt, "id | age")
	assert.Contains(t, prompt, "User: show users")
	assert.Contains(t, prompt, "how old is the first one")
}

func TestInterpreter_CyrillicSummaryTruncatedOnRuneBoundary(t *testing.T) {
	stub := &stubText{out: "ответ"}
	interp := NewInterpreter(stub, newTestLogger())

	longSummary := strings.Repeat("найдено пятьдесят пользователей ", 30)
	_, err := interp.Answer(context.Background(), "сколько их", rowsOf(3), longSummary, "SELECT * FROM users", nil)
	require.NoError(t, err)

	prompt := stub.lastReq.Messages[0].Content
	assert.True(t, utf8.ValidString(prompt), "truncation must not split a multi-byte rune")
}
