package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/databot/databot-backend/internal/session"
)

func TestIsConfirmation(t *testing.T) {
	for _, msg := range []string{"yes", "Yes!", "да", "Да.", "ок", "давай", "+", "sure"} {
		assert.True(t, IsConfirmation(msg), "expected confirmation: %q", msg)
	}
	for _, msg := range []string{"no", "yes please export everything", "show me users", ""} {
		assert.False(t, IsConfirmation(msg), "not a confirmation: %q", msg)
	}
}

func TestIsRejection(t *testing.T) {
	for _, msg := range []string{"no", "No.", "нет", "не надо", "cancel", "-"} {
		assert.True(t, IsRejection(msg), "expected rejection: %q", msg)
	}
	assert.False(t, IsRejection("no idea, show me more"))
}

func TestFastPath(t *testing.T) {
	offer := []session.Turn{
		{Role: session.RoleUser, Text: "show me the top users"},
		{Role: session.RoleAssistant, Text: "Here are the top 10. Want me to generate a table with this data? 📊"},
	}

	label, ok := FastPath("yes", offer)
	assert.True(t, ok)
	assert.Equal(t, TableRequest, label)

	// A confirmation with no preceding offer is not fast-pathed
	_, ok = FastPath("yes", []session.Turn{
		{Role: session.RoleUser, Text: "hello"},
		{Role: session.RoleAssistant, Text: "Hi, ask me a data question."},
	})
	assert.False(t, ok)

	// Empty history
	_, ok = FastPath("yes", nil)
	assert.False(t, ok)

	// A full sentence is never fast-pathed even after an offer
	_, ok = FastPath("yes, but only the top five of them", offer)
	assert.False(t, ok)

	// Only the latest assistant turn counts
	stale := append(offer, session.Turn{Role: session.RoleAssistant, Text: "Anything else?"})
	_, ok = FastPath("yes", stale)
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	cases := map[string]Intent{
		"continuation":     Continuation,
		"query_refinement": QueryRefinement,
		"table_request":    TableRequest,
		"new_data_query":   NewDataQuery,
		"informational":    Informational,
		" CONTINUATION ":   Continuation,
	}
	for label, want := range cases {
		got, ok := Parse(label)
		assert.True(t, ok, "label %q", label)
		assert.Equal(t, want, got)
	}

	got, ok := Parse("something_else")
	assert.False(t, ok)
	assert.Equal(t, NewDataQuery, got, "out-of-set labels fall back to new_data_query")
}

func TestNeedsResult(t *testing.T) {
	assert.True(t, Continuation.NeedsResult())
	assert.True(t, QueryRefinement.NeedsResult())
	assert.True(t, TableRequest.NeedsResult())
	assert.False(t, NewDataQuery.NeedsResult())
	assert.False(t, Informational.NeedsResult())
}
