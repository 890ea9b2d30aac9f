package intent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/databot/databot-backend/internal/llm"
	"github.com/databot/databot-backend/internal/session"
)

type stubGenerator struct {
	label    string
	err      error
	failures int
	calls    int
	lastReq  llm.Request
}

func (s *stubGenerator) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil && s.calls <= s.failures {
		return "", s.err
	}
	if s.err != nil && s.failures == 0 {
		return "", s.err
	}
	return s.label, nil
}

func newTestLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(io.Discard)
	return logg
}

func TestClassifier_ReturnsLabel(t *testing.T) {
	gen := &stubGenerator{label: "query_refinement"}
	c := NewClassifier(gen, false, newTestLogger())

	got := c.Classify(context.Background(), "only women", nil, true)
	assert.Equal(t, QueryRefinement, got)
	assert.Equal(t, 1, gen.calls)
}

func TestClassifier_OutOfSetDefaultsToNewDataQuery(t *testing.T) {
	gen := &stubGenerator{label: "refinement_maybe"}
	c := NewClassifier(gen, false, newTestLogger())

	got := c.Classify(context.Background(), "only women", nil, true)
	assert.Equal(t, NewDataQuery, got)
}

func TestClassifier_ErrorDefaultsToNewDataQuery(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w: timeout", llm.ErrTransient)}
	c := NewClassifier(gen, false, newTestLogger())

	got := c.Classify(context.Background(), "show users", nil, false)
	assert.Equal(t, NewDataQuery, got)
	assert.Equal(t, 1, gen.calls, "no retry unless configured")
}

func TestClassifier_RetriesTransientWhenConfigured(t *testing.T) {
	gen := &stubGenerator{label: "informational", err: fmt.Errorf("%w: timeout", llm.ErrTransient), failures: 1}
	c := NewClassifier(gen, true, newTestLogger())

	got := c.Classify(context.Background(), "what can you do", nil, false)
	assert.Equal(t, Informational, got)
	assert.Equal(t, 2, gen.calls)
}

func TestClassifier_DataDependentIntentWithoutData(t *testing.T) {
	// The model broke the boundary rules; the classifier must not let
	// a data-dependent label through with no data held
	gen := &stubGenerator{label: "continuation"}
	c := NewClassifier(gen, false, newTestLogger())

	got := c.Classify(context.Background(), "how old is the first one", nil, false)
	assert.Equal(t, NewDataQuery, got)
}

func TestClassifier_PromptCarriesContext(t *testing.T) {
	gen := &stubGenerator{label: "continuation"}
	c := NewClassifier(gen, false, newTestLogger())

	history := []session.Turn{
		{Role: session.RoleUser, Text: "show me users from Almaty"},
		{Role: session.RoleAssistant, Text: "Found 50 users."},
	}
	c.Classify(context.Background(), "how old is the first one", history, true)

	prompt := gen.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "User: show me users from Almaty")
	assert.Contains(t, prompt, "Assistant: Found 50 users.")
	assert.Contains(t, prompt, "Data held in memory: YES")
	assert.Contains(t, prompt, `"how old is the first one"`)

	c.Classify(context.Background(), "anything", nil, false)
	prompt = gen.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "first message")
	assert.Contains(t, prompt, "Data held in memory: NO")
}

func TestClassifier_LongCyrillicHistoryTruncatedOnRuneBoundary(t *testing.T) {
	gen := &stubGenerator{label: "continuation"}
	c := NewClassifier(gen, false, newTestLogger())

	history := []session.Turn{
		{Role: session.RoleUser, Text: strings.Repeat("пользователи ", 20)},
	}
	c.Classify(context.Background(), "сколько их", history, true)

	prompt := gen.lastReq.Messages[0].Content
	assert.True(t, utf8.ValidString(prompt), "truncation must not split a multi-byte rune")
	assert.Contains(t, prompt, "...")
}
