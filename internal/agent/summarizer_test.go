package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizer_FallbackOnGenerationFailure(t *testing.T) {
	summarizer := NewSummarizer(&stubText{err: errors.New("rate limited")}, newTestLogger())

	out := summarizer.Summarize(context.Background(), "show users", rowsOf(50), "SELECT * FROM users")
	assert.Contains(t, out, "50 rows")
	assert.True(t, strings.HasSuffix(out, exportOffer), "even the fallback must keep the export offer")
}

func TestSummarizer_PromptCarriesOfferInstruction(t *testing.T) {
	stub := &stubText{out: "Found 50 users. " + exportOffer}
	summarizer := NewSummarizer(stub, newTestLogger())

	out := summarizer.Summarize(context.Background(), "show users", rowsOf(50), "SELECT * FROM users")
	assert.Equal(t, "Found 50 users. "+exportOffer, out)

	prompt := stub.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "SELECT * FROM users")
	assert.Contains(t, prompt, exportOffer)
}

func TestSummarizeRefinement_PromptScopesToRefinement(t *testing.T) {
	stub := &stubText{out: "12 of them are older. " + exportOffer}
	summarizer := NewSummarizer(stub, newTestLogger())

	out := summarizer.SummarizeRefinement(context.Background(), "show users", "only over 30", "added an age filter", rowsOf(12))
	assert.Contains(t, out, "12 of them")

	prompt := stub.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "only over 30")
	assert.Contains(t, prompt, "added an age filter")
	assert.Contains(t, prompt, "do not repeat the earlier analysis")
}
