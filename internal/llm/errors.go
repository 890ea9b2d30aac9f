package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrTransient marks failures worth retrying: timeouts, rate
	// limits, upstream 5xx.
	ErrTransient = errors.New("transient text-generation error")

	// ErrMalformedOutput marks completions that arrived but cannot be
	// used: empty, unparseable, or outside an expected closed set.
	ErrMalformedOutput = errors.New("malformed text-generation output")
)

// IsTransient reports whether err is a retryable generation failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: rate limited: %v", ErrTransient, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: upstream error: %v", ErrTransient, err)
		}
	}
	return err
}
