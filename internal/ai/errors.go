package ai

import "errors"

var (
	// ErrMissingAPIKey indicates the Anthropic API key is absent or still the
	// placeholder value. Raised at construction time, never per request.
	ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not configured")

	// ErrInference indicates the inference service was unreachable or errored.
	ErrInference = errors.New("inference service error")

	// ErrMalformedResponse indicates the model returned unparseable output.
	ErrMalformedResponse = errors.New("malformed inference response")

	// ErrAIService wraps the last transient error once all retry attempts
	// are exhausted.
	ErrAIService = errors.New("ai service unavailable")
)
