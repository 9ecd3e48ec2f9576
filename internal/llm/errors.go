package llm

import "errors"

var (
	// ErrUnavailable indicates the model server is disabled or unreachable.
	ErrUnavailable = errors.New("llm server unavailable")

	// ErrTimeout indicates the request exceeded its timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrEmptyResponse indicates the model answered with no text.
	ErrEmptyResponse = errors.New("llm returned an empty response")

	// ErrRetryExhausted indicates all retry attempts failed.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)
