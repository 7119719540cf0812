package chat

import "errors"

var (
	// ErrInvalidInput indicates the user message was empty or otherwise
	// unusable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCompletionFailed indicates a model call failed after the client's
	// own retries were exhausted.
	ErrCompletionFailed = errors.New("completion failed")
)
