package chat

import "errors"

// Error definitions for the chat view.
var (
	// ErrNoQueryService indicates that no query service was provided.
	ErrNoQueryService = errors.New("query service is required")

	// ErrNoAnswer indicates the query service returned neither an answer nor an error.
	ErrNoAnswer = errors.New("no answer returned")
)
