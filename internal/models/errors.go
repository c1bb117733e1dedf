package models

import "errors"

// Pipeline errors. Adapters wrap the underlying cause with one of these so the
// orchestrator can tell them apart with errors.Is.
var (
	// ErrExtraction marks a PDF stream or page whose text could not be read
	ErrExtraction = errors.New("extraction failed")

	// ErrAuthentication indicates missing or rejected credentials
	ErrAuthentication = errors.New("authentication failed")

	// ErrTransient indicates a network or service hiccup that is safe to retry
	ErrTransient = errors.New("transient service failure")

	// ErrIndexNotFound indicates no index has been saved at the location yet
	ErrIndexNotFound = errors.New("index not found")

	// ErrModelInvocation indicates an error or malformed response from the generation call
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrEmbedding indicates a permanent failure of the embedding call
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptyQuestion is returned when asking a blank question
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrLengthMismatch is returned when chunks and vectors differ in count
	ErrLengthMismatch = errors.New("chunks and vectors length mismatch")
)
