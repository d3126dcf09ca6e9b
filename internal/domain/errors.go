package domain

import "errors"

var (
	// ErrValidation signals invalid input (empty text, bad file, malformed request).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrExternalService signals a failure in an external dependency
	// (embedding provider, chat model, vector store).
	ErrExternalService = errors.New("external service error")
)
