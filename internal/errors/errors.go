// Package errors provides the structured error type for the retrieval
// engine, with stable codes for the failure taxonomy: missing index,
// unavailable embedding backend, malformed source records, and internal
// invariant violations.
package errors

import (
	"fmt"
)

// EngineError is the structured error type for the retrieval engine.
type EngineError struct {
	// Code is the stable error code (see codes.go).
	Code string

	// Message is the human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is with sentinel EngineErrors.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error for
// chaining.
func (e *EngineError) WithDetail(key, value string) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new EngineError with the given code and message. The
// retryable flag is derived from the code.
func New(code string, message string, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an EngineError from an existing error, reusing its message.
// Returns nil when err is nil.
func Wrap(code string, err error) *EngineError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotIndexed creates the error reported for entities without an index.
func NotIndexed(entityID string) *EngineError {
	return New(ErrCodeNotIndexed, "entity has no index: "+entityID, nil).
		WithDetail("entity_id", entityID)
}

// BuildInProgress creates the informational error for concurrent builds.
func BuildInProgress(entityID string) *EngineError {
	return New(ErrCodeBuildInProgress, "index build already in progress: "+entityID, nil).
		WithDetail("entity_id", entityID)
}

// EmbeddingUnavailable creates the error for an absent or failing embedding
// backend. The engine downgrades to lexical-only rather than surfacing this
// as a failure.
func EmbeddingUnavailable(cause error) *EngineError {
	msg := "embedding backend unavailable"
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return New(ErrCodeEmbedUnavailable, msg, cause)
}

// MalformedSource creates the error for a source record that failed to
// normalize or chunk.
func MalformedSource(sourceID string, cause error) *EngineError {
	return New(ErrCodeMalformedSource, "malformed source: "+sourceID, cause).
		WithDetail("source_id", sourceID)
}

// Internal creates an internal invariant-violation error.
func Internal(message string, cause error) *EngineError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is a retryable EngineError.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ee, ok := err.(*EngineError); ok {
		return ee.Retryable
	}
	return false
}

// GetCode extracts the error code from an EngineError, or "" otherwise.
func GetCode(err error) string {
	if ee, ok := err.(*EngineError); ok {
		return ee.Code
	}
	return ""
}
