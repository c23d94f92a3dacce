package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigMissing indicates a required connection or credential setting is absent.
	// Fatal at startup, never retried.
	ConfigMissing ErrorCode = "CONFIG_MISSING"
	// StorageUnavailable indicates the database could not be reached or opened
	StorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// QueryFailed indicates a statement failed or violated a constraint
	QueryFailed ErrorCode = "QUERY_FAILED"
	// ValidationFailed indicates a request was rejected before any write
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// EmbeddingFailed indicates the embedding provider timed out or returned
	// a malformed payload. Recovered locally via the deterministic fallback;
	// callers should never observe this code.
	EmbeddingFailed ErrorCode = "EMBEDDING_FAILED"
	// NotFound indicates a referenced entity does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// Timeout indicates an operation exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates an unexpected failure
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a failure with a stable code, a human-readable message, and an
// optional wrapped cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// New creates an Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// NewValidationError creates a validation rejection for a named field
func NewValidationError(field, reason string) *Error {
	return New(ValidationFailed, fmt.Sprintf("invalid %s: %s", field, reason))
}

// NewStorageError wraps a storage failure with the operation name and a
// truncated statement fragment for diagnosis. Parameter values are never
// included; they may contain user text or secrets.
func NewStorageError(operation, query string, cause error) *Error {
	return Wrap(QueryFailed, fmt.Sprintf("%s (%s)", operation, TruncateQuery(query)), cause)
}

// TruncateQuery shortens statement text for error context
func TruncateQuery(query string) string {
	const max = 80
	compact := make([]byte, 0, len(query))
	space := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\n' || c == '\t' || c == ' ' {
			if !space && len(compact) > 0 {
				compact = append(compact, ' ')
			}
			space = true
			continue
		}
		space = false
		compact = append(compact, c)
	}
	if len(compact) > max {
		return string(compact[:max]) + "..."
	}
	return string(compact)
}

// CodeOf extracts the stable code from an error chain, or InternalError when
// the chain carries no Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// IsValidation reports whether the error chain is a validation rejection
func IsValidation(err error) bool {
	return CodeOf(err) == ValidationFailed
}
