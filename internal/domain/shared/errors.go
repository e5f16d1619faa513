package shared

import "errors"

// ErrorKind classifies a DomainError so callers can react without parsing codes
type ErrorKind string

const (
	// KindValidation marks malformed or missing input
	KindValidation ErrorKind = "VALIDATION"
	// KindNotFound marks a missing reception, detail line or product
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindIllegalTransition marks a failed state guard
	KindIllegalTransition ErrorKind = "ILLEGAL_TRANSITION"
	// KindPersistence marks an underlying store failure
	KindPersistence ErrorKind = "PERSISTENCE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind      ErrorKind `json:"kind"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable,omitempty"`
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause of persistence errors
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code, so sentinels work with errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed or missing input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates an error for a missing referenced record
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewIllegalTransitionError creates an error for a failed state guard
func NewIllegalTransitionError(code, message string) *DomainError {
	return &DomainError{Kind: KindIllegalTransition, Code: code, Message: message}
}

// NewPersistenceError wraps a store failure. The cause is kept for logging
// and never rendered to end users.
func NewPersistenceError(code, message string, cause error, retryable bool) *DomainError {
	return &DomainError{
		Kind:      KindPersistence,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		cause:     cause,
	}
}

// KindOf returns the kind of a (possibly wrapped) domain error, or "" otherwise
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsIllegalTransition reports whether err is an illegal transition error
func IsIllegalTransition(err error) bool { return KindOf(err) == KindIllegalTransition }

// IsPersistence reports whether err is a persistence error
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// IsRetryable reports whether err is a persistence error that can be retried
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == KindPersistence && de.Retryable
	}
	return false
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewValidationError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewPersistenceError("CONCURRENCY_CONFLICT", "Resource was modified by another process", nil, true)
	ErrInvalidState        = NewIllegalTransitionError("INVALID_STATE", "Operation not allowed in current state")
	ErrDuplicateRequest    = NewValidationError("DUPLICATE_REQUEST", "An identical request is already being processed")
)
