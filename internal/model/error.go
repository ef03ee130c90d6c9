package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses and job failure classification.
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidFile       = "INVALID_FILE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeIOFailure         = "IO_FAILURE"
	ErrCodeUnexpected        = "UNEXPECTED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeUnsupported       = "UNSUPPORTED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError is a classified error. Errors built from a sentinel with
// WithMessage or Wrap keep matching it under errors.Is, and so do errors built
// from those in turn. Two errors derived separately from the same sentinel do
// not match each other even though they share a code.
type DomainError struct {
	Code    string
	Message string
	Cause   error

	// parent is the error this one was derived from.
	parent *DomainError
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is e or one of the errors e was derived from.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	for d := e; d != nil; d = d.parent {
		if d == t {
			return true
		}
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Cause: e.Cause, parent: e}
}

// Wrap returns a copy of e with cause attached.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Cause: cause, parent: e}
}

// Common domain errors
var (
	ErrInvalidFile       = NewDomainError(ErrCodeInvalidFile, "invalid file")
	ErrNotFound          = NewDomainError(ErrCodeNotFound, "resource not found")
	ErrJobNotFound       = ErrNotFound.WithMessage("issuance job not found")
	ErrOperatorNotFound  = ErrNotFound.WithMessage("operator not found")
	ErrIOFailure         = NewDomainError(ErrCodeIOFailure, "storage I/O failure")
	ErrUnexpected        = NewDomainError(ErrCodeUnexpected, "unexpected failure")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "invalid job status transition")
	ErrUnsupported       = NewDomainError(ErrCodeUnsupported, "operation not supported by this storage")
	ErrConflict          = NewDomainError(ErrCodeConflict, "resource already exists")
	ErrMissingField      = NewDomainError(ErrCodeMissingField, "required field is missing")
)

// ErrorCode extracts the DomainError code from err, or ErrCodeUnexpected.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeUnexpected
}
