package cnd

// errors.go defines the error taxonomy for the certificate issuance pipeline.

import (
	"errors"
	"fmt"
)

// CNDError is a structured error carrying a machine-readable code. Handlers
// map codes to HTTP statuses; services wrap collaborator failures with the
// appropriate code so callers get a distinguishable outcome per failure kind.
type CNDError struct {
	// code classifies the failure
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *CNDError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CNDError) Code() ErrorCode { return e.code }
func (e *CNDError) Unwrap() error   { return e.wrapped }

// ErrorCode classifies issuance and validation failures.
type ErrorCode string

const (
	// ErrCodeNotFound - the unit or certificate record does not exist (or the unit is deactivated)
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeIneligible - the unit has outstanding debt and a clearance certificate cannot be issued
	ErrCodeIneligible ErrorCode = "ineligible"

	// ErrCodeRateLimited - too many issuance attempts for the same request inside the window
	ErrCodeRateLimited ErrorCode = "rate_limited"

	// ErrCodeCodeGenerationExhausted - validation code generation kept colliding
	// with the unique-code constraint and the retries ran out
	ErrCodeCodeGenerationExhausted ErrorCode = "code_generation_exhausted"

	// ErrCodeRenderingFailure - the document renderer failed to produce the raw artifact
	ErrCodeRenderingFailure ErrorCode = "rendering_failure"

	// ErrCodeSigningFailure - the signing key is unavailable or the signature operation failed
	ErrCodeSigningFailure ErrorCode = "signing_failure"

	// ErrCodeNotAvailable - the record exists but holds no artifact
	ErrCodeNotAvailable ErrorCode = "not_available"

	// ErrCodeMalformedRequest - JSON parsing or request validation failed
	ErrCodeMalformedRequest ErrorCode = "malformed_request"

	// ErrCodeRequestTooLarge - the request body exceeds the configured limit
	ErrCodeRequestTooLarge ErrorCode = "request_too_large"

	// ErrCodeInternal - unexpected internal failure
	ErrCodeInternal ErrorCode = "internal"
)

// HasCode reports whether err is, or wraps, a CNDError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var cndErr *CNDError
	if !errors.As(err, &cndErr) {
		return false
	}
	return cndErr.code == code
}

// NewNotFoundError creates an error for a missing unit or certificate record.
func NewNotFoundError(msg string) error {
	return &CNDError{code: ErrCodeNotFound, message: msg}
}

// WrapNotFoundError wraps an existing error as a not-found error.
func WrapNotFoundError(err error, msg string) error {
	return &CNDError{code: ErrCodeNotFound, message: msg, wrapped: err}
}

// NewIneligibleError creates an error for a unit that fails the debt-status check.
func NewIneligibleError(msg string) error {
	return &CNDError{code: ErrCodeIneligible, message: msg}
}

// NewRateLimitedError creates an error for a request rejected by the fingerprint guard.
func NewRateLimitedError(msg string) error {
	return &CNDError{code: ErrCodeRateLimited, message: msg}
}

// NewCodeGenerationExhaustedError creates an error for persistent validation
// code collisions.
func NewCodeGenerationExhaustedError(msg string) error {
	return &CNDError{code: ErrCodeCodeGenerationExhausted, message: msg}
}

// WrapRenderingError wraps a document renderer failure.
func WrapRenderingError(err error, msg string) error {
	return &CNDError{code: ErrCodeRenderingFailure, message: msg, wrapped: err}
}

// NewSigningError creates a signing failure error.
func NewSigningError(msg string) error {
	return &CNDError{code: ErrCodeSigningFailure, message: msg}
}

// WrapSigningError wraps a signing failure (missing key, signature fault).
func WrapSigningError(err error, msg string) error {
	return &CNDError{code: ErrCodeSigningFailure, message: msg, wrapped: err}
}

// NewNotAvailableError creates an error for a record with no stored artifact.
func NewNotAvailableError(msg string) error {
	return &CNDError{code: ErrCodeNotAvailable, message: msg}
}

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &CNDError{code: ErrCodeMalformedRequest, message: msg}
}

// NewRequestTooLargeError creates an error for oversized request bodies.
func NewRequestTooLargeError(msg string) error {
	return &CNDError{code: ErrCodeRequestTooLarge, message: msg}
}

// WrapInternalError wraps an unexpected failure as an internal error.
func WrapInternalError(err error, msg string) error {
	return &CNDError{code: ErrCodeInternal, message: msg, wrapped: err}
}
