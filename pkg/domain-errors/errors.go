// Package dErrors provides coded domain errors. Services construct these at
// the point a rule is violated; the HTTP boundary maps codes to status codes
// without inspecting error strings.
package dErrors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a domain error for boundary handling.
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeInvalidInput       ErrorCode = "invalid_input"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeTimeout            ErrorCode = "timeout"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodeInternal           ErrorCode = "internal_error"
)

// Error is a coded domain error. Reason optionally carries a machine-readable
// ledger reason code (e.g. SEALED_IMMUTABLE) alongside the coarse ErrorCode.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is compare coded errors by code and message instead of
// identity, so tests and callers can match against a freshly constructed
// error value.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code && e.Message == te.Message
}

// New creates a coded error.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithReason creates a coded error carrying a machine-readable reason code.
func WithReason(code ErrorCode, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is reports whether err carries the given code. Alias of HasCode kept for
// call-site readability in handlers.
func Is(err error, code ErrorCode) bool { return HasCode(err, code) }

// CodeOf extracts the ErrorCode from err, defaulting to CodeInternal for
// un-coded errors so unknown failures never leak details to callers.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ReasonOf extracts the machine-readable reason code, if any.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
