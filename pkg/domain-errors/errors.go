// Package dErrors defines the coded error taxonomy for the lifecycle engine.
// Services return these so transport can map them to precise HTTP responses
// and callers can tell retryable gateway failures from state conflicts.
//
// Eligibility failure is deliberately not an error anywhere in this taxonomy:
// "ineligible" is a normal structured result, not an exceptional one.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input. Not retryable;
	// the caller must correct the input.
	CodeValidation Code = "validation"

	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a state-transition or uniqueness violation. Not
	// retryable without re-reading state.
	CodeConflict Code = "conflict"

	// CodeGateway marks a persistence or network failure. Safe to retry with
	// backoff at the caller's discretion; never swallowed inside the engine.
	CodeGateway Code = "gateway_error"

	// CodeTimeout marks a deadline or cancellation surfaced from the gateway.
	// Kept distinct from CodeNotFound so a slow store is never mistaken for a
	// missing record.
	CodeTimeout Code = "timeout"

	// CodeInvariantViolation marks a broken aggregate invariant detected by a
	// model constructor or transition guard.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. Wrapping a nil
// error returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its transport status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeGateway:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInvariantViolation, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
