// Package derrors defines the coded error taxonomy services return.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate them into coded errors here so transport layers can map
// codes to responses without inspecting error strings.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks malformed input. The caller's fault; retrying the
	// same request cannot succeed.
	CodeValidation Code = "validation"

	// CodeConflict marks a request the current state does not permit, such as
	// an expired code or an already-consumed token. Requires new input.
	CodeConflict Code = "conflict"

	// CodePolicy marks an upload rejected by document policy (type or size).
	// The caller must resubmit a different artifact.
	CodePolicy Code = "policy"

	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized marks failed authentication or an inactive account.
	CodeUnauthorized Code = "unauthorized"

	// CodeUnavailable marks a transient dependency failure. Safe to retry
	// with backoff.
	CodeUnavailable Code = "unavailable"

	// CodeInvariantViolation marks a state that correct code can never reach.
	// Treated as a defect: logged with full context, surfaced generically.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal marks any other unexpected failure.
	CodeInternal Code = "internal"
)

// Error carries a code, a user-safe message, and an optional cause.
type Error struct {
	Code    Code
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

// New builds a coded error with a user-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted user-safe message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause is kept
// for logs; only the message should reach users.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost user-safe message, or a generic fallback.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// Is defers to errors.Is so callers can keep a single import.
func Is(err, target error) bool { return errors.Is(err, target) }
