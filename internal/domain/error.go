package domain

import (
	"errors"
	"fmt"
)

// Application error codes.
// These map to HTTP status codes and determine user-facing messages.
const (
	ECONFLICT     = "conflict"        // 409 - Resource conflict (already confirmed, etc.)
	EINTERNAL     = "internal"        // 500 - Internal server error (hide details)
	EINVALID      = "invalid"         // 400 - Validation error (bad input)
	ENOTFOUND     = "not_found"       // 404 - Resource not found
	EUNAUTHORIZED = "unauthorized"    // 401 - Authentication required
	EFORBIDDEN    = "forbidden"       // 403 - Authenticated but not permitted
)

// Error represents an application error with a code and message.
// It implements the error interface and supports error wrapping.
type Error struct {
	// Code is a machine-readable error code (e.g., EINVALID, ENOTFOUND).
	Code string

	// Message is a human-readable error message safe to show to callers.
	Message string

	// Op is the operation where the error occurred (e.g., "invoice.payment").
	// Used for debugging and logging, not shown to callers.
	Op string

	// Err is the underlying error, if any. Used for error wrapping.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL for nil or non-domain errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return EINTERNAL
}

// ErrorMessage extracts a caller-facing message from an error.
// For internal errors, returns a generic message to avoid leaking details.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}

	return "An internal error occurred. Please try again later."
}

// NotFound creates a not found error for a resource.
// Example: domain.NotFound("invoice.get", "invoice", "42")
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Forbidden creates a forbidden error.
func Forbidden(op, message string) error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a validation error for a single issue.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error (wraps underlying error).
// The message shown to callers will be generic; the underlying error is for logging.
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
