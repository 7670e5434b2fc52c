package apperr

import (
	"errors"
	"fmt"
)

// Machine-readable error codes. The handler layer maps these to HTTP
// status codes in exactly one place.
const (
	CodeInvalid      = "invalid"      // malformed or missing input
	CodePolicy       = "policy"       // content or policy violation
	CodeUnauthorized = "unauthorized" // missing or invalid credential
	CodeRateLimited  = "rate_limited" // quota or failed-attempt ceiling
	CodeNotFound     = "not_found"
	CodeTraversal    = "traversal" // hostile path input
	CodeInternal     = "internal"
)

// Error is an application error carrying a code and a short
// user-facing message. The wrapped cause is never exposed to clients.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error      { return newf(CodeInvalid, format, args...) }
func Policy(format string, args ...any) *Error       { return newf(CodePolicy, format, args...) }
func Unauthorized(format string, args ...any) *Error { return newf(CodeUnauthorized, format, args...) }
func RateLimited(format string, args ...any) *Error  { return newf(CodeRateLimited, format, args...) }
func NotFound(format string, args ...any) *Error     { return newf(CodeNotFound, format, args...) }
func Traversal(format string, args ...any) *Error    { return newf(CodeTraversal, format, args...) }

// Internal wraps an unexpected failure in an underlying capability.
func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// Code extracts the error code, defaulting to CodeInternal for errors
// that did not originate in this package.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message extracts the user-facing message. Non-application errors get
// a generic message so internal detail never leaks.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return "An internal error occurred"
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return Code(err) == code
}
