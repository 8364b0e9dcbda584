// Package apperr defines the coded errors services use to report failures.
//
// Every failure a caller can see falls into one of a few classes (authorization,
// not-found, state precondition, invalid input, internal). The code selects the
// class; the message is the user-facing text.
package apperr

import (
	"errors"

	"connectrpc.com/connect"
)

// Code classifies an error.
type Code string

const (
	CodeUnauthenticated    Code = "unauthenticated"
	CodePermissionDenied   Code = "permission_denied"
	CodeNotFound           Code = "not_found"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeInvalidArgument    Code = "invalid_argument"
	CodeAlreadyExists      Code = "already_exists"
	CodeInternal           Code = "internal"
)

// ConnectCode maps the code onto the closest Connect status code.
func (c Code) ConnectCode() connect.Code {
	switch c {
	case CodeUnauthenticated:
		return connect.CodeUnauthenticated
	case CodePermissionDenied:
		return connect.CodePermissionDenied
	case CodeNotFound:
		return connect.CodeNotFound
	case CodeFailedPrecondition:
		return connect.CodeFailedPrecondition
	case CodeInvalidArgument:
		return connect.CodeInvalidArgument
	case CodeAlreadyExists:
		return connect.CodeAlreadyExists
	default:
		return connect.CodeInternal
	}
}

// Error is a coded error carrying a user-facing message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Unauthenticated(message string) *Error  { return New(CodeUnauthenticated, message) }
func PermissionDenied(message string) *Error { return New(CodePermissionDenied, message) }
func NotFound(message string) *Error         { return New(CodeNotFound, message) }
func Precondition(message string) *Error     { return New(CodeFailedPrecondition, message) }
func Invalid(message string) *Error          { return New(CodeInvalidArgument, message) }
func AlreadyExists(message string) *Error    { return New(CodeAlreadyExists, message) }

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message of the first *Error in err's chain.
// Errors without a code yield fallback, so internal causes never reach callers.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return fallback
}
