package dispatch

import (
	"errors"
	"fmt"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603
)

// ErrFrozen is returned when declaring handlers on a builder that has already
// produced its table.
var ErrFrozen = errors.New("dispatch: builder already frozen")

// Error is a structured RPC error surfaced to the caller of a method.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message. Errors wrapped with %w,
// one or several, stay reachable through errors.Is and errors.As.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Code: code, Message: err.Error(), cause: err}
}

// ParamsError reports that a parameter payload could not be bound to the
// declared argument types.
type ParamsError struct {
	// Expected describes the target type, e.g. "int" or "(int, string)".
	Expected string
	Err      error
}

func (e *ParamsError) Error() string {
	return "expected " + e.Expected + ": " + e.Err.Error()
}

func (e *ParamsError) Unwrap() error {
	return e.Err
}

func invalidParams(pe *ParamsError) *Error {
	return &Error{
		Code:    CodeInvalidParams,
		Message: "invalid params: " + pe.Error(),
		cause:   pe,
	}
}
