package sandbox

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a test case could not be evaluated.
type ErrorCode string

const (
	CodeNoFunctionFound  ErrorCode = "no_function_found"
	CodeParseError       ErrorCode = "parse_error"
	CodeRuntimeException ErrorCode = "runtime_exception"
	CodeTimeout          ErrorCode = "timeout"
	CodeResourceExceeded ErrorCode = "resource_exceeded"
	CodeUnknown          ErrorCode = "unknown_error"
)

const (
	messageNoFunction = "No function found in code"
	messageUnknown    = "Unknown error"
)

// Error is a grading failure attributable to the submitted code or the test data.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds a sandbox error with a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrNoFunctionFound is reported when the source declares no entry function.
func ErrNoFunctionFound() *Error {
	return &Error{Code: CodeNoFunctionFound, Message: messageNoFunction}
}

// ErrUnknown is reported when the failure carries no usable message.
func ErrUnknown() *Error {
	return &Error{Code: CodeUnknown, Message: messageUnknown}
}

// AsError converts any error into a sandbox error, keeping the code when
// err already is one.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var sbErr *Error
	if errors.As(err, &sbErr) {
		return sbErr
	}
	if msg := err.Error(); msg != "" {
		return &Error{Code: CodeUnknown, Message: msg}
	}
	return ErrUnknown()
}
