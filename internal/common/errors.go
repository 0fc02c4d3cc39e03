package common

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type Code string

const (
	CodeNotFound    Code = "not_found"
	CodeValidation  Code = "validation"
	CodeConflict    Code = "conflict"
	CodeForbidden   Code = "forbidden"
	CodeUnavailable Code = "unavailable"
	CodeUnsupported Code = "unsupported"
	CodeRateLimited Code = "rate_limited"
	CodeInternal    Code = "internal"
)

// AppError is the error type returned by services and repositories.
// Stack is only captured for internal errors.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Stack   []byte
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(code Code, message string, err error) *AppError {
	appErr := &AppError{Code: code, Message: message, Err: err}
	if code == CodeInternal {
		var stackErr *goerrors.Error
		switch {
		case errors.As(err, &stackErr):
			appErr.Stack = stackErr.Stack()
		case err != nil:
			appErr.Stack = goerrors.Wrap(err, 1).Stack()
		default:
			appErr.Stack = goerrors.New(message).Stack()
		}
	}
	return appErr
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// StackOf returns the captured stack, if any.
func StackOf(err error) []byte {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stack
	}
	return nil
}
