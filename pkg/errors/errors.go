// Package errors provides the structured error taxonomy shared by the parser,
// the fetch orchestrator, the HTTP server and the CLI.
//
// Every failure that crosses a package boundary carries a Code so that callers
// can branch on the category without string matching:
//
//	if errors.Is(err, errors.ErrCodeIncompleteRender) {
//	    // the calendar never finished rendering upstream
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

const (
	// The markup holds no parseable day cells.
	ErrCodeMalformedMarkup Code = "MALFORMED_MARKUP"
	// The loading placeholder never resolved within the retry budget.
	ErrCodeIncompleteRender Code = "INCOMPLETE_RENDER"
	// Transport-level failure reaching the proxy or the source page.
	ErrCodeFetch Code = "FETCH_FAILED"

	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code anywhere in its chain.
// Unlike GetCode it looks past an outer coded error to the ones it wraps.
func Is(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code, or "" if err carries none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the server answers with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeMalformedMarkup:
		return http.StatusUnprocessableEntity
	case ErrCodeIncompleteRender:
		return http.StatusGatewayTimeout
	case ErrCodeFetch:
		return http.StatusBadGateway
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
