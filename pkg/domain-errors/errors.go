// Package domainerrors carries client-facing error codes through the service
// layer so transport code can translate them without inspecting causes.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies an error for translation at the HTTP boundary.
type Code string

const (
	// CodeValidation marks missing or malformed request input. The message is
	// safe to return to the caller.
	CodeValidation Code = "validation_error"
	// CodeTooLarge marks a request body over the accepted size.
	CodeTooLarge Code = "payload_too_large"
	// CodeUnavailable marks a dependency that cannot currently serve requests.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks infrastructure failures. Message and cause stay server-side.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New returns a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message. The cause remains reachable
// through errors.Is and errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// As extracts the outermost *Error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code. Uncoded errors are
// treated as CodeInternal.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	if de, ok := As(err); ok {
		return de.Code == code
	}
	return code == CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
