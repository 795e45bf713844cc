// Package apperrors defines the structured failure taxonomy surfaced by
// the callable orchestrators (spec §7) and its HTTP envelope.
package apperrors

import (
	"errors"
	"net/http"
)

// Code is one of the taxonomy values from spec §7.
type Code string

const (
	CodeInvalidArgument  Code = "invalid_argument"
	CodeUnauthenticated  Code = "unauthenticated"
	CodeStoreUnavailable Code = "store_unavailable"
	CodeConflict         Code = "conflict"
	CodeInternal         Code = "internal"
)

// Error wraps an originating error with a taxonomy code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a tagged Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap tags an arbitrary error with a taxonomy code.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the taxonomy code of err, defaulting to internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ErrorResponse is the canonical error envelope returned by the HTTP callables.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ToStatusCode maps a taxonomy code to an HTTP status.
func ToStatusCode(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
