package weberror

import (
	"fmt"
	"net/http"
)

// Machine readable error kinds rendered in the payload.
const (
	KindInvalidArgument = "INVALID_ARGUMENT"
	KindNotFound        = "NOT_FOUND"
	KindConflict        = "CONFLICT"
	KindRuntime         = "RUNTIME_ERROR"
	KindPathNotFound    = "PATH_NOT_FOUND"
	KindForbidden       = "INVALID_USER_TOKEN"
)

type (
	// HTTPCoder interface is implemented by application errors.
	HTTPCoder interface {
		// HTTPCode return the HTTP status code for the given error.
		HTTPCode() int
	}

	// Error is the payload rendered in case of error.
	Error struct {
		Code    int         `json:"-"`
		Kind    string      `json:"error"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	}
)

// StatusCode the know HTTP status for the given err. If unknown, it returns 500.
func StatusCode(err error) int {
	if hc, ok := err.(HTTPCoder); ok {
		return hc.HTTPCode()
	}
	return http.StatusInternalServerError
}

// New returns a new Error.
func New(code int, kind, message string) error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// InvalidArgument returns a new 400 Error.
func InvalidArgument(message string) error {
	return New(http.StatusBadRequest, KindInvalidArgument, message)
}

// NotFound returns a new 404 Error.
func NotFound(message string) error {
	return New(http.StatusNotFound, KindNotFound, message)
}

// Conflict returns a new 409 Error.
func Conflict(message string) error {
	return New(http.StatusConflict, KindConflict, message)
}

// Runtime returns a new 500 Error.
func Runtime(message string) error {
	return New(http.StatusInternalServerError, KindRuntime, message)
}

// Error stringifies the error.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Kind, e.Message)
}

// HTTPCode returns the HTTP status code.
func (e *Error) HTTPCode() int {
	return e.Code
}
