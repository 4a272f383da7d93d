package nstd

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPattern is wrapped by AddRoute errors for patterns that do
	// not compile.
	ErrInvalidPattern = errors.New("nstd: invalid route pattern")

	// ErrUnknownMethod is returned when registering a route for a method
	// outside the method table.
	ErrUnknownMethod = errors.New("nstd: unknown method")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("nstd: nil handler")

	// ErrResponseSent is returned by Ctx.Send when the context already
	// produced a response.
	ErrResponseSent = errors.New("nstd: response already sent")

	// ErrResponsePrepared is returned by Response writes after the wire
	// buffer was built.
	ErrResponsePrepared = errors.New("nstd: response already prepared")

	// ErrNotRunning is returned by Shutdown before the server started.
	ErrNotRunning = errors.New("nstd: server is not running")
)

// HttpError is a handler failure with a chosen status code. Handlers that
// fail with any other error are answered with 500.
type HttpError struct {
	Code    int    // HTTP status code
	Message string // Error message
	Err     error  // Original error, if any
}

// Error implements the error interface.
func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error, if any.
func (e *HttpError) Unwrap() error {
	return e.Err
}

// NewHttpError creates a new HttpError with the given status code and message.
func NewHttpError(code int, message string) *HttpError {
	return &HttpError{
		Code:    code,
		Message: message,
	}
}

// NewHttpErrorWithError creates a new HttpError with the given status code, message, and error.
func NewHttpErrorWithError(code int, message string, err error) *HttpError {
	return &HttpError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// errorStatus picks the response code for a handler failure.
func errorStatus(err error) int {
	var httpErr *HttpError
	if errors.As(err, &httpErr) && StatusText(httpErr.Code) != "" {
		return httpErr.Code
	}
	return StatusInternalServerError
}
