package serr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// ServiceError carries the HTTP status and client facing message of a failure.
// Env holds diagnostic values that are logged but never returned to the client;
// Data, when set, is sent to the client next to the message.
type ServiceError struct {
	Err        error
	Msg        string
	StackTrace string
	StatusCode int
	Env        map[string]string
	Data       any
}

func NewServiceError(err error, statusCode int, msg string, args ...any) *ServiceError {
	return &ServiceError{
		Err:        err,
		Msg:        fmt.Sprintf(msg, args...),
		StatusCode: statusCode,
		StackTrace: string(debug.Stack()),
		Env:        make(map[string]string),
	}
}

func BadRequest(err error, msg string, args ...any) *ServiceError {
	return NewServiceError(err, http.StatusBadRequest, msg, args...)
}

func NotFound(err error, msg string, args ...any) *ServiceError {
	return NewServiceError(err, http.StatusNotFound, msg, args...)
}

func Conflict(err error, msg string, args ...any) *ServiceError {
	return NewServiceError(err, http.StatusConflict, msg, args...)
}

func (e *ServiceError) Error() string {
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// StatusCode returns the status carried by err, or 500 when err is not a ServiceError.
func StatusCode(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return http.StatusInternalServerError
}
