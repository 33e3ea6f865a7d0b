package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
)

// ErrorClass splits provider failures into the two classes the
// orchestrator cares about: authorization failures propagate
// immediately, everything else is eligible for fallback.
type ErrorClass string

const (
	ClassAuthorization ErrorClass = "authorization"
	ClassTransient     ErrorClass = "transient"
)

// Error is a classified provider failure.
type Error struct {
	Class   ErrorClass
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider %s error: %v", e.Backend, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(backend string, class ErrorClass, err error) *Error {
	return &Error{Class: class, Backend: backend, Err: err}
}

// IsAuthorization reports whether err is an authorization-class
// provider failure (invalid or expired credential).
func IsAuthorization(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Class == ClassAuthorization
}

// IsTransient reports whether err is a transient provider failure.
func IsTransient(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Class == ClassTransient
}

// classifyStatus maps an HTTP status to an error class.
func classifyStatus(status int) ErrorClass {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ClassAuthorization
	}
	return ClassTransient
}

// classifySDKError maps an openai SDK error to an error class.
// Anything that is not a recognizable 401/403 is treated as transient.
func classifySDKError(err error) ErrorClass {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}
	return ClassTransient
}
