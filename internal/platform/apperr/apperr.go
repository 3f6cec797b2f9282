// Package apperr defines the error kinds surfaced by the scheduling and
// booking services and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ValidationError reports malformed or inconsistent input. No side effects
// have happened when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError names the entity that could not be resolved.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ConstraintViolation is a uniqueness, foreign-key, check or state-transition
// conflict. It is never retried.
type ConstraintViolation struct {
	Constraint string
	Message    string
	Err        error
}

func (e *ConstraintViolation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("constraint %s violated", e.Constraint)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// PartialFailureError means an operation stopped after some of its writes
// were committed. Completed counts the units that made it to storage.
type PartialFailureError struct {
	Op        string
	Completed int
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: partial failure after %d completed: %v", e.Op, e.Completed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func Conflict(constraint, message string) error {
	return &ConstraintViolation{Constraint: constraint, Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

func IsConstraint(err error) bool {
	var v *ConstraintViolation
	return errors.As(err, &v)
}

func IsPartialFailure(err error) bool {
	var v *PartialFailureError
	return errors.As(err, &v)
}

// HTTPStatus returns the status code a handler should answer with for err.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsPartialFailure(err):
		return http.StatusInternalServerError
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConstraint(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a service error into an echo.HTTPError.
func ToHTTP(err error) *echo.HTTPError {
	return echo.NewHTTPError(HTTPStatus(err), err.Error())
}
