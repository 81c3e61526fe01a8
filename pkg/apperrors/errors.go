// Package apperrors defines the cross-cutting error taxonomy shared by the
// service layer: resources that are absent, resources that already exist,
// and malformed requests. Authentication and authorization failures live
// next to their logic in pkg/auth and pkg/authz; name validation failures
// live in pkg/scope.
package apperrors

import (
	"errors"
	"fmt"
)

// NotFoundError marks an org, team, user or structural group as absent.
// Message is the complete user-facing sentence.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NotFound builds a NotFoundError from a complete message, e.g.
// NotFound("organization '%s' not found", name).
func NotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err marks an absent resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ConflictError marks a duplicate org, team or user. Message is the
// complete user-facing sentence.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflict builds a ConflictError from a complete message.
func Conflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err marks a duplicate resource.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// BadRequestError marks a malformed request, e.g. a team scope supplied
// without its org.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}

// BadRequest builds a BadRequestError.
func BadRequest(format string, args ...interface{}) *BadRequestError {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether err marks a malformed request.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}
