package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// AuthError is returned for bad credentials and invalid or expired tokens.
type AuthError struct {
	Message string
}

func NewAuthError(msg string) error {
	return &AuthError{Message: msg}
}

func (err AuthError) Error() string {
	return err.Message
}

func IsAuthError(err error) bool {
	_, ok := errors.Cause(err).(*AuthError)
	return ok
}

// RemoteError wraps a failed call to the evaluation API: a transport failure or a non-success response.
type RemoteError struct {
	Action  string
	Message string
	Err     error
}

func NewRemoteError(action, msg string, err ...error) error {
	rErr := &RemoteError{Action: action, Message: msg}
	if len(err) > 0 {
		rErr.Err = err[0]
	}
	return rErr
}

func (err RemoteError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s: %s: %v", err.Action, err.Message, err.Err)
	}
	return fmt.Sprintf("%s: %s", err.Action, err.Message)
}

func IsRemoteError(err error) bool {
	_, ok := errors.Cause(err).(*RemoteError)
	return ok
}

// NotFoundError is returned when the API holds no data for the requested template, config or member.
type NotFoundError struct {
	What string
}

func NewNotFoundError(what string) error {
	return &NotFoundError{What: what}
}

func (err NotFoundError) Error() string {
	return err.What + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
