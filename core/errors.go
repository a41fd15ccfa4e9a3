package core

import "github.com/pkg/errors"

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
		return ""
	}
	return err.Err.Error()
}

type notFound struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (e notFound) Error() string {
	return e.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*notFound)
	return ok
}

type permissionDenied struct {
	message string
}

func NewPermissionError(msg string) error {
	return &permissionDenied{message: msg}
}

func (e permissionDenied) Error() string {
	return e.message
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*permissionDenied)
	return ok
}

type conflict struct {
	message string
}

func NewConflictError(msg string) error {
	return &conflict{message: msg}
}

func (e conflict) Error() string {
	return e.message
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*conflict)
	return ok
}

type authenticationFailed struct {
	message string
}

func NewAuthenticationError(msg string) error {
	return &authenticationFailed{message: msg}
}

func (e authenticationFailed) Error() string {
	return e.message
}

func IsAuthenticationFailed(err error) bool {
	_, ok := errors.Cause(err).(*authenticationFailed)
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
