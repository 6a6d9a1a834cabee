package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"yamdb/internal/http-api/policy"

	"gorm.io/gorm"
)

// Error kinds. Every error a service returns to a handler wraps one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrTooManyRequests = errors.New("too many requests")
	ErrEmailDelivery   = errors.New("email delivery failed")
)

var errRequired = errors.New("This field is required.")

// Error pairs a kind with a client-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind error, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ValidationError carries messages per request field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// fieldErrors collects validation messages; its err method returns nil when empty.
type fieldErrors map[string][]string

func (f fieldErrors) add(field string, err error) {
	if err != nil {
		f[field] = append(f[field], err.Error())
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// notFound maps a missing row to ErrNotFound and passes other errors through.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, what+" not found")
	}
	return err
}

// fromPolicy maps policy denials onto service error kinds.
func fromPolicy(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, policy.ErrUnauthenticated):
		return newError(ErrUnauthorized, "authentication credentials were not provided")
	case errors.Is(err, policy.ErrForbidden):
		return newError(ErrForbidden, "you do not have permission to perform this action")
	default:
		return err
	}
}
