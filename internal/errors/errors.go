package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the authentication core
var (
	// Recoverable, rendered back to the user
	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("duplicate email")

	// Fatal to the request, short-circuit before workflow logic
	ErrForgeryRejected = errors.New("forgery token rejected")
	ErrRateLimited     = errors.New("rate limited")

	// Fatal, generic server error
	ErrStoreUnavailable = errors.New("store unavailable")

	// Treated as anonymous
	ErrSessionExpiredOrAbsent = errors.New("session expired or absent")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// FieldError is a single failed rule on a named request field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries the ordered field errors of a rejected request.
// Unwrap exposes the cause, which is ErrValidationFailed or ErrDuplicateEmail.
type ValidationError struct {
	Fields []FieldError
	cause  error
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields, cause: ErrValidationFailed}
}

func NewDuplicateEmailError(message string) *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: "email", Message: message}},
		cause:  ErrDuplicateEmail,
	}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", e.cause, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Messages returns the field messages in order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
