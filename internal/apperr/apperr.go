// Package apperr defines the error taxonomy shared by every ledger operation.
//
// Every mutating operation returns either nil or an *Error. Callers switch on
// Kind to decide how to surface the failure and on Code to identify the exact
// guard that tripped.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindPrecondition  Kind = "precondition"
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports a match when both errors carry the same code, so a sentinel
// still matches copies produced by WithMessage.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		cause:   e.cause,
	}
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return newError(KindValidation, code, message)
}

func NotFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

func Precondition(code, message string) *Error {
	return newError(KindPrecondition, code, message)
}

func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

func Unauthorized(code, message string) *Error {
	return newError(KindAuthorization, code, message)
}

// Internal wraps an infrastructure failure (database, broker) so callers see a
// uniform error shape without leaking driver text to end users.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error", cause: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, or "internal_error" for foreign errors.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "internal_error"
}

// ErrUnidentifiedActor is returned when an operation is invoked without an
// owning account.
var ErrUnidentifiedActor = Unauthorized("unidentified_actor", "actor is not identified")
