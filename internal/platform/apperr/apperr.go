// Package apperr defines the error kinds shared by every repository and
// service in the data layer. The core reports a kind plus a diagnostic
// payload; translating kinds into user-facing text is the presentation
// layer's job.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that dispatch on failure mode.
type Kind string

const (
	// KindNotFound means a referenced entity id does not exist.
	KindNotFound Kind = "not_found"
	// KindConflict means a uniqueness rule was violated (e.g. duplicate username).
	KindConflict Kind = "conflict"
	// KindReferentialIntegrity means a delete is blocked by live children.
	KindReferentialIntegrity Kind = "referential_integrity"
	// KindInvalidState means an illegal state transition was attempted.
	KindInvalidState Kind = "invalid_state"
	// KindAuthentication means a login failed. Deliberately undifferentiated:
	// "no such user" and "wrong password" both surface as this kind.
	KindAuthentication Kind = "authentication"
	// KindSession means a session token is absent, expired, or its user is
	// not active.
	KindSession Kind = "session"
	// KindValidation means the input was malformed.
	KindValidation Kind = "validation"
)

// Error carries a kind, the resource it concerns, and a diagnostic detail.
type Error struct {
	Kind     Kind
	Resource string
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Resource != "" {
		msg += " " + e.Resource
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, &Error{Kind: k}) matches any
// error of kind k regardless of resource or detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Resource == "" || t.Resource == e.Resource)
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// New builds an *Error with a formatted detail message.
func New(k Kind, resource, format string, args ...any) *Error {
	return &Error{Kind: k, Resource: resource, Detail: fmt.Sprintf(format, args...)}
}

// NotFound reports that the entity with the given id does not exist.
func NotFound(resource string, id int64) *Error {
	return New(KindNotFound, resource, "id %d", id)
}

// Conflict reports a uniqueness violation.
func Conflict(resource, format string, args ...any) *Error {
	return New(KindConflict, resource, format, args...)
}

// Blocked reports a delete refused because dependent children exist. The
// detail names the blocking relationship.
func Blocked(resource, format string, args ...any) *Error {
	return New(KindReferentialIntegrity, resource, format, args...)
}

// InvalidState reports an illegal state transition.
func InvalidState(resource, format string, args ...any) *Error {
	return New(KindInvalidState, resource, format, args...)
}

// Authentication reports a failed login.
func Authentication() *Error {
	return New(KindAuthentication, "users", "invalid credentials")
}

// Session reports an unusable session token.
func Session(format string, args ...any) *Error {
	return New(KindSession, "sessions", format, args...)
}

// Validation reports malformed input.
func Validation(resource, format string, args ...any) *Error {
	return New(KindValidation, resource, format, args...)
}

// Wrap attaches a cause to an *Error while preserving its kind.
func Wrap(e *Error, err error) *Error {
	e.Err = err
	return e
}
