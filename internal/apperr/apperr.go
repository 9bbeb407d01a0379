// Package apperr defines the error taxonomy shared by every feature
// package. Each public operation returns an error of exactly one Kind;
// the HTTP layer maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Internal is the zero-adjacent default for unclassified failures
	// (persistence errors, marshaling bugs).
	Internal Kind = iota
	Unauthorized
	NotFound
	Conflict
	Validation
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation"
	default:
		return "internal"
	}
}

// Error carries a Kind and a human-readable message. The message is
// what ends up in the JSON error body.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it available for errors.Is
// chains. A nil err returns nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the Kind of err. Errors that never passed through this
// package classify as Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to its transport status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return 401
	case NotFound:
		return 404
	case Conflict:
		return 409
	case Validation:
		return 400
	default:
		return 500
	}
}
