// Package errx provides application error kinds that the HTTP layer maps to
// status codes and user-facing messages.
package errx

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for the caller.
type Kind uint8

const (
	Unknown Kind = iota
	Invalid
	Unauthorized
	NotFound
	Internal
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case Invalid:
		return "Invalid"
	case Unauthorized:
		return "Unauthorized"
	case NotFound:
		return "NotFound"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error carries an internal diagnostic (Op + Err) and an optional message
// that is safe to show to clients.
type Error struct {
	Op      string
	Kind    Kind
	Err     error
	Message string
}

// E wraps err with an operation name and kind. A nil err yields nil.
func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Msg is E with a user-facing message attached.
func Msg(op string, kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:      op,
		Kind:    kind,
		Err:     err,
		Message: message,
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost *Error in the chain that has one.
func KindOf(err error) Kind {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind != Unknown {
			return e.Kind
		}
		err = e.Err
	}
	return Unknown
}

// MessageOf returns the first user-facing message found in the chain.
func MessageOf(err error) string {
	var e *Error
	for errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		err = e.Err
	}
	return ""
}
