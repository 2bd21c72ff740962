// Package todokit holds the failure classification shared by every service
// in the module. Transports translate a Kind into a status code; clients
// rebuild an Error from the status code they receive.
package todokit

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Auth
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	case NotFound:
		return "not found"
	}
	return "internal"
}

// StatusCode maps k onto the HTTP status the API answers with.
func (k Kind) StatusCode() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// KindFromStatus is the inverse of StatusCode for responses a client reads.
func KindFromStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest:
		return Validation
	case http.StatusUnauthorized, http.StatusForbidden:
		return Auth
	case http.StatusNotFound:
		return NotFound
	}
	return Internal
}

// Error is a classified failure. Msg is safe to show to the caller.
type Error struct {
	Kind Kind
	Msg  string
}

func NewError(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

// KindOf reports the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// ErrInternal is what callers see in place of an unclassified failure.
var ErrInternal = NewError(Internal, "Server error")
