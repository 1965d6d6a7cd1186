// Package apierr defines the five HTTP-facing error kinds and renders them
// as JSON envelopes.
package apierr

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/artpar/crudkit/core/query"
	"github.com/artpar/crudkit/core/schema"
)

// Kind is an error category.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindForbidden
	KindNotFound
	KindMethodNotAllowed
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// Status returns the HTTP status for the kind.
// Forbidden answers 401, matching the toolkit's historical wire contract.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// DefaultMessage returns the message used when none is given.
func (k Kind) DefaultMessage() string {
	switch k {
	case KindBadRequest:
		return "Bad request"
	case KindForbidden:
		return "Access denied"
	case KindNotFound:
		return "Not found"
	case KindMethodNotAllowed:
		return "Method not allowed"
	default:
		return "Unknown Error"
	}
}

// Error is an HTTP-facing failure.
type Error struct {
	Kind    Kind
	Message string
	Details map[string][]string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// New creates an error of kind k. An empty message uses the kind's default.
func New(k Kind, message string) *Error {
	if message == "" {
		message = k.DefaultMessage()
	}
	return &Error{Kind: k, Message: message}
}

// BadRequest creates a 400 error with optional per-field details.
func BadRequest(message string, details map[string][]string) *Error {
	e := New(KindBadRequest, message)
	e.Details = details
	return e
}

// Forbidden creates a 401 error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// NotFound creates a 404 error.
func NotFound() *Error {
	return New(KindNotFound, "")
}

// MethodNotAllowed creates a 405 error.
func MethodNotAllowed() *Error {
	return New(KindMethodNotAllowed, "")
}

// Internal wraps cause as a 500. The cause is kept for logs and never rendered.
func Internal(cause error) *Error {
	e := New(KindInternal, "")
	e.cause = cause
	return e
}

// From normalizes any error into an *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		e := BadRequest("", verr.Fields)
		e.cause = err
		return e
	}

	if errors.Is(err, query.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		e := NotFound()
		e.cause = err
		return e
	}

	return Internal(err)
}

type envelope struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"error_details,omitempty"`
}

// Write renders err as a JSON envelope and returns the normalized error.
func Write(w http.ResponseWriter, err error) *Error {
	e := From(err)
	if e == nil {
		e = Internal(errors.New("nil error written"))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	json.NewEncoder(w).Encode(envelope{
		Error:   e.Message,
		Details: e.Details,
	})
	return e
}
