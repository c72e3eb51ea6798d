// Package apperr defines the error kinds surfaced by todoia operations and
// their mapping to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindConfiguration   Kind = "configuration"
	KindUpstream        Kind = "upstream"
	KindEmptyResponse   Kind = "empty_response"
	KindStore           Kind = "store"
)

// Status returns the default HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error. Message is safe to show to the
// caller; Err is the underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Status  int // overrides Kind.Status() when non-zero
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status the gateway should answer with.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrEmptyResponse   = &Error{Kind: KindEmptyResponse}
	ErrStore           = &Error{Kind: KindStore}
)

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// Upstream wraps a failure of a hosted model or webhook. A non-zero status is
// passed through to the HTTP caller.
func Upstream(msg string, status int, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Status: status, Err: err}
}

func EmptyResponse(msg string) error {
	return &Error{Kind: KindEmptyResponse, Message: msg}
}

// Store wraps a persistence failure behind an opaque message.
func Store(err error) error {
	return &Error{Kind: KindStore, Message: "store error", Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
