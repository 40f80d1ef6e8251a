package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an authentication failure.
type Kind string

// Error kinds. The string values double as the "error" field of JSON error bodies.
const (
	KindValidation   Kind = "validation_error"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream_error"
	KindInternal     Kind = "server_error"
)

// AuthError is a typed error whose Message is safe to show to a client.
// Err keeps the internal cause for logging and is never rendered.
type AuthError struct {
	Kind    Kind   `json:"error"`
	Message string `json:"error_description,omitempty"`
	Err     error  `json:"-"`
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches another *AuthError of the same kind, so errors.Is(err, &AuthError{Kind: k}) works.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// HTTPStatus maps the kind to a response status code.
func (e *AuthError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func NewValidation(message string) *AuthError {
	return &AuthError{Kind: KindValidation, Message: message}
}

func NewBadRequest(message string) *AuthError {
	return &AuthError{Kind: KindBadRequest, Message: message}
}

func NewUnauthorized(message string) *AuthError {
	return &AuthError{Kind: KindUnauthorized, Message: message}
}

func NewNotFound(message string) *AuthError {
	return &AuthError{Kind: KindNotFound, Message: message}
}

func NewConflict(message string) *AuthError {
	return &AuthError{Kind: KindConflict, Message: message}
}

// NewUpstream wraps a failure of an external collaborator without exposing its text.
func NewUpstream(message string, cause error) *AuthError {
	return &AuthError{Kind: KindUpstream, Message: message, Err: cause}
}

func NewInternal(message string, cause error) *AuthError {
	return &AuthError{Kind: KindInternal, Message: message, Err: cause}
}

// As returns the first *AuthError in err's chain.
func As(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	if authErr, ok := As(err); ok {
		return authErr.Kind
	}
	return KindInternal
}

// SafeMessage returns a message that can be sent to a client for any error.
func SafeMessage(err error) string {
	if authErr, ok := As(err); ok && authErr.Message != "" {
		return authErr.Message
	}
	return "authentication failed"
}
