package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies invocation failures. Every kind aborts the current
// invocation with no partial effects; there is no automatic retry.
type ErrorKind string

const (
	// ErrorKindValidation covers malformed input and unauthorized callers.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindState covers malformed or unexpected continuation state.
	ErrorKindState ErrorKind = "state"
	// ErrorKindDomain covers business rejections such as a closed swap
	// window or insufficient matured rewards.
	ErrorKindDomain ErrorKind = "domain"
	// ErrorKindExternal covers a dispatched sub-operation reporting failure.
	ErrorKindExternal ErrorKind = "external"
)

// ProxyError is a classified invocation failure with a human-readable
// diagnostic.
type ProxyError struct {
	Kind    ErrorKind
	Message string
}

func (e *ProxyError) Error() string {
	return e.Message
}

// ErrUnauthorized rejects a caller that fails an authorization rule.
var ErrUnauthorized = &ProxyError{Kind: ErrorKindValidation, Message: "unauthorized"}

func NewValidationError(format string, args ...any) *ProxyError {
	return &ProxyError{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewStateError(format string, args ...any) *ProxyError {
	return &ProxyError{Kind: ErrorKindState, Message: fmt.Sprintf(format, args...)}
}

func NewDomainError(format string, args ...any) *ProxyError {
	return &ProxyError{Kind: ErrorKindDomain, Message: fmt.Sprintf(format, args...)}
}

func NewExternalError(format string, args ...any) *ProxyError {
	return &ProxyError{Kind: ErrorKindExternal, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's classification, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
