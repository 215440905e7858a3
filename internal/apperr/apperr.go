// Package apperr defines the error taxonomy shared by every core
// component: Input, Conflict, Transient, Permanent, Degraded, Fatal.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure per §7. Kinds drive retry and propagation
// decisions, not error identity.
type Kind string

const (
	KindInput      Kind = "input"
	KindConflict   Kind = "conflict"
	KindTransient  Kind = "transient"
	KindPermanent  Kind = "permanent"
	KindDegraded   Kind = "degraded"
	KindFatal      Kind = "fatal"
	KindNotFound   Kind = "not_found"
	KindInvariant  Kind = "invariant"
)

// Error is a structured failure carrying the originating component
// name, a kind, and an optional wrapped cause.
type Error struct {
	Component string
	Kind      Kind
	Detail    string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error without a wrapped cause.
func New(component string, kind Kind, detail string) *Error {
	return &Error{Component: component, Kind: kind, Detail: detail}
}

// Wrap builds an *Error around an existing cause.
func Wrap(component string, kind Kind, detail string, cause error) *Error {
	return &Error{Component: component, Kind: kind, Detail: detail, Cause: cause}
}

// Is reports whether the first *Error in err's chain (the outermost one)
// carries the given kind; kinds of *Errors wrapped inside it are not
// consulted.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindPermanent when
// err is not an *Error (an unclassified failure is treated as
// non-retryable).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPermanent
}
