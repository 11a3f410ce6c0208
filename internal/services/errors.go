// Package services holds the relationship and consent engine: the follow
// graph, conversation consent, the notification ledger and read-side
// visibility rules. Handlers call into it; it calls repositories and pushes
// through a realtime.Publisher.
package services

import (
	"errors"
	"fmt"

	"github.com/anonto42/saylink/backend/internal/repositories"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrPrivacy       = errors.New("blocked by privacy settings")
	ErrConsent       = errors.New("conversation not accepted")
	ErrConflict      = errors.New("conflict")
	ErrSelfReference = errors.New("self reference")
	ErrOperational   = errors.New("operational error")
)

// Error carries a kind plus a stable, caller-visible reason
type Error struct {
	Kind   error
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newError(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// storeError classifies a repository failure. Missing rows become NotFound
// with the given reason, duplicates become Conflict, anything else is operational.
func storeError(err error, notFoundReason string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return &Error{Kind: ErrNotFound, Reason: notFoundReason, cause: err}
	case errors.Is(err, repositories.ErrDuplicate):
		return &Error{Kind: ErrConflict, Reason: "already exists", cause: err}
	default:
		return &Error{Kind: ErrOperational, Reason: "store failure", cause: err}
	}
}

// ReasonOf returns the caller-visible reason of err, or a generic one
func ReasonOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Reason
	}
	return "internal error"
}
