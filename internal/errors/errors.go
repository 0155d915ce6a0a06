// Package errors defines typed errors with categories for user-friendly reporting.
// Each error carries a machine-readable Kind and a human-friendly message, and
// wraps the underlying cause so callers can still match it with errors.Is/As.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// AuthFailed indicates the identity provider rejected a sign-in or sign-out.
	AuthFailed Kind = "auth_failed"
	// RedirectFailed indicates a social sign-in redirect could not be started or completed.
	RedirectFailed Kind = "redirect_failed"
	// ProfileFetchFailed indicates the profile document could not be read.
	ProfileFetchFailed Kind = "profile_fetch_failed"
	// ConfigInvalid indicates missing or malformed configuration.
	ConfigInvalid Kind = "config_invalid"
	// StorageUnavailable indicates the OS keychain could not be used.
	StorageUnavailable Kind = "storage_unavailable"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
