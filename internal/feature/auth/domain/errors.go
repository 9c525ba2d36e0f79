// Package domain defines the error taxonomy shared by every layer of the auth feature.
package domain

import "errors"

// Kind classifies a failure so that transports can map it without inspecting messages.
type Kind int

const (
	// KindInternal is an unexpected failure.
	KindInternal Kind = iota
	// KindValidation is malformed input; the caller's fault.
	KindValidation
	// KindUnauthorized means the presented credentials were rejected.
	KindUnauthorized
	// KindConflict is a uniqueness violation (duplicate email, concurrent create).
	KindConflict
	// KindIdentityConflict means a provider identity collides with a different provider identity
	// already linked to the same email.
	KindIdentityConflict
	// KindNotFound means the resource is absent. Auth paths fold it into KindUnauthorized.
	KindNotFound
	// KindUnavailable means the credential store is unreachable, timed out or is misconfigured.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindIdentityConflict:
		return "identity_conflict"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the only error type the auth usecase hands back to its callers.
// Message is safe to show to end users; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	kindOnly bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, domain.ErrConflict) holds
// for any *Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.kindOnly {
		return false
	}
	return t.Kind == e.Kind
}

func sentinel(k Kind) *Error {
	return &Error{Kind: k, Message: k.String(), kindOnly: true}
}

// Kind sentinels for errors.Is checks.
var (
	ErrInternal         = sentinel(KindInternal)
	ErrValidation       = sentinel(KindValidation)
	ErrUnauthorized     = sentinel(KindUnauthorized)
	ErrConflict         = sentinel(KindConflict)
	ErrIdentityConflict = sentinel(KindIdentityConflict)
	ErrNotFound         = sentinel(KindNotFound)
	ErrUnavailable      = sentinel(KindUnavailable)
)

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
