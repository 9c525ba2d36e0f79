// Package usecase implements the business logic for the auth feature.
package usecase

import "errors"

// Sentinels returned by store implementations. The usecase layer maps them onto the domain taxonomy.
var (
	// ErrUserNotFound is returned when a user cannot be found by email, provider ID or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound is returned when no session row matches a token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateKey is returned when a write violates a uniqueness constraint
	// (email, provider ID or session token).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrPreconditionFailed is returned when a guarded update matched no row because the
	// guarded column was changed concurrently.
	ErrPreconditionFailed = errors.New("update precondition failed")

	// ErrStoreUnavailable is returned when the store is unreachable, timed out or misconfigured.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// ErrIdentityConflict is returned when a provider identity would overwrite a different
	// provider identity already linked to the same email.
	ErrIdentityConflict = errors.New("email is linked to a different provider identity")

	// ErrTokenCollision is returned when every session insert attempt collided with an existing token.
	ErrTokenCollision = errors.New("session token collision")
)
