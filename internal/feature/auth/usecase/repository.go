package usecase

import (
	"context"
	"time"

	"auth_backend/internal/feature/auth/domain/entity"
)

// UserRepository abstracts the persistence layer for user entities.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type UserRepository interface {
	// Create persists a new user and assigns its ID.
	// It returns ErrDuplicateKey if the email or provider ID is already taken.
	Create(ctx context.Context, user *entity.User) error

	// FindByID retrieves a user by ID, or ErrUserNotFound.
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// FindByEmail retrieves a user by canonical email, or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByProviderID retrieves a user by third-party subject identifier, or ErrUserNotFound.
	FindByProviderID(ctx context.Context, providerID string) (*entity.User, error)

	// Update applies the non-nil fields of upd and returns the updated user.
	// It returns ErrUserNotFound, ErrDuplicateKey, or ErrPreconditionFailed when a guard does not hold.
	Update(ctx context.Context, id uint, upd UserUpdate) (*entity.User, error)
}

// UserUpdate lists the columns an update may set. Nil fields are left untouched, so an
// update can never clear a credential.
type UserUpdate struct {
	PasswordHash  *string
	ProviderID    *string
	Name          *string
	AvatarURL     *string
	EmailVerified *bool
	LastLogin     *time.Time

	// RequireNoPassword makes the update apply only while password_hash is still NULL.
	RequireNoPassword bool
	// RequireNoProvider makes the update apply only while provider_id is still NULL.
	RequireNoProvider bool
}

// SessionRepository abstracts the persistence layer for session entities.
type SessionRepository interface {
	// Create persists a new session. It returns ErrDuplicateKey if the token already exists
	// and never overwrites an existing row.
	Create(ctx context.Context, session *entity.Session) error

	// FindByToken retrieves a session by token, or ErrSessionNotFound.
	// Expired rows may still be returned; callers check expiry.
	FindByToken(ctx context.Context, token string) (*entity.Session, error)

	// Touch sets LastAccessed. It returns ErrSessionNotFound if the row is gone.
	Touch(ctx context.Context, token string, at time.Time) error

	// Delete removes a session. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUserID removes every session of a user and returns how many were removed.
	DeleteByUserID(ctx context.Context, userID uint) (int64, error)

	// DeleteExpired removes sessions whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transactor runs fn inside a single store transaction. Repositories called with the
// context passed to fn participate in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenSigner issues stateless tokens.
type TokenSigner interface {
	Sign(id entity.Identity) (string, time.Time, error)
}

// TokenVerifier verifies stateless tokens. It never errors; ok is false for any invalid input.
type TokenVerifier interface {
	Verify(token string) (entity.Identity, bool)
}

// TokenCodec is the stateless half of the credential codec.
type TokenCodec interface {
	TokenSigner
	TokenVerifier
}

// PasswordHasher is the password half of the credential codec.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
