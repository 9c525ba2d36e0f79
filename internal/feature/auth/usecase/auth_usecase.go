package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"auth_backend/internal/feature/auth/domain"
	"auth_backend/internal/feature/auth/domain/entity"
)

const (
	// minPasswordLength is the minimum number of characters in a password.
	minPasswordLength = 6

	// maxPasswordBytes is the bcrypt input limit.
	maxPasswordBytes = 72

	// DefaultStoreTimeout bounds every store round trip made by one façade call.
	DefaultStoreTimeout = 5 * time.Second
)

// User-facing messages. They never reveal whether an email is registered, except for the
// provider-only case, which must tell the user which sign-in method to use.
const (
	msgCredentialsRequired = "email and password are required"
	msgInvalidCredentials  = "invalid email or password"
	msgProviderOnly        = "this account signs in with Google; use Google sign-in or register to add a password"
	msgEmailTaken          = "email is already registered"
	msgIdentityConflict    = "this email is already linked to a different Google account"
	msgUnavailable         = "authentication service is temporarily unavailable"
	msgInternal            = "internal error"
	msgNotAuthenticated    = "not authenticated"
)

// AuthConfig tunes the façade.
type AuthConfig struct {
	// AllowPasswordUpgrade lets Register add a password to an existing provider-only account.
	AllowPasswordUpgrade bool
	// StoreTimeout bounds the store calls of one operation. Zero selects DefaultStoreTimeout.
	StoreTimeout time.Duration
}

// AuthResult is returned by every operation that signs a user in.
type AuthResult struct {
	User      entity.PublicUser
	Token     string
	ExpiresAt time.Time
}

// authUsecase implements the authentication business logic. It is the only component
// route handlers talk to, and every error it returns is a *domain.Error.
type authUsecase struct {
	users      UserRepository
	tx         Transactor
	sessions   *SessionManager
	reconciler *IdentityReconciler
	hasher     PasswordHasher
	tokens     TokenSigner
	cfg        AuthConfig
	now        func() time.Time
}

// NewAuthUsecase creates a new authUsecase.
func NewAuthUsecase(
	users UserRepository,
	tx Transactor,
	sessions *SessionManager,
	reconciler *IdentityReconciler,
	hasher PasswordHasher,
	tokens TokenSigner,
	cfg AuthConfig,
) *authUsecase {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &authUsecase{
		users:      users,
		tx:         tx,
		sessions:   sessions,
		reconciler: reconciler,
		hasher:     hasher,
		tokens:     tokens,
		cfg:        cfg,
		now:        time.Now,
	}
}

// validateCredentials checks presence and length of an email/password pair.
func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return domain.New(domain.KindValidation, msgCredentialsRequired)
	}
	return nil
}

// validatePassword checks that the password meets the length requirements.
func validatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return domain.New(domain.KindValidation, fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return domain.New(domain.KindValidation, fmt.Sprintf("password must not exceed %d bytes", maxPasswordBytes))
	}
	return nil
}

// Register creates a password account, or adds a password to an existing provider-only
// account with the same email, and signs the user in.
func (u *authUsecase) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = entity.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if err := entity.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	// Hash outside the transaction; bcrypt is deliberately slow.
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, msgInternal, err)
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.StoreTimeout)
	defer cancel()

	var user *entity.User
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := u.users.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, ErrUserNotFound):
			user = &entity.User{Email: email, PasswordHash: &hash, Name: name}
			return u.users.Create(ctx, user)
		case err != nil:
			return err
		case existing.HasPassword():
			return domain.New(domain.KindConflict, msgEmailTaken)
		case !u.cfg.AllowPasswordUpgrade:
			return domain.New(domain.KindConflict, msgEmailTaken)
		}

		upd := UserUpdate{PasswordHash: &hash, RequireNoPassword: true}
		if existing.Name == "" && name != "" {
			upd.Name = &name
		}
		user, err = u.users.Update(ctx, existing.ID, upd)
		if err != nil {
			return err
		}
		slog.Info("password added to provider-only account", "user_id", user.ID)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrPreconditionFailed) {
			// Lost a race with a concurrent registration for the same email.
			return nil, domain.Wrap(domain.KindConflict, msgEmailTaken, err)
		}
		return nil, u.mapError("register", err)
	}

	result, err := u.signIn(ctx, user)
	if err != nil {
		return nil, err
	}
	slog.Info("user registered", "user_id", user.ID)
	return result, nil
}

// Login verifies an email/password pair and signs the user in.
func (u *authUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = entity.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.StoreTimeout)
	defer cancel()

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a comparison anyway so timing does not reveal unknown emails.
			u.hasher.Verify(password, "")
			return nil, domain.New(domain.KindUnauthorized, msgInvalidCredentials)
		}
		return nil, u.mapError("login", err)
	}

	if !user.HasPassword() {
		return nil, domain.New(domain.KindUnauthorized, msgProviderOnly)
	}
	if !u.hasher.Verify(password, *user.PasswordHash) {
		return nil, domain.New(domain.KindUnauthorized, msgInvalidCredentials)
	}

	return u.signIn(ctx, user)
}

// LoginWithProvider signs in with a verified third-party identity, linking or creating
// the account as the reconciliation policy dictates.
func (u *authUsecase) LoginWithProvider(ctx context.Context, assertion entity.ProviderAssertion) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.StoreTimeout)
	defer cancel()

	user, _, err := u.reconciler.Reconcile(ctx, assertion)
	if err != nil {
		if errors.Is(err, ErrIdentityConflict) {
			return nil, domain.Wrap(domain.KindIdentityConflict, msgIdentityConflict, err)
		}
		return nil, u.mapError("login with provider", err)
	}
	return u.signIn(ctx, user)
}

// CurrentUser resolves bearer to an identity. A missing, unknown or expired credential
// yields (nil, nil); only store failures are errors.
func (u *authUsecase) CurrentUser(ctx context.Context, bearer string) (*entity.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.StoreTimeout)
	defer cancel()

	res, err := u.sessions.Resolve(ctx, bearer)
	if err != nil {
		return nil, u.mapError("current user", err)
	}
	if !res.Valid() {
		return nil, nil
	}
	id := res.Identity
	return &id, nil
}

// Logout invalidates the presented credential and, when everywhere is set, every session of
// the user it resolves to. The caller must drop the credential from its storage regardless.
// A stateless token cannot be revoked and stays valid until it expires.
func (u *authUsecase) Logout(ctx context.Context, bearer string, everywhere bool) error {
	if bearer == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.StoreTimeout)
	defer cancel()

	if everywhere {
		res, err := u.sessions.Resolve(ctx, bearer)
		if err != nil {
			return u.mapError("logout", err)
		}
		if res.Valid() {
			n, err := u.sessions.InvalidateAllForUser(ctx, res.Identity.UserID)
			if err != nil {
				return u.mapError("logout", err)
			}
			slog.Info("user sessions invalidated", "user_id", res.Identity.UserID, "count", n, "source", res.Source.String())
		}
	}

	if err := u.sessions.Invalidate(ctx, bearer); err != nil {
		return u.mapError("logout", err)
	}
	return nil
}

// IssueToken exchanges a valid bearer credential for a stateless token.
func (u *authUsecase) IssueToken(ctx context.Context, bearer string) (string, time.Time, error) {
	id, err := u.CurrentUser(ctx, bearer)
	if err != nil {
		return "", time.Time{}, err
	}
	if id == nil {
		return "", time.Time{}, domain.New(domain.KindUnauthorized, msgNotAuthenticated)
	}
	token, expiresAt, err := u.tokens.Sign(*id)
	if err != nil {
		return "", time.Time{}, domain.Wrap(domain.KindInternal, msgInternal, err)
	}
	return token, expiresAt, nil
}

// signIn issues a session for user and records the login time.
func (u *authUsecase) signIn(ctx context.Context, user *entity.User) (*AuthResult, error) {
	session, err := u.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, u.mapError("create session", err)
	}

	now := u.now()
	if _, err := u.users.Update(ctx, user.ID, UserUpdate{LastLogin: &now}); err != nil {
		return nil, u.mapError("record login", err)
	}
	user.LastLogin = &now

	return &AuthResult{
		User:      user.Public(),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// mapError converts store and codec failures into the domain taxonomy. Raw store errors
// never leave the usecase.
func (u *authUsecase) mapError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	switch {
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		slog.Error("credential store unavailable", "op", op, "error", err)
		return domain.Wrap(domain.KindUnavailable, msgUnavailable, err)
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrPreconditionFailed):
		return domain.Wrap(domain.KindConflict, "conflicting update, please retry", err)
	case errors.Is(err, ErrIdentityConflict):
		return domain.Wrap(domain.KindIdentityConflict, msgIdentityConflict, err)
	case errors.Is(err, ErrUserNotFound):
		return domain.Wrap(domain.KindUnauthorized, msgNotAuthenticated, err)
	default:
		slog.Error("auth operation failed", "op", op, "error", err)
		return domain.Wrap(domain.KindInternal, msgInternal, err)
	}
}
