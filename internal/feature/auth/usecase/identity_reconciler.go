package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auth_backend/internal/feature/auth/domain/entity"
)

// ReconcileOutcome records which branch of the linking policy was taken.
type ReconcileOutcome int

const (
	// OutcomeExisting means a user was already linked to the provider identity.
	OutcomeExisting ReconcileOutcome = iota
	// OutcomeLinked means the identity was attached to an existing user with the same email.
	OutcomeLinked
	// OutcomeCreated means a new provider-only user was created.
	OutcomeCreated
)

func (o ReconcileOutcome) String() string {
	switch o {
	case OutcomeLinked:
		return "linked"
	case OutcomeCreated:
		return "created"
	default:
		return "existing"
	}
}

// IdentityReconciler maps a verified third-party identity onto exactly one user record.
type IdentityReconciler struct {
	users UserRepository
	tx    Transactor
}

// NewIdentityReconciler creates an IdentityReconciler.
func NewIdentityReconciler(users UserRepository, tx Transactor) *IdentityReconciler {
	return &IdentityReconciler{users: users, tx: tx}
}

// Reconcile applies the account-linking policy inside one store transaction:
//  1. a user already holding the provider ID is returned unchanged;
//  2. otherwise a user with the same email and no provider ID gets it attached,
//     while a user with a different provider ID fails with ErrIdentityConflict;
//  3. otherwise a new provider-only user with a verified email is created.
//
// Concurrent identical calls are arbitrated by the store's unique constraints; the loser
// sees ErrDuplicateKey rather than a silent merge.
func (r *IdentityReconciler) Reconcile(ctx context.Context, a entity.ProviderAssertion) (*entity.User, ReconcileOutcome, error) {
	a = a.Canonical()
	if err := a.Validate(); err != nil {
		return nil, OutcomeExisting, err
	}

	var (
		result  *entity.User
		outcome ReconcileOutcome
	)
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := r.users.FindByProviderID(ctx, a.ProviderID)
		if err == nil {
			result, outcome = user, OutcomeExisting
			return nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("failed to find user by provider id: %w", err)
		}

		user, err = r.users.FindByEmail(ctx, a.Email)
		switch {
		case err == nil:
			linked, err := r.link(ctx, user, a)
			if err != nil {
				return err
			}
			result, outcome = linked, OutcomeLinked
			return nil
		case errors.Is(err, ErrUserNotFound):
			created, err := r.create(ctx, a)
			if err != nil {
				return err
			}
			result, outcome = created, OutcomeCreated
			return nil
		default:
			return fmt.Errorf("failed to find user by email: %w", err)
		}
	})
	if err != nil {
		return nil, OutcomeExisting, err
	}

	slog.Info("provider identity reconciled", "user_id", result.ID, "outcome", outcome.String())
	return result, outcome, nil
}

func (r *IdentityReconciler) link(ctx context.Context, user *entity.User, a entity.ProviderAssertion) (*entity.User, error) {
	if user.HasProvider() {
		// The provider ID lookup already missed, so this is a different identity.
		slog.Warn("provider identity conflict", "user_id", user.ID)
		return nil, ErrIdentityConflict
	}

	verified := true
	upd := UserUpdate{
		ProviderID:        &a.ProviderID,
		EmailVerified:     &verified,
		RequireNoProvider: true,
	}
	if user.Name == "" && a.Name != "" {
		upd.Name = &a.Name
	}
	if user.AvatarURL == "" && a.AvatarURL != "" {
		upd.AvatarURL = &a.AvatarURL
	}

	linked, err := r.users.Update(ctx, user.ID, upd)
	if err == nil {
		return linked, nil
	}
	if !errors.Is(err, ErrPreconditionFailed) {
		return nil, fmt.Errorf("failed to link provider identity: %w", err)
	}

	// Someone linked this user between our read and write. Same identity is fine,
	// anything else is a conflict.
	current, ferr := r.users.FindByID(ctx, user.ID)
	if ferr != nil {
		return nil, fmt.Errorf("failed to reload user after link race: %w", ferr)
	}
	if current.ProviderID != nil && *current.ProviderID == a.ProviderID {
		return current, nil
	}
	return nil, ErrIdentityConflict
}

func (r *IdentityReconciler) create(ctx context.Context, a entity.ProviderAssertion) (*entity.User, error) {
	providerID := a.ProviderID
	user := &entity.User{
		Email:         a.Email,
		ProviderID:    &providerID,
		Name:          a.Name,
		AvatarURL:     a.AvatarURL,
		EmailVerified: true,
	}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create provider user: %w", err)
	}
	return user, nil
}
