package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

// userRepository is a gorm implementation of the UserRepository interface.
// It works against postgres in production and sqlite in tests.
type userRepository struct {
	db *gorm.DB
}

// Compile-time check to ensure userRepository implements UserRepository.
var _ usecase.UserRepository = (*userRepository)(nil)

// NewUserRepository creates a new instance of userRepository.
func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

// Create adds a user to the database.
// It returns usecase.ErrDuplicateKey if the email or provider ID is already taken.
func (r *userRepository) Create(ctx context.Context, u *entity.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	return translateError(conn(ctx, r.db).Create(u).Error)
}

// FindByID retrieves a user by ID.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmail retrieves a user by canonical email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "email = ?", email)
}

// FindByProviderID retrieves a user by third-party subject identifier.
func (r *userRepository) FindByProviderID(ctx context.Context, providerID string) (*entity.User, error) {
	return r.first(ctx, "provider_id = ?", providerID)
}

func (r *userRepository) first(ctx context.Context, query string, arg any) (*entity.User, error) {
	var u entity.User
	if err := conn(ctx, r.db).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, translateError(err)
	}
	return &u, nil
}

// Update applies the non-nil fields of upd in a single statement. Guards become extra
// WHERE conditions, so a concurrent writer that set the guarded column first makes this
// update match no row and fail with usecase.ErrPreconditionFailed.
func (r *userRepository) Update(ctx context.Context, id uint, upd usecase.UserUpdate) (*entity.User, error) {
	values := updateValues(upd)
	if len(values) == 0 {
		return r.FindByID(ctx, id)
	}

	q := conn(ctx, r.db).Model(&entity.User{}).Where("id = ?", id)
	if upd.RequireNoPassword {
		q = q.Where("password_hash IS NULL")
	}
	if upd.RequireNoProvider {
		q = q.Where("provider_id IS NULL")
	}

	result := q.Updates(values)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	if result.RowsAffected == 0 {
		// Either the row is gone or a guard did not hold.
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		if upd.RequireNoPassword || upd.RequireNoProvider {
			return nil, usecase.ErrPreconditionFailed
		}
	}
	return r.FindByID(ctx, id)
}

func updateValues(upd usecase.UserUpdate) map[string]any {
	values := make(map[string]any)
	if upd.PasswordHash != nil {
		values["password_hash"] = *upd.PasswordHash
	}
	if upd.ProviderID != nil {
		values["provider_id"] = *upd.ProviderID
	}
	if upd.Name != nil {
		values["name"] = *upd.Name
	}
	if upd.AvatarURL != nil {
		values["avatar_url"] = *upd.AvatarURL
	}
	if upd.EmailVerified != nil {
		values["email_verified"] = *upd.EmailVerified
	}
	if upd.LastLogin != nil {
		values["last_login"] = *upd.LastLogin
	}
	return values
}
