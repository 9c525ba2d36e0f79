package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

// sessionRepository is a gorm implementation of the SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// Compile-time check to ensure sessionRepository implements SessionRepository.
var _ usecase.SessionRepository = (*sessionRepository)(nil)

// NewSessionRepository creates a new instance of sessionRepository.
func NewSessionRepository(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session. The token is the primary key, so a collision fails
// with usecase.ErrDuplicateKey instead of overwriting.
func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	model := SessionModelFromEntity(session)
	err := conn(ctx, r.db).Omit(clause.Associations).Create(model).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return usecase.ErrUserNotFound
	}
	return translateError(err)
}

// FindByToken retrieves a session by token. Expired rows are returned as well.
func (r *sessionRepository) FindByToken(ctx context.Context, token string) (*entity.Session, error) {
	var model SessionModel
	if err := conn(ctx, r.db).Where("token = ?", token).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrSessionNotFound
		}
		return nil, translateError(err)
	}
	return model.ToEntity(), nil
}

// Touch refreshes LastAccessed.
func (r *sessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	result := conn(ctx, r.db).
		Model(&SessionModel{}).
		Where("token = ?", token).
		Update("last_accessed", at.UTC())

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return usecase.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session by token. Removing an absent token succeeds.
func (r *sessionRepository) Delete(ctx context.Context, token string) error {
	return translateError(conn(ctx, r.db).Where("token = ?", token).Delete(&SessionModel{}).Error)
}

// DeleteByUserID removes every session of a user.
func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	result := conn(ctx, r.db).Where("user_id = ?", userID).Delete(&SessionModel{})
	return result.RowsAffected, translateError(result.Error)
}

// DeleteExpired removes all sessions whose expiry is at or before now.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).Where("expires_at <= ?", now.UTC()).Delete(&SessionModel{})
	return result.RowsAffected, translateError(result.Error)
}
