package adapters

import (
	"time"

	"auth_backend/internal/feature/auth/domain/entity"
)

// SessionModel is the GORM model for the sessions table.
// Rows are removed with their user through the foreign key.
type SessionModel struct {
	Token        string       `gorm:"primaryKey;size:64"`
	UserID       uint         `gorm:"index;not null"`
	User         *entity.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExpiresAt    time.Time    `gorm:"index;not null"`
	CreatedAt    time.Time    `gorm:"not null"`
	LastAccessed time.Time    `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}

// ToEntity converts the GORM model to a domain entity.
func (m *SessionModel) ToEntity() *entity.Session {
	return &entity.Session{
		Token:        m.Token,
		UserID:       m.UserID,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
		LastAccessed: m.LastAccessed,
	}
}

// SessionModelFromEntity converts a domain entity to a GORM model.
// Times are stored in UTC so that sqlite's text comparison orders them correctly.
func SessionModelFromEntity(s *entity.Session) *SessionModel {
	return &SessionModel{
		Token:        s.Token,
		UserID:       s.UserID,
		ExpiresAt:    s.ExpiresAt.UTC(),
		CreatedAt:    s.CreatedAt.UTC(),
		LastAccessed: s.LastAccessed.UTC(),
	}
}

// Models lists every table of the credential store in migration order.
func Models() []any {
	return []any{&entity.User{}, &SessionModel{}}
}
