// Package entity defines the domain entities for the auth feature.
package entity

import (
	"strings"
	"time"
)

// User represents a person who can sign in, with a password, a third-party identity, or both.
// At least one of PasswordHash and ProviderID is set for every persisted user.
type User struct {
	// ID is the unique identifier for the user. Assigned by the store, never changes.
	ID uint `gorm:"primaryKey"`

	// Email is the canonical (trimmed, lower-cased) address. Unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// PasswordHash is the bcrypt hash, nil for provider-only accounts.
	PasswordHash *string `gorm:"size:255"`

	// ProviderID is the third-party subject identifier. Unique when present.
	ProviderID *string `gorm:"uniqueIndex;size:255"`

	Name      string `gorm:"size:255"`
	AvatarURL string `gorm:"size:1024"`

	// EmailVerified is true once a trusted provider has asserted ownership of Email.
	EmailVerified bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin *time.Time
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// HasProvider reports whether a third-party identity is linked.
func (u *User) HasProvider() bool {
	return u.ProviderID != nil && *u.ProviderID != ""
}

// HasCredential reports whether the user still has at least one way to sign in.
func (u *User) HasCredential() bool {
	return u.HasPassword() || u.HasProvider()
}

// Identity returns the minimal identity carried by bearer credentials.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// Public returns the view of the user that may leave the service.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
	}
}

// PublicUser is the user as seen by clients. It never carries credentials.
type PublicUser struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// NormalizeEmail returns the canonical form used as the unique key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
