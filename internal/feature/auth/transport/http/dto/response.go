package dto

import (
	"time"

	"auth_backend/internal/feature/auth/domain/entity"
)

// UserRes wraps the public user view.
type UserRes struct {
	User entity.PublicUser `json:"user"`
}

// IdentityRes wraps the identity behind the presented credential.
type IdentityRes struct {
	User entity.Identity `json:"user"`
}

// TokenRes carries a stateless token for API clients.
type TokenRes struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MessageRes is a plain acknowledgement.
type MessageRes struct {
	Message string `json:"message"`
}

// ErrorRes is the body of every error response.
type ErrorRes struct {
	Error string `json:"error"`
}
