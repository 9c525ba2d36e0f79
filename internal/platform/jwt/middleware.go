package jwtmw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"auth_backend/internal/feature/auth/domain"
	"auth_backend/internal/feature/auth/domain/entity"
)

const (
	// ContextUserID is the gin context key holding the authenticated user's ID (uint).
	ContextUserID = "userID"
	// ContextIdentity is the gin context key holding the authenticated entity.Identity.
	ContextIdentity = "identity"
	// DefaultCookieName is the cookie carrying the bearer credential.
	DefaultCookieName = "auth_token"
)

// BearerResolver turns a raw bearer credential into an identity.
// A nil identity with a nil error means unauthenticated.
type BearerResolver interface {
	CurrentUser(ctx context.Context, bearer string) (*entity.Identity, error)
}

// BearerFromRequest extracts the bearer credential, preferring the cookie over the Authorization header.
func BearerFromRequest(c *gin.Context, cookieName string) string {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// AuthRequired returns a Gin middleware that resolves the bearer credential (stateless token or
// server-side session) and restricts access to authenticated users only.
func AuthRequired(resolver BearerResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := BearerFromRequest(c, cookieName)
		if bearer == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := resolver.CurrentUser(c.Request.Context(), bearer)
		if err != nil {
			// The store being down is not the caller's fault; keep it distinguishable from a bad credential.
			if errors.Is(err, domain.ErrUnavailable) {
				slog.Error("bearer resolution unavailable", "error", err, "remote_addr", c.ClientIP())
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication temporarily unavailable"})
				return
			}
			slog.Error("bearer resolution failed", "error", err, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextIdentity, *identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by AuthRequired.
func IdentityFrom(c *gin.Context) (entity.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return entity.Identity{}, false
	}
	id, ok := v.(entity.Identity)
	return id, ok
}
