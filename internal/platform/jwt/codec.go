// Package jwtmw signs and verifies stateless bearer tokens and provides the gin authentication middleware.
package jwtmw

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auth_backend/internal/feature/auth/domain/entity"
)

const (
	// DefaultExpiration is the validity window of a stateless token.
	DefaultExpiration = 7 * 24 * time.Hour

	// DevelopmentSecret is used when no secret is configured. config.Validate refuses it outside development.
	DevelopmentSecret = "development-only-jwt-secret-do-not-deploy"
)

// Claims is the signed claim set of a stateless token.
type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens with a server-held secret.
type Codec struct {
	secret     []byte
	expiration time.Duration
	insecure   bool
	now        func() time.Time
}

// NewCodec creates a Codec. An empty secret falls back to DevelopmentSecret and marks the codec insecure.
// A non-positive expiration falls back to DefaultExpiration.
func NewCodec(secret string, expiration time.Duration) *Codec {
	insecure := false
	if secret == "" || secret == DevelopmentSecret {
		secret = DevelopmentSecret
		insecure = true
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &Codec{
		secret:     []byte(secret),
		expiration: expiration,
		insecure:   insecure,
		now:        time.Now,
	}
}

// Insecure reports whether the codec is running on the development fallback secret.
func (c *Codec) Insecure() bool {
	return c.insecure
}

// Sign issues a token for id and returns it with its expiry.
func (c *Codec) Sign(id entity.Identity) (string, time.Time, error) {
	if id.UserID == 0 {
		return "", time.Time{}, errors.New("cannot sign token without a user id")
	}
	now := c.now()
	expiresAt := now.Add(c.expiration)
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. Any malformed, expired or mis-signed input yields ok == false;
// it never returns an error so callers can fall through to session lookup.
func (c *Codec) Verify(tokenStr string) (entity.Identity, bool) {
	if tokenStr == "" {
		return entity.Identity{}, false
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid || claims.UserID == 0 {
		return entity.Identity{}, false
	}
	return entity.Identity{UserID: claims.UserID, Email: claims.Email, Name: claims.Name}, true
}
