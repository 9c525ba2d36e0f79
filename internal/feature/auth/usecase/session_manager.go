package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auth_backend/internal/feature/auth/domain/entity"
)

const (
	// DefaultSessionTTL is how long a server-side session stays valid.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// DefaultSessionInsertAttempts bounds the retries on a token collision.
	DefaultSessionInsertAttempts = 3

	// sessionTokenBytes is the entropy of a session token (256 bits).
	sessionTokenBytes = 32
)

// BearerSource tells which verification path accepted a bearer credential.
type BearerSource int

const (
	// SourceNone means neither path accepted the credential.
	SourceNone BearerSource = iota
	// SourceToken means the credential is a valid stateless token.
	SourceToken
	// SourceSession means the credential matched a live server-side session.
	SourceSession
)

func (s BearerSource) String() string {
	switch s {
	case SourceToken:
		return "token"
	case SourceSession:
		return "session"
	default:
		return "none"
	}
}

// Resolution is the outcome of resolving a bearer credential.
type Resolution struct {
	Identity entity.Identity
	Source   BearerSource
}

// Valid reports whether the credential was accepted.
func (r Resolution) Valid() bool {
	return r.Source != SourceNone
}

// SessionManagerConfig tunes the session manager. Zero values select the defaults.
type SessionManagerConfig struct {
	TTL            time.Duration
	InsertAttempts int
}

// SessionManager issues and validates bearer credentials. It accepts either a stateless
// token or an opaque session token under a single resolution call.
type SessionManager struct {
	sessions SessionRepository
	users    UserRepository
	tokens   TokenVerifier

	ttl            time.Duration
	insertAttempts int
	now            func() time.Time
	newToken       func() (string, error)
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(sessions SessionRepository, users UserRepository, tokens TokenVerifier, cfg SessionManagerConfig) *SessionManager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.InsertAttempts <= 0 {
		cfg.InsertAttempts = DefaultSessionInsertAttempts
	}
	return &SessionManager{
		sessions:       sessions,
		users:          users,
		tokens:         tokens,
		ttl:            cfg.TTL,
		insertAttempts: cfg.InsertAttempts,
		now:            time.Now,
		newToken:       generateSessionToken,
	}
}

// generateSessionToken returns a 64-character hex string from crypto/rand.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create issues a new session for userID. A token collision on insert is retried with a
// fresh token; after the configured number of attempts it fails with ErrTokenCollision.
func (m *SessionManager) Create(ctx context.Context, userID uint) (*entity.Session, error) {
	for attempt := 1; attempt <= m.insertAttempts; attempt++ {
		token, err := m.newToken()
		if err != nil {
			return nil, err
		}
		now := m.now()
		session := &entity.Session{
			Token:        token,
			UserID:       userID,
			ExpiresAt:    now.Add(m.ttl),
			CreatedAt:    now,
			LastAccessed: now,
		}

		err = m.sessions.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		slog.Warn("session token collision, retrying", "user_id", userID, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrTokenCollision, m.insertAttempts)
}

// Resolve verifies bearer as a stateless token first and, failing that, looks it up as a
// session token. A live session has its LastAccessed refreshed and is joined to its user.
// An unknown, expired or orphaned credential resolves to SourceNone with a nil error; only
// store failures are returned as errors.
func (m *SessionManager) Resolve(ctx context.Context, bearer string) (Resolution, error) {
	if bearer == "" {
		return Resolution{}, nil
	}

	if id, ok := m.tokens.Verify(bearer); ok {
		return Resolution{Identity: id, Source: SourceToken}, nil
	}

	session, err := m.sessions.FindByToken(ctx, bearer)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Resolution{}, nil
		}
		return Resolution{}, fmt.Errorf("failed to find session: %w", err)
	}

	now := m.now()
	if session.IsExpiredAt(now) {
		return Resolution{}, nil
	}

	if err := m.sessions.Touch(ctx, bearer, now); err != nil {
		// Deleted between lookup and touch: the logout won.
		if errors.Is(err, ErrSessionNotFound) {
			return Resolution{}, nil
		}
		return Resolution{}, fmt.Errorf("failed to touch session: %w", err)
	}

	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Resolution{}, nil
		}
		return Resolution{}, fmt.Errorf("failed to load session user: %w", err)
	}

	return Resolution{Identity: user.Identity(), Source: SourceSession}, nil
}

// Invalidate deletes the session matching bearer. A stateless token has no row, so this is
// a no-op for it: such tokens stay valid until they expire.
func (m *SessionManager) Invalidate(ctx context.Context, bearer string) error {
	if bearer == "" {
		return nil
	}
	if err := m.sessions.Delete(ctx, bearer); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllForUser deletes every session owned by userID.
func (m *SessionManager) InvalidateAllForUser(ctx context.Context, userID uint) (int64, error) {
	n, err := m.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return n, nil
}

// PurgeExpired removes expired session rows. Resolution checks expiry on its own, so this
// only reclaims space.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return n, nil
}

// RunSweeper calls PurgeExpired every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}
