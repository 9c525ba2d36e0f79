package entity

import "time"

// Session is a server-side, revocable authorization grant keyed by an opaque token.
type Session struct {
	Token        string    // 64-character hex string, 256 bits of entropy
	UserID       uint      // Owning user
	ExpiresAt    time.Time // Absolute expiry
	CreatedAt    time.Time // Session creation time
	LastAccessed time.Time // Refreshed on every successful resolution
}

// IsExpiredAt reports whether the session is past its expiry at the given instant.
// A session whose ExpiresAt equals now is already expired.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsExpired returns true if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}
