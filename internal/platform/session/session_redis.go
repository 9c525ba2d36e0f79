// Package session provides a Redis-backed session store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "session"

// record is the JSON value stored under a session key. The token is the key itself.
type record struct {
	UserID       uint      `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// SessionRedis implements usecase.SessionRepository using Redis.
// Session keys expire with the session; a per-user set indexes tokens for bulk logout.
type SessionRedis struct {
	client *redis.Client
	prefix string
}

var _ usecase.SessionRepository = (*SessionRedis)(nil)

// NewSessionRedis creates a new SessionRedis instance.
func NewSessionRedis(client *redis.Client, prefix string) *SessionRedis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionRedis{
		client: client,
		prefix: prefix,
	}
}

// sessionKey returns the Redis key for a session.
func (r *SessionRedis) sessionKey(token string) string {
	return fmt.Sprintf("%s:%s", r.prefix, token)
}

// userSessionsKey returns the Redis key for a user's session set.
func (r *SessionRedis) userSessionsKey(userID uint) string {
	return fmt.Sprintf("%s:user:%d", r.prefix, userID)
}

// translateError maps client failures onto the usecase sentinels. Server error replies are
// passed through; anything else means the server could not be reached in time.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return err
	}
	return fmt.Errorf("%w: %w", usecase.ErrStoreUnavailable, err)
}

// Create persists a new session. SETNX guarantees an existing token is never overwritten.
func (r *SessionRedis) Create(ctx context.Context, session *entity.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(record{
		UserID:       session.UserID,
		ExpiresAt:    session.ExpiresAt,
		CreatedAt:    session.CreatedAt,
		LastAccessed: session.LastAccessed,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.sessionKey(session.Token), data, ttl).Result()
	if err != nil {
		return translateError(err)
	}
	if !ok {
		return usecase.ErrDuplicateKey
	}

	// Add to user's session set. An unindexed session could never be revoked by
	// DeleteByUserID, so the key is dropped when indexing fails.
	if err := r.client.SAdd(ctx, r.userSessionsKey(session.UserID), session.Token).Err(); err != nil {
		if derr := r.client.Del(ctx, r.sessionKey(session.Token)).Err(); derr != nil {
			slog.Error("failed to remove unindexed session", "user_id", session.UserID, "error", derr)
		}
		return translateError(err)
	}
	return nil
}

func (r *SessionRedis) load(ctx context.Context, token string) (*record, error) {
	data, err := r.client.Get(ctx, r.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, usecase.ErrSessionNotFound
		}
		return nil, translateError(err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &rec, nil
}

// FindByToken retrieves a session by token.
func (r *SessionRedis) FindByToken(ctx context.Context, token string) (*entity.Session, error) {
	rec, err := r.load(ctx, token)
	if err != nil {
		return nil, err
	}
	return &entity.Session{
		Token:        token,
		UserID:       rec.UserID,
		ExpiresAt:    rec.ExpiresAt,
		CreatedAt:    rec.CreatedAt,
		LastAccessed: rec.LastAccessed,
	}, nil
}

// Touch refreshes LastAccessed without changing the key's TTL. SET XX never resurrects a
// session deleted since the read.
func (r *SessionRedis) Touch(ctx context.Context, token string, at time.Time) error {
	rec, err := r.load(ctx, token)
	if err != nil {
		return err
	}
	rec.LastAccessed = at

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = r.client.SetArgs(ctx, r.sessionKey(token), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return usecase.ErrSessionNotFound
	}
	return translateError(err)
}

// Delete removes a session and its index entry.
func (r *SessionRedis) Delete(ctx context.Context, token string) error {
	rec, err := r.load(ctx, token)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(token))
		pipe.SRem(ctx, r.userSessionsKey(rec.UserID), token)
		return nil
	})
	return translateError(err)
}

// DeleteByUserID removes every session of a user along with the index set.
func (r *SessionRedis) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	setKey := r.userSessionsKey(userID)
	tokens, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, translateError(err)
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = r.sessionKey(tok)
	}

	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, keys...)
		pipe.Del(ctx, setKey)
		return nil
	})
	if err != nil {
		return 0, translateError(err)
	}
	return del.Val(), nil
}

// DeleteExpired prunes index entries whose session keys Redis has already expired.
// Session keys themselves carry a TTL, so the returned count is the number of stale entries.
func (r *SessionRedis) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64
	iter := r.client.Scan(ctx, 0, r.prefix+":user:*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		tokens, err := r.client.SMembers(ctx, setKey).Result()
		if err != nil {
			return pruned, translateError(err)
		}
		for _, tok := range tokens {
			exists, err := r.client.Exists(ctx, r.sessionKey(tok)).Result()
			if err != nil {
				return pruned, translateError(err)
			}
			if exists == 0 {
				if err := r.client.SRem(ctx, setKey, tok).Err(); err != nil {
					return pruned, translateError(err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, translateError(err)
	}
	return pruned, nil
}
