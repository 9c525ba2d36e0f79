package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth_backend/internal/feature/auth/domain/entity"
)

func newTestSessionManager(t *testing.T, store *memStore, codec TokenVerifier) *SessionManager {
	t.Helper()
	if codec == nil {
		codec = &mockTokenCodec{}
	}
	return NewSessionManager(memSessions{store}, memUsers{store}, codec, SessionManagerConfig{})
}

func seedUser(t *testing.T, store *memStore, email string) *entity.User {
	t.Helper()
	hash := "hashed:secret1"
	u := &entity.User{Email: email, PasswordHash: &hash, Name: "Seed"}
	require.NoError(t, memUsers{store}.Create(context.Background(), u))
	return u
}

func TestNewSessionManager_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		cfg          SessionManagerConfig
		wantTTL      time.Duration
		wantAttempts int
	}{
		{"zero config", SessionManagerConfig{}, DefaultSessionTTL, DefaultSessionInsertAttempts},
		{"negative values", SessionManagerConfig{TTL: -time.Hour, InsertAttempts: -1}, DefaultSessionTTL, DefaultSessionInsertAttempts},
		{"custom values", SessionManagerConfig{TTL: time.Hour, InsertAttempts: 5}, time.Hour, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewSessionManager(nil, nil, nil, tt.cfg)
			assert.Equal(t, tt.wantTTL, m.ttl)
			assert.Equal(t, tt.wantAttempts, m.insertAttempts)
		})
	}
}

func TestGenerateSessionToken(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := generateSessionToken()
		require.NoError(t, err)
		assert.Len(t, tok, sessionTokenBytes*2)
		_, dup := seen[tok]
		assert.False(t, dup, "token repeated")
		seen[tok] = struct{}{}
	}
}

func TestSessionManager_CreateAndResolve(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := seedUser(t, store, "a@x.com")
	m := newTestSessionManager(t, store, nil)
	ctx := context.Background()

	session, err := m.Create(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Len(t, session.Token, 64)
	assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), session.ExpiresAt, time.Minute)

	res, err := m.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, SourceSession, res.Source)
	assert.Equal(t, user.ID, res.Identity.UserID)
	assert.Equal(t, "a@x.com", res.Identity.Email)

	require.NoError(t, m.Invalidate(ctx, session.Token))

	res, err = m.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, SourceNone, res.Source)
}

func TestSessionManager_ResolveRefreshesLastAccessed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := seedUser(t, store, "a@x.com")
	m := newTestSessionManager(t, store, nil)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	session, err := m.Create(ctx, user.ID)
	require.NoError(t, err)

	later := base.Add(2 * time.Hour)
	m.now = func() time.Time { return later }
	_, err = m.Resolve(ctx, session.Token)
	require.NoError(t, err)

	stored, err := memSessions{store}.FindByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, stored.LastAccessed.Equal(later))
	assert.True(t, stored.CreatedAt.Equal(base))
}

func TestSessionManager_ResolveExpired(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := seedUser(t, store, "a@x.com")
	m := newTestSessionManager(t, store, nil)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	session, err := m.Create(ctx, user.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		at        time.Time
		wantValid bool
	}{
		{"one second before expiry", session.ExpiresAt.Add(-time.Second), true},
		{"exactly at expiry", session.ExpiresAt, false},
		{"long after expiry", session.ExpiresAt.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		m.now = func() time.Time { return tt.at }
		res, err := m.Resolve(ctx, session.Token)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.wantValid, res.Valid(), tt.name)
	}

	// The expired row is still there; only the sweep removes it.
	_, err = memSessions{store}.FindByToken(ctx, session.Token)
	assert.NoError(t, err)
}

func TestSessionManager_ResolveStatelessTokenFirst(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	var sessionLookups int
	store.fail = func(op string) error {
		if op == "session.find" {
			sessionLookups++
		}
		return nil
	}
	codec := &mockTokenCodec{
		VerifyFunc: func(token string) (entity.Identity, bool) {
			if token == "signed" {
				return entity.Identity{UserID: 7, Email: "t@x.com"}, true
			}
			return entity.Identity{}, false
		},
	}
	m := newTestSessionManager(t, store, codec)

	res, err := m.Resolve(context.Background(), "signed")
	require.NoError(t, err)
	assert.Equal(t, SourceToken, res.Source)
	assert.Equal(t, uint(7), res.Identity.UserID)
	assert.Zero(t, sessionLookups, "a valid stateless token must not hit the session store")

	res, err = m.Resolve(context.Background(), "not-a-session")
	require.NoError(t, err)
	assert.False(t, res.Valid())
	assert.Equal(t, 1, sessionLookups)
}

func TestSessionManager_ResolveNone(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := newTestSessionManager(t, store, nil)
	ctx := context.Background()

	// Session whose user vanished.
	require.NoError(t, memSessions{store}.Create(ctx, &entity.Session{
		Token: "orphan", UserID: 99, ExpiresAt: time.Now().Add(time.Hour),
	}))

	for _, bearer := range []string{"", "unknown", "orphan"} {
		res, err := m.Resolve(ctx, bearer)
		require.NoError(t, err, bearer)
		assert.False(t, res.Valid(), bearer)
	}
}

func TestSessionManager_ResolveStoreFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		failOp string
	}{
		{"lookup fails", "session.find"},
		{"touch fails", "session.touch"},
		{"user join fails", "user.find_by_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			user := seedUser(t, store, "a@x.com")
			m := newTestSessionManager(t, store, nil)
			session, err := m.Create(context.Background(), user.ID)
			require.NoError(t, err)

			store.fail = func(op string) error {
				if op == tt.failOp {
					return ErrStoreUnavailable
				}
				return nil
			}

			_, err = m.Resolve(context.Background(), session.Token)
			assert.ErrorIs(t, err, ErrStoreUnavailable)
		})
	}
}

func TestSessionManager_CreateCollisionRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		preexisting []string
		tokens      []string
		wantToken   string
		wantCalls   int
		wantErr     error
	}{
		{
			name:        "first token collides, second succeeds",
			preexisting: []string{"taken"},
			tokens:      []string{"taken", "fresh"},
			wantToken:   "fresh",
			wantCalls:   2,
		},
		{
			name:        "every attempt collides",
			preexisting: []string{"taken"},
			tokens:      []string{"taken", "taken", "taken"},
			wantErr:     ErrTokenCollision,
			wantCalls:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			user := seedUser(t, store, "a@x.com")
			for _, tok := range tt.preexisting {
				require.NoError(t, memSessions{store}.Create(context.Background(), &entity.Session{
					Token: tok, UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour),
				}))
			}

			m := newTestSessionManager(t, store, nil)
			calls := 0
			m.newToken = func() (string, error) {
				tok := tt.tokens[calls]
				calls++
				return tok, nil
			}

			session, err := m.Create(context.Background(), user.ID)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, session.Token)
		})
	}
}

func TestSessionManager_CreateStoreFailureNotRetried(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.fail = func(op string) error {
		if op == "session.create" {
			return ErrStoreUnavailable
		}
		return nil
	}
	m := newTestSessionManager(t, store, nil)
	calls := 0
	m.newToken = func() (string, error) {
		calls++
		return fmt.Sprintf("tok-%d", calls), nil
	}

	_, err := m.Create(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 1, calls)
}

func TestSessionManager_InvalidateAllForUser(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ana := seedUser(t, store, "a@x.com")
	bo := seedUser(t, store, "b@x.com")
	m := newTestSessionManager(t, store, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Create(ctx, ana.ID)
		require.NoError(t, err)
	}
	boSession, err := m.Create(ctx, bo.ID)
	require.NoError(t, err)

	n, err := m.InvalidateAllForUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Empty(t, store.sessionTokens(ana.ID))
	assert.Equal(t, []string{boSession.Token}, store.sessionTokens(bo.ID))
}

func TestSessionManager_InvalidateIsIdempotent(t *testing.T) {
	t.Parallel()

	m := newTestSessionManager(t, newMemStore(), nil)
	assert.NoError(t, m.Invalidate(context.Background(), ""))
	assert.NoError(t, m.Invalidate(context.Background(), "never-existed"))
}

func TestSessionManager_PurgeExpired(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	user := seedUser(t, store, "a@x.com")
	m := newTestSessionManager(t, store, nil)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base.Add(-2 * DefaultSessionTTL) }
	_, err := m.Create(ctx, user.ID)
	require.NoError(t, err)

	m.now = func() time.Time { return base }
	live, err := m.Create(ctx, user.ID)
	require.NoError(t, err)

	n, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{live.Token}, store.sessionTokens(user.ID))
}

func TestSessionManager_RunSweeper(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	swept := make(chan struct{}, 10)
	store.fail = func(op string) error {
		if op == "session.delete_expired" {
			select {
			case swept <- struct{}{}:
			default:
			}
		}
		return nil
	}
	m := newTestSessionManager(t, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestBearerSource_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", SourceNone.String())
	assert.Equal(t, "token", SourceToken.String())
	assert.Equal(t, "session", SourceSession.String())
}
