package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"auth_backend/internal/feature/auth/domain/entity"
)

// memStore is an in-memory credential store used by the usecase tests.
// It enforces the same uniqueness rules as the relational schema.
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	users    map[uint]*entity.User
	sessions map[string]*entity.Session

	// fail, when set, is consulted before every operation; a non-nil result is returned as-is.
	fail func(op string) error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1,
		users:    make(map[uint]*entity.User),
		sessions: make(map[string]*entity.Session),
	}
}

func (s *memStore) check(op string) error {
	if s.fail != nil {
		return s.fail(op)
	}
	return nil
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	if u.PasswordHash != nil {
		v := *u.PasswordHash
		c.PasswordHash = &v
	}
	if u.ProviderID != nil {
		v := *u.ProviderID
		c.ProviderID = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) user(id uint) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *memStore) sessionTokens(userID uint) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for tok, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

// WithinTransaction snapshots the store and restores it when fn fails.
func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.check("tx"); err != nil {
		return err
	}
	s.mu.Lock()
	nextID := s.nextID
	users := make(map[uint]*entity.User, len(s.users))
	for id, u := range s.users {
		users[id] = cloneUser(u)
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.nextID, s.users = nextID, users
		s.mu.Unlock()
		return err
	}
	return nil
}

type memUsers struct{ *memStore }

func (s memUsers) Create(ctx context.Context, user *entity.User) error {
	if err := s.check("user.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicateKey
		}
		if user.ProviderID != nil && u.ProviderID != nil && *u.ProviderID == *user.ProviderID {
			return ErrDuplicateKey
		}
	}
	user.ID = s.nextID
	s.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s memUsers) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	if err := s.check("user.find_by_id"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, ErrUserNotFound
}

func (s memUsers) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := s.check("user.find_by_email"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s memUsers) FindByProviderID(ctx context.Context, providerID string) (*entity.User, error) {
	if err := s.check("user.find_by_provider"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ProviderID != nil && *u.ProviderID == providerID {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s memUsers) Update(ctx context.Context, id uint, upd UserUpdate) (*entity.User, error) {
	if err := s.check("user.update"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if upd.RequireNoPassword && u.PasswordHash != nil {
		return nil, ErrPreconditionFailed
	}
	if upd.RequireNoProvider && u.ProviderID != nil {
		return nil, ErrPreconditionFailed
	}
	if upd.ProviderID != nil {
		for oid, o := range s.users {
			if oid != id && o.ProviderID != nil && *o.ProviderID == *upd.ProviderID {
				return nil, ErrDuplicateKey
			}
		}
		v := *upd.ProviderID
		u.ProviderID = &v
	}
	if upd.PasswordHash != nil {
		v := *upd.PasswordHash
		u.PasswordHash = &v
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.LastLogin != nil {
		v := *upd.LastLogin
		u.LastLogin = &v
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

type memSessions struct{ *memStore }

func (s memSessions) Create(ctx context.Context, session *entity.Session) error {
	if err := s.check("session.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Token]; ok {
		return ErrDuplicateKey
	}
	c := *session
	s.sessions[session.Token] = &c
	return nil
}

func (s memSessions) FindByToken(ctx context.Context, token string) (*entity.Session, error) {
	if err := s.check("session.find"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		c := *sess
		return &c, nil
	}
	return nil, ErrSessionNotFound
}

func (s memSessions) Touch(ctx context.Context, token string, at time.Time) error {
	if err := s.check("session.touch"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessed = at
	return nil
}

func (s memSessions) Delete(ctx context.Context, token string) error {
	if err := s.check("session.delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s memSessions) DeleteByUserID(ctx context.Context, userID uint) (int64, error) {
	if err := s.check("session.delete_by_user"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for tok, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, tok)
			n++
		}
	}
	return n, nil
}

func (s memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := s.check("session.delete_expired"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for tok, sess := range s.sessions {
		if sess.IsExpiredAt(now) {
			delete(s.sessions, tok)
			n++
		}
	}
	return n, nil
}

// mockTokenCodec is a mock implementation of TokenCodec.
type mockTokenCodec struct {
	// SignFunc is called when the Sign method is invoked.
	SignFunc func(id entity.Identity) (string, time.Time, error)
	// VerifyFunc is called when the Verify method is invoked.
	VerifyFunc func(token string) (entity.Identity, bool)
}

func (m *mockTokenCodec) Sign(id entity.Identity) (string, time.Time, error) {
	if m.SignFunc != nil {
		return m.SignFunc(id)
	}
	return "mock-jwt-token", time.Now().Add(time.Hour), nil
}

func (m *mockTokenCodec) Verify(token string) (entity.Identity, bool) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(token)
	}
	// Default: not a stateless token
	return entity.Identity{}, false
}

// mockPasswordHasher is a mock implementation of PasswordHasher with a reversible "hash".
type mockPasswordHasher struct {
	// HashFunc is called when the Hash method is invoked.
	HashFunc func(plaintext string) (string, error)
	// verifyCalls counts Verify invocations.
	verifyCalls int
}

func (m *mockPasswordHasher) Hash(plaintext string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(plaintext)
	}
	return "hashed:" + plaintext, nil
}

func (m *mockPasswordHasher) Verify(plaintext, hash string) bool {
	m.verifyCalls++
	return hash != "" && hash == "hashed:"+plaintext
}
