// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

// cachedUser is the cached projection. Credentials are never written to the cache.
type cachedUser struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// CachingUserRepository decorates a UserRepository with a Redis read-through cache for FindByID.
// Users served from the cache carry profile fields only, so it must back identity resolution
// and never a component that inspects credentials.
type CachingUserRepository struct {
	usecase.UserRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.UserRepository = (*CachingUserRepository)(nil)

// NewCachingUserRepository decorates inner. If ttl is 0, it defaults to 5 minutes.
// If namespace is empty, it uses "users".
func NewCachingUserRepository(rdb *redis.Client, ttl time.Duration, inner usecase.UserRepository, namespace string) *CachingUserRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "users"
	}
	return &CachingUserRepository{
		UserRepository: inner,
		rdb:            rdb,
		ttl:            ttl,
		namespace:      namespace,
	}
}

// FindByID checks the cache first and falls back to the inner repository.
func (c *CachingUserRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	if c.rdb == nil {
		return c.UserRepository.FindByID(ctx, id)
	}
	key := c.cacheKey(id)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cu cachedUser
		if err := json.Unmarshal(b, &cu); err == nil && cu.ID == id {
			return &entity.User{
				ID:            cu.ID,
				Email:         cu.Email,
				Name:          cu.Name,
				AvatarURL:     cu.AvatarURL,
				EmailVerified: cu.EmailVerified,
			}, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	u, err := c.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// best effort
	if b, err := json.Marshal(cachedUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
	}); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return u, nil
}

// Update writes through and invalidates the cached entry.
func (c *CachingUserRepository) Update(ctx context.Context, id uint, upd usecase.UserUpdate) (*entity.User, error) {
	u, err := c.UserRepository.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, c.cacheKey(id)).Err()
	}
	return u, nil
}

// Uncached returns a view that reads from the inner repository while still invalidating
// on Update. Components that inspect credentials use this view.
func (c *CachingUserRepository) Uncached() usecase.UserRepository {
	return uncachedUsers{c}
}

type uncachedUsers struct {
	*CachingUserRepository
}

func (u uncachedUsers) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	return u.CachingUserRepository.UserRepository.FindByID(ctx, id)
}

func (c *CachingUserRepository) cacheKey(id uint) string {
	return c.namespace + ":" + strconv.FormatUint(uint64(id), 10)
}
