package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"auth_backend/internal/config"
	authadapters "auth_backend/internal/feature/auth/adapters"
	"auth_backend/internal/feature/auth/adapters/google"
	authhandler "auth_backend/internal/feature/auth/transport/handler"
	"auth_backend/internal/feature/auth/usecase"
	"auth_backend/internal/platform/cache"
	jwtmw "auth_backend/internal/platform/jwt"
	"auth_backend/internal/platform/password"
	"auth_backend/internal/shared/ratelimiter"
)

// Auth is the wired auth feature.
type Auth struct {
	Usecase  authhandler.AuthUsecase
	Handler  *authhandler.AuthHandler
	Sessions *usecase.SessionManager
	// Limiter is nil when rate limiting is disabled.
	Limiter ratelimiter.Limiter
}

// NewAuth wires the auth feature. rdb may be nil.
func NewAuth(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Auth, error) {
	sessionRepo, err := NewSessionRepository(cfg.SessionStore, rdb, db)
	if err != nil {
		return nil, err
	}

	var users usecase.UserRepository = authadapters.NewUserRepository(db)
	// session resolution reads through the profile cache; everything else reads the store
	sessionUsers := users
	if rdb != nil && cfg.UserCacheTTL > 0 {
		cached := cache.NewCachingUserRepository(rdb, cfg.UserCacheTTL, users, "users")
		users, sessionUsers = cached.Uncached(), cached
	}
	tx := authadapters.NewTransactor(db)
	codec := jwtmw.NewCodec(cfg.JWTSecret, cfg.JWTExpiry)

	sessions := usecase.NewSessionManager(sessionRepo, sessionUsers, codec, usecase.SessionManagerConfig{
		TTL:            cfg.SessionTTL,
		InsertAttempts: cfg.SessionInsertRetries,
	})
	reconciler := usecase.NewIdentityReconciler(users, tx)
	uc := usecase.NewAuthUsecase(users, tx, sessions, reconciler, password.NewHasher(cfg.BcryptCost), codec, usecase.AuthConfig{
		AllowPasswordUpgrade: cfg.AllowPasswordUpgrade,
		StoreTimeout:         cfg.StoreTimeout,
	})

	provider := google.NewProvider(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	h := authhandler.NewAuthHandler(uc, provider, authhandler.CookieConfig{
		Name:   cfg.CookieName,
		Secure: !cfg.IsDev(),
	})

	return &Auth{
		Usecase:  uc,
		Handler:  h,
		Sessions: sessions,
		Limiter:  NewLimiter(cfg, rdb),
	}, nil
}

// NewLimiter returns the login limiter: Redis-backed when rdb is set, in-process otherwise.
func NewLimiter(cfg *config.Config, rdb *redis.Client) ratelimiter.Limiter {
	if cfg.LoginRateLimit <= 0 {
		return nil
	}
	if rdb != nil {
		return ratelimiter.NewRedisRateLimiter(rdb, "ratelimit", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}
	return ratelimiter.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
}
