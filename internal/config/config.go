// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	jwtmw "auth_backend/internal/platform/jwt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreGorm  = "gorm"
	StoreRedis = "redis"
	StoreAuto  = "auto"
)

// Config is built once at startup and passed down explicitly.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	DBDriver      string        `env:"DB_DRIVER" envDefault:"postgres"`
	DBDSN         string        `env:"DB_DSN"`
	DBHost        string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string        `env:"DB_PORT" envDefault:"5432"`
	DBUser        string        `env:"DB_USER"`
	DBPassword    string        `env:"DB_PASSWORD"`
	DBName        string        `env:"DB_NAME"`
	DBSSLMode     string        `env:"DB_SSLMODE"`
	DBConnTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	RunMigrations bool          `env:"RUN_MIGRATIONS" envDefault:"true"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	SessionStore  string `env:"SESSION_STORE" envDefault:"auto"`

	JWTSecret            string        `env:"JWT_SECRET"`
	JWTExpiry            time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	BcryptCost           int           `env:"BCRYPT_COST" envDefault:"10"`
	SessionInsertRetries int           `env:"SESSION_INSERT_RETRIES" envDefault:"3"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	AllowPasswordUpgrade bool          `env:"ALLOW_PASSWORD_UPGRADE" envDefault:"true"`
	CookieName           string        `env:"COOKIE_NAME" envDefault:"auth_token"`
	UserCacheTTL         time.Duration `env:"USER_CACHE_TTL" envDefault:"5m"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	SentryDSN string `env:"SENTRY_DSN"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	return Parse(env.Options{})
}

// Parse parses the configuration with opts. Tests pass opts.Environment.
func Parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.AppURL + "/auth/google/callback"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == EnvDevelopment
}

// Validate checks values that cannot be expressed with struct tags.
func (c *Config) Validate() error {
	var errs []error

	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.AppEnv))
	}
	switch c.SessionStore {
	case StoreGorm, StoreRedis, StoreAuto:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be gorm, redis or auto, got %q", c.SessionStore))
	}
	if c.SessionStore == StoreRedis && c.RedisHost == "" {
		errs = append(errs, errors.New("SESSION_STORE=redis requires REDIS_HOST"))
	}

	if c.JWTSecret == "" || c.JWTSecret == jwtmw.DevelopmentSecret {
		if c.IsDev() {
			slog.Warn("JWT_SECRET is not set, using the development secret")
		} else {
			errs = append(errs, errors.New("JWT_SECRET must be set outside development"))
		}
	}

	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.SessionInsertRetries < 1 {
		errs = append(errs, errors.New("SESSION_INSERT_RETRIES must be at least 1"))
	}
	if c.UserCacheTTL < 0 {
		errs = append(errs, errors.New("USER_CACHE_TTL must not be negative"))
	}
	if c.SessionSweepInterval < 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must not be negative"))
	}
	if c.LoginRateLimit < 0 || (c.LoginRateLimit > 0 && c.LoginRateWindow <= 0) {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT needs a positive LOGIN_RATE_WINDOW"))
	}
	return errors.Join(errs...)
}
