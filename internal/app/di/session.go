// Package di builds the application's object graph from the configuration.
package di

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"auth_backend/internal/config"
	authadapters "auth_backend/internal/feature/auth/adapters"
	"auth_backend/internal/feature/auth/usecase"
	"auth_backend/internal/platform/session"
)

// NewSessionRepository picks the session store for mode.
// auto uses Redis when a client is available and falls back to the relational store.
func NewSessionRepository(mode string, rdb *redis.Client, db *gorm.DB) (usecase.SessionRepository, error) {
	switch mode {
	case config.StoreRedis:
		if rdb == nil {
			return nil, errors.New("redis session store selected but redis is not connected")
		}
		slog.Info("session store selected", "store", "redis")
		return session.NewSessionRedis(rdb, session.DefaultPrefix), nil
	case config.StoreAuto, "":
		if rdb != nil {
			slog.Info("session store selected", "store", "redis")
			return session.NewSessionRedis(rdb, session.DefaultPrefix), nil
		}
		fallthrough
	case config.StoreGorm:
		slog.Info("session store selected", "store", "gorm")
		return authadapters.NewSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", mode)
	}
}
