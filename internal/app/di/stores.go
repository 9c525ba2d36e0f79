package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"auth_backend/internal/config"
	"auth_backend/internal/platform/db"
	platformredis "auth_backend/internal/platform/redis"
)

// DBConfig maps the application configuration onto the database settings.
func DBConfig(cfg *config.Config) db.Config {
	return db.Config{
		Driver:         cfg.DBDriver,
		DSN:            cfg.DBDSN,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		Name:           cfg.DBName,
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		SSLMode:        cfg.DBSSLMode,
		ConnectTimeout: cfg.DBConnTimeout,
		RunMigrations:  cfg.RunMigrations,
	}
}

// OpenStores connects the relational store and, when configured, Redis.
// Redis is optional unless SESSION_STORE=redis; the returned client is then nil.
func OpenStores(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	gdb, err := db.Open(DBConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.RedisHost == "" || cfg.SessionStore == config.StoreGorm {
		return gdb, nil, nil
	}
	rdb, err := platformredis.NewRedisClient(ctx, platformredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		if cfg.SessionStore == config.StoreRedis {
			closeDB(gdb)
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		slog.Warn("Redis unavailable, using the relational session store", "error", err)
		return gdb, nil, nil
	}
	return gdb, rdb, nil
}

// CloseStores releases the connections opened by OpenStores.
func CloseStores(gdb *gorm.DB, rdb *redis.Client) {
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}
	closeDB(gdb)
}

func closeDB(gdb *gorm.DB) {
	if gdb == nil {
		return
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
