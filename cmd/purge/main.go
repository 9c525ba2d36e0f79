// Command purge deletes expired sessions once and exits. It is meant for cron when the
// server runs with SESSION_SWEEP_INTERVAL=0.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"auth_backend/internal/app/di"
	"auth_backend/internal/config"
	"auth_backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	flush := logger.Init(cfg.IsDev(), cfg.SentryDSN)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	code := purge(ctx, cfg)
	cancel()
	flush()
	os.Exit(code)
}

func purge(ctx context.Context, cfg *config.Config) int {
	gdb, rdb, err := di.OpenStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		return 1
	}
	defer di.CloseStores(gdb, rdb)

	auth, err := di.NewAuth(cfg, gdb, rdb)
	if err != nil {
		slog.Error("failed to wire auth", "error", err)
		return 1
	}

	n, err := auth.Sessions.PurgeExpired(ctx)
	if err != nil {
		slog.Error("purge failed", "error", err)
		return 1
	}
	slog.Info("purge ok", "deleted", n)
	return 0
}
