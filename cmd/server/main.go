package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth_backend/internal/app/di"
	"auth_backend/internal/app/router"
	"auth_backend/internal/config"
	"auth_backend/internal/logger"
	"auth_backend/internal/platform/http/handler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flush := logger.Init(cfg.IsDev(), cfg.SentryDSN)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, rdb, err := di.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer di.CloseStores(gdb, rdb)

	auth, err := di.NewAuth(cfg, gdb, rdb)
	if err != nil {
		return err
	}

	checks := map[string]handler.Check{}
	if sqlDB, err := gdb.DB(); err == nil {
		checks["db"] = sqlDB.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	r := router.NewRouter(router.Deps{
		Auth:       auth.Handler,
		Resolver:   auth.Usecase,
		Limiter:    auth.Limiter,
		CookieName: cfg.CookieName,
		Checks:     checks,
	})

	if cfg.SessionSweepInterval > 0 {
		go auth.Sessions.RunSweeper(ctx, cfg.SessionSweepInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.AppEnv)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
