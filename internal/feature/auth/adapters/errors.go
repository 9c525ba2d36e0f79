// Package adapters provides the gorm-backed credential store for the auth feature.
package adapters

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"auth_backend/internal/feature/auth/usecase"
)

// translateError maps driver and gorm errors onto the usecase sentinels.
// Errors it does not recognise are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", usecase.ErrDuplicateKey, err)
	case isUnavailable(err):
		return fmt.Errorf("%w: %w", usecase.ErrStoreUnavailable, err)
	}
	return err
}

// isUnavailable reports whether err means the store cannot serve requests right now,
// as opposed to rejecting this particular request.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		pgconn.Timeout(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			strings.HasPrefix(pgErr.Code, "28"), // invalid authorization
			strings.HasPrefix(pgErr.Code, "53"), // insufficient resources
			pgErr.Code == "57P01",               // admin shutdown
			pgErr.Code == "3D000",               // database does not exist
			pgErr.Code == "42P01":               // table missing: schema not migrated
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
