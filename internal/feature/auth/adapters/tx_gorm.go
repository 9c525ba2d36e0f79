package adapters

import (
	"context"

	"gorm.io/gorm"

	"auth_backend/internal/feature/auth/usecase"
)

type txKey struct{}

// gormTransactor runs usecase callbacks inside a gorm transaction.
type gormTransactor struct {
	db *gorm.DB
}

var _ usecase.Transactor = (*gormTransactor)(nil)

// NewTransactor creates a new instance of gormTransactor.
func NewTransactor(db *gorm.DB) *gormTransactor {
	return &gormTransactor{db: db}
}

// WithinTransaction begins a transaction, stores it in the context handed to fn, and commits
// when fn returns nil. A context that already carries a transaction joins it.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	return translateError(err)
}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
