package repository

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// TransactionManager runs a unit of work inside a single database
// transaction. The transaction travels through the context, so repository
// methods called within the callback join it transparently.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &gormTxManager{db: db}
}

// RunInTx opens a transaction, injects it into the context and commits when
// fn returns nil. Any error rolls the whole unit back.
func (m *gormTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// GetDB returns the transaction carried by ctx, or rootDB outside of one.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
