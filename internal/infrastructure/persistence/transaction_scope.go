package persistence

import (
	"context"

	appledger "github.com/propmgr/ledger/internal/application/ledger"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// The function passed to Execute commits when it returns nil and rolls back otherwise.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides the ledger repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// AccountRepo returns the GL account repository scoped to the current transaction
func (r *gormTransactionalRepositories) AccountRepo() ledger.GLAccountRepository {
	return NewGormGLAccountRepository(r.tx)
}

// TransactionRepo returns the journal repository scoped to the current transaction
func (r *gormTransactionalRepositories) TransactionRepo() ledger.LedgerTransactionRepository {
	return NewGormLedgerTransactionRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
