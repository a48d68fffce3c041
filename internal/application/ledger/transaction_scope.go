package ledger

import (
	"context"

	"github.com/propmgr/ledger/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// Every repository call made inside fn belongs to one database transaction that is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to the current transaction
type TransactionalRepositories interface {
	// AccountRepo returns the GL account repository scoped to the current transaction
	AccountRepo() ledger.GLAccountRepository
	// TransactionRepo returns the journal repository scoped to the current transaction
	TransactionRepo() ledger.LedgerTransactionRepository
}

// NoOpTransactionScope runs fn directly against the given repositories without a transaction.
// Useful for tests.
type NoOpTransactionScope struct {
	accountRepo     ledger.GLAccountRepository
	transactionRepo ledger.LedgerTransactionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(accountRepo ledger.GLAccountRepository, transactionRepo ledger.LedgerTransactionRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// AccountRepo returns the account repository
func (s *NoOpTransactionScope) AccountRepo() ledger.GLAccountRepository {
	return s.accountRepo
}

// TransactionRepo returns the journal repository
func (s *NoOpTransactionScope) TransactionRepo() ledger.LedgerTransactionRepository {
	return s.transactionRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
