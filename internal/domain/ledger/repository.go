package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
)

// GLAccountFilter defines filtering options for account queries.
// Search matches account number prefix or name.
type GLAccountFilter struct {
	shared.Filter
	AccountType     *AccountType
	AccountSubtype  *string
	ParentAccountID *uuid.UUID
	IsActive        *bool
	IsHeader        *bool
	IsBank          *bool
	IsControl       *bool
}

// GLAccountRepository defines the interface for GL account persistence.
// Every method is scoped to one tenant.
type GLAccountRepository interface {
	// FindByIDForTenant finds an account by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*GLAccount, error)

	// FindByIDsForTenant finds the given accounts; ids of other tenants are silently absent
	FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*GLAccount, error)

	// FindByAccountNumber finds an account by its number within a tenant
	FindByAccountNumber(ctx context.Context, tenantID uuid.UUID, number string) (*GLAccount, error)

	// FindAllForTenant finds accounts matching the filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter GLAccountFilter) ([]*GLAccount, error)

	// CountForTenant counts accounts matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter GLAccountFilter) (int64, error)

	// Snapshot loads the whole chart of a tenant in one query
	Snapshot(ctx context.Context, tenantID uuid.UUID) ([]*GLAccount, error)

	// SnapshotForUpdate loads the whole chart and row-locks it until the surrounding
	// transaction ends, serializing structural edits of one tenant. Rows are locked in id
	// order, the same order postings update them.
	SnapshotForUpdate(ctx context.Context, tenantID uuid.UUID) ([]*GLAccount, error)

	// ExistsForTenant reports whether the tenant has any account at all
	ExistsForTenant(ctx context.Context, tenantID uuid.UUID) (bool, error)

	// ExistsByAccountNumber checks if the account number is taken within the tenant
	ExistsByAccountNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)

	// Create inserts new accounts; a duplicate account number is a ValidationError
	Create(ctx context.Context, accounts ...*GLAccount) error

	// SaveWithLock writes descriptive, structural and status columns and the account's
	// version if the stored version still equals expectedVersion. Balances are never written.
	SaveWithLock(ctx context.Context, account *GLAccount, expectedVersion int) error

	// DeactivateWithLock marks the account inactive only if the stored version still equals
	// expectedVersion and, for a posting account, the stored balance is still zero
	DeactivateWithLock(ctx context.Context, account *GLAccount, expectedVersion int) error

	// ApplyDelta adds balanceDelta to the current balance and the raw amounts to the YTD
	// counters in one statement. It fails with a ConcurrencyConflict when the account is no
	// longer an active posting account.
	ApplyDelta(ctx context.Context, tenantID, accountID uuid.UUID, balanceDelta, debitCents, creditCents int64) error
}

// TaxRateFilter defines filtering options for tax rate queries
type TaxRateFilter struct {
	shared.Filter
	Jurisdiction   string
	RegionCode     string
	TaxCode        string
	IncludeDefault bool
	ActiveOn       *time.Time
}

// TaxRateRepository defines the interface for tax rate persistence
type TaxRateRepository interface {
	// FindByID finds a rate owned by tenantID, or a system default when tenantID is nil
	FindByID(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*TaxRate, error)

	// FindCandidates returns the tenant's rates and the system defaults for the jurisdiction
	// whose effective window contains asOf. regionCode narrows the search when not empty.
	FindCandidates(ctx context.Context, tenantID uuid.UUID, jurisdiction, regionCode string, asOf time.Time) ([]*TaxRate, error)

	// FindAll lists the rates of tenantID (nil lists system defaults only)
	FindAll(ctx context.Context, tenantID *uuid.UUID, filter TaxRateFilter) ([]*TaxRate, error)

	// Create inserts a new rate
	Create(ctx context.Context, rate *TaxRate) error

	// SaveWithLock saves if the stored version still equals expectedVersion
	SaveWithLock(ctx context.Context, rate *TaxRate, expectedVersion int) error
}

// LedgerTransactionFilter defines filtering options for journal queries
type LedgerTransactionFilter struct {
	shared.Filter
	AccountID *uuid.UUID
	FromDate  *time.Time
	ToDate    *time.Time
}

// LedgerTransactionRepository defines the interface for the journal of committed transactions
type LedgerTransactionRepository interface {
	// Create inserts a transaction with its lines
	Create(ctx context.Context, tx *LedgerTransaction) error

	// FindByIDForTenant finds a transaction and its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*LedgerTransaction, error)

	// FindAllForTenant lists transactions with their lines
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter LedgerTransactionFilter) ([]*LedgerTransaction, error)

	// CountForTenant counts transactions matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter LedgerTransactionFilter) (int64, error)

	// ExistsReversalOf reports whether some transaction already reverses id
	ExistsReversalOf(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}
