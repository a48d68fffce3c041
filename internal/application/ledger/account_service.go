package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AccountService manages the lifecycle of GL accounts in a tenant's chart
type AccountService struct {
	hooks
	accountRepo ledger.GLAccountRepository
	txScope     TransactionScope
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo ledger.GLAccountRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		hooks:       newHooks(logger),
		accountRepo: accountRepo,
		txScope:     txScope,
	}
}

// CreateAccount creates a GL account with a zero balance
func (s *AccountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	accountType, err := ledger.ParseAccountType(req.AccountType)
	if err != nil {
		return nil, err
	}
	fields := ledger.AccountFields{
		AccountNumber:    req.AccountNumber,
		Name:             req.Name,
		Description:      req.Description,
		AccountType:      accountType,
		AccountSubtype:   req.AccountSubtype,
		IsHeaderAccount:  req.IsHeaderAccount,
		IsBankAccount:    req.IsBankAccount,
		IsControlAccount: req.IsControlAccount,
	}
	if req.NormalBalance != nil {
		side, err := ledger.ParseSide(*req.NormalBalance)
		if err != nil {
			return nil, err
		}
		fields.NormalBalance = &side
	}

	account, err := ledger.NewGLAccount(tenantID, fields)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		account.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts := repos.AccountRepo()
		exists, err := accounts.ExistsByAccountNumber(ctx, tenantID, account.AccountNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewValidationError("DUPLICATE_ACCOUNT_NUMBER",
				fmt.Sprintf("Account number %s already exists", account.AccountNumber))
		}

		if req.ParentAccountID != nil {
			snapshot, err := accounts.SnapshotForUpdate(ctx, tenantID)
			if err != nil {
				return err
			}
			parent := findAccount(snapshot, *req.ParentAccountID)
			if parent == nil {
				return shared.NewHierarchyError("PARENT_NOT_FOUND", "Parent account does not exist in this chart")
			}
			if !parent.IsActive {
				return shared.NewStateError("PARENT_INACTIVE", fmt.Sprintf("Parent account %s is inactive", parent.AccountNumber))
			}
			if err := ledger.ValidateParent(snapshot, account, parent); err != nil {
				return err
			}
		}
		return accounts.Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GL account created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", account.ID.String()),
		zap.String("account_number", account.AccountNumber))
	s.metrics.RecordAccountsCreated(ctx, tenantID, 1)
	s.publishDomainEvents(ctx, account)

	response := ToAccountResponse(account)
	return &response, nil
}

// UpdateAccount applies a partial update.
// Identity, ownership and balance fields cannot be changed; parent changes follow the
// same checks as ReparentAccount.
func (s *AccountService) UpdateAccount(ctx context.Context, tenantID, id uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var account *ledger.GLAccount
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts := repos.AccountRepo()
		snapshot, err := accounts.SnapshotForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		account = findAccount(snapshot, id)
		if account == nil {
			return accountNotFound(id)
		}
		loaded := account.Version
		if err := rejectImmutableChanges(account, req); err != nil {
			return err
		}
		if req.Version != nil && *req.Version != account.Version {
			return shared.NewConcurrencyError("STALE_ACCOUNT", "The account was modified by another request, reload and retry")
		}

		if req.Name != nil || req.Description != nil || req.AccountSubtype != nil {
			name, description, subtype := account.Name, account.Description, account.AccountSubtype
			if req.Name != nil {
				name = *req.Name
			}
			if req.Description != nil {
				description = *req.Description
			}
			if req.AccountSubtype != nil {
				subtype = *req.AccountSubtype
			}
			if err := account.UpdateDetails(name, description, subtype); err != nil {
				return err
			}
		}
		if req.IsBankAccount != nil || req.IsControlAccount != nil {
			isBank, isControl := account.IsBankAccount, account.IsControlAccount
			if req.IsBankAccount != nil {
				isBank = *req.IsBankAccount
			}
			if req.IsControlAccount != nil {
				isControl = *req.IsControlAccount
			}
			account.SetClassification(isBank, isControl)
		}
		if req.IsHeaderAccount != nil && *req.IsHeaderAccount != account.IsHeaderAccount {
			if !*req.IsHeaderAccount && ledger.HasChildren(snapshot, account.ID) {
				return shared.NewStateError("HAS_CHILDREN",
					fmt.Sprintf("Account %s has child accounts and must remain a header", account.AccountNumber))
			}
			if err := account.SetHeader(*req.IsHeaderAccount); err != nil {
				return err
			}
		}
		if req.MakeRoot || req.ParentAccountID != nil {
			newParent := req.ParentAccountID
			if req.MakeRoot {
				newParent = nil
			}
			if err := moveAccount(snapshot, account, newParent); err != nil {
				return err
			}
		}

		if len(account.GetDomainEvents()) == 0 {
			return nil
		}
		return accounts.SaveWithLock(ctx, account, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GL account updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", account.ID.String()))
	s.publishDomainEvents(ctx, account)

	response := ToAccountResponse(account)
	return &response, nil
}

// DeactivateAccount marks an account inactive.
// The account must have a zero balance and no active descendants; the balance condition
// is checked again by the write itself.
func (s *AccountService) DeactivateAccount(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	var account *ledger.GLAccount
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts := repos.AccountRepo()
		snapshot, err := accounts.SnapshotForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		account = findAccount(snapshot, id)
		if account == nil {
			return accountNotFound(id)
		}
		loaded := account.Version
		if err := account.Deactivate(ledger.CountActiveDescendants(snapshot, id)); err != nil {
			return err
		}
		return accounts.DeactivateWithLock(ctx, account, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GL account deactivated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", id.String()))
	s.publishDomainEvents(ctx, account)

	response := ToAccountResponse(account)
	return &response, nil
}

// ReactivateAccount marks an inactive account active again. Its parent must be active.
func (s *AccountService) ReactivateAccount(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	var account *ledger.GLAccount
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts := repos.AccountRepo()
		snapshot, err := accounts.SnapshotForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		account = findAccount(snapshot, id)
		if account == nil {
			return accountNotFound(id)
		}
		if account.ParentAccountID != nil {
			if parent := findAccount(snapshot, *account.ParentAccountID); parent != nil && !parent.IsActive {
				return shared.NewStateError("PARENT_INACTIVE",
					fmt.Sprintf("Parent account %s is inactive", parent.AccountNumber))
			}
		}
		loaded := account.Version
		if err := account.Reactivate(); err != nil {
			return err
		}
		return accounts.SaveWithLock(ctx, account, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GL account reactivated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", id.String()))
	s.publishDomainEvents(ctx, account)

	response := ToAccountResponse(account)
	return &response, nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// GetAccountByNumber retrieves an account by its account number
func (s *AccountService) GetAccountByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByAccountNumber(ctx, tenantID, number)
	if err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// ListAccounts lists accounts matching the filter
func (s *AccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) (*shared.Paginated[AccountResponse], error) {
	if err := validateRequest(filter); err != nil {
		return nil, err
	}
	domainFilter := filter.toDomain()

	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.accountRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToAccountResponses(accounts), total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// CountAccounts counts accounts matching the filter
func (s *AccountService) CountAccounts(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) (int64, error) {
	if err := validateRequest(filter); err != nil {
		return 0, err
	}
	return s.accountRepo.CountForTenant(ctx, tenantID, filter.toDomain())
}

// HasChartOfAccounts reports whether the tenant has any account
func (s *AccountService) HasChartOfAccounts(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return s.accountRepo.ExistsForTenant(ctx, tenantID)
}

// GetAccountBalance returns the balance of an account in its normal direction.
// A posting account reports its stored balance; a header account is always computed
// from its posting descendants.
func (s *AccountService) GetAccountBalance(ctx context.Context, tenantID, id uuid.UUID) (*AccountBalanceResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := &AccountBalanceResponse{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		NormalBalance: account.NormalBalance.String(),
		BalanceCents:  account.CurrentBalanceCents,
	}
	if account.IsPostingAccount() {
		return response, nil
	}

	snapshot, err := s.accountRepo.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	forest, err := ledger.BuildTree(tenantID, snapshot)
	if err != nil {
		return nil, err
	}
	node := ledger.FindNode(forest, id)
	if node == nil {
		return nil, accountNotFound(id)
	}
	response.BalanceCents = ledger.ComputeHeaderBalance(node)
	response.Computed = true
	return response, nil
}

func rejectImmutableChanges(a *ledger.GLAccount, req UpdateAccountRequest) error {
	immutable := func(field string) error {
		return shared.NewValidationError("IMMUTABLE_FIELD", fmt.Sprintf("Field %s cannot be changed", field))
	}
	if req.AccountNumber != nil && *req.AccountNumber != a.AccountNumber {
		return immutable("account_number")
	}
	if req.AccountType != nil && *req.AccountType != a.AccountType.String() {
		return immutable("account_type")
	}
	if req.NormalBalance != nil && *req.NormalBalance != a.NormalBalance.String() {
		return immutable("normal_balance")
	}
	if req.TenantID != nil && *req.TenantID != a.TenantID {
		return immutable("tenant_id")
	}
	if req.CurrentBalanceCents != nil && *req.CurrentBalanceCents != a.CurrentBalanceCents {
		return immutable("current_balance_cents")
	}
	if req.YTDDebitCents != nil && *req.YTDDebitCents != a.YTDDebitCents {
		return immutable("ytd_debit_cents")
	}
	if req.YTDCreditCents != nil && *req.YTDCreditCents != a.YTDCreditCents {
		return immutable("ytd_credit_cents")
	}
	return nil
}

func findAccount(accounts []*ledger.GLAccount, id uuid.UUID) *ledger.GLAccount {
	for _, a := range accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func accountNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError("ACCOUNT_NOT_FOUND", fmt.Sprintf("Account %s not found", id))
}

// isNotFound reports whether err means the record is absent from the tenant's scope
func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
