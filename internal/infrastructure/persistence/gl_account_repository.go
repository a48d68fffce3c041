package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/propmgr/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGLAccountRepository implements GLAccountRepository using GORM
type GormGLAccountRepository struct {
	db *gorm.DB
}

// NewGormGLAccountRepository creates a new GormGLAccountRepository
func NewGormGLAccountRepository(db *gorm.DB) *GormGLAccountRepository {
	return &GormGLAccountRepository{db: db}
}

// FindByIDForTenant finds an account by ID within a tenant
func (r *GormGLAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.GLAccount, error) {
	var model models.GLAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForTenant finds multiple accounts by their IDs within a tenant
func (r *GormGLAccountRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*ledger.GLAccount, error) {
	if len(ids) == 0 {
		return []*ledger.GLAccount{}, nil
	}

	var accountModels []models.GLAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return toGLAccounts(accountModels), nil
}

// FindByAccountNumber finds an account by its number within a tenant
func (r *GormGLAccountRepository) FindByAccountNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ledger.GLAccount, error) {
	var model models.GLAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_number = ?", tenantID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds accounts matching the filter
func (r *GormGLAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.GLAccountFilter) ([]*ledger.GLAccount, error) {
	var accountModels []models.GLAccountModel
	query := r.db.WithContext(ctx).Model(&models.GLAccountModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return toGLAccounts(accountModels), nil
}

// CountForTenant counts accounts matching the filter
func (r *GormGLAccountRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.GLAccountFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.GLAccountModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Snapshot loads the whole chart of a tenant
func (r *GormGLAccountRepository) Snapshot(ctx context.Context, tenantID uuid.UUID) ([]*ledger.GLAccount, error) {
	var accountModels []models.GLAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("account_number ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return toGLAccounts(accountModels), nil
}

// SnapshotForUpdate loads the whole chart with SELECT ... FOR UPDATE.
// Must run inside a transaction to hold the locks.
func (r *GormGLAccountRepository) SnapshotForUpdate(ctx context.Context, tenantID uuid.UUID) ([]*ledger.GLAccount, error) {
	var accountModels []models.GLAccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return toGLAccounts(accountModels), nil
}

// ExistsForTenant reports whether the tenant has any account
func (r *GormGLAccountRepository) ExistsForTenant(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.GLAccountModel{}).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// ExistsByAccountNumber checks if an account number is taken within the tenant
func (r *GormGLAccountRepository) ExistsByAccountNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.GLAccountModel{}).
		Where("tenant_id = ? AND account_number = ?", tenantID, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts new accounts in one statement
func (r *GormGLAccountRepository) Create(ctx context.Context, accounts ...*ledger.GLAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	accountModels := make([]*models.GLAccountModel, len(accounts))
	for i, a := range accounts {
		accountModels[i] = models.GLAccountModelFromDomain(a)
	}

	if err := r.db.WithContext(ctx).Create(accountModels).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewValidationError("DUPLICATE_ACCOUNT_NUMBER", "An account with this number already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock writes the mutable non-balance columns with optimistic locking
func (r *GormGLAccountRepository) SaveWithLock(ctx context.Context, account *ledger.GLAccount, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.GLAccountModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", account.TenantID, account.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":               account.Name,
			"description":        account.Description,
			"account_subtype":    account.AccountSubtype,
			"parent_account_id":  account.ParentAccountID,
			"is_header_account":  account.IsHeaderAccount,
			"is_bank_account":    account.IsBankAccount,
			"is_control_account": account.IsControlAccount,
			"is_active":          account.IsActive,
			"version":            account.Version,
			"updated_at":         account.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyError("STALE_ACCOUNT",
			fmt.Sprintf("Account %s was modified by another transaction", account.AccountNumber))
	}
	return nil
}

// DeactivateWithLock marks the account inactive. A posting account is only deactivated while
// its stored balance is zero, so a posting that slipped in after the read is detected.
func (r *GormGLAccountRepository) DeactivateWithLock(ctx context.Context, account *ledger.GLAccount, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.GLAccountModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", account.TenantID, account.ID, expectedVersion).
		Where("(is_header_account = ? OR current_balance_cents = 0)", true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"version":    account.Version,
			"updated_at": account.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyError("STALE_ACCOUNT",
			fmt.Sprintf("Account %s was modified by another transaction", account.AccountNumber))
	}
	return nil
}

// ApplyDelta adds to the balance and YTD counters with a relative UPDATE.
// Only an active posting account matches; the version is bumped for optimistic readers.
func (r *GormGLAccountRepository) ApplyDelta(ctx context.Context, tenantID, accountID uuid.UUID, balanceDelta, debitCents, creditCents int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.GLAccountModel{}).
		Where("tenant_id = ? AND id = ? AND is_active = ? AND is_header_account = ?", tenantID, accountID, true, false).
		Updates(map[string]interface{}{
			"current_balance_cents": gorm.Expr("current_balance_cents + ?", balanceDelta),
			"ytd_debit_cents":       gorm.Expr("ytd_debit_cents + ?", debitCents),
			"ytd_credit_cents":      gorm.Expr("ytd_credit_cents + ?", creditCents),
			"version":               gorm.Expr("version + 1"),
			"updated_at":            time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyError("ACCOUNT_NOT_POSTABLE",
			fmt.Sprintf("Account %s is no longer an active posting account", accountID))
	}
	return nil
}

// applyFilter applies filter options, ordering and pagination to the query
func (r *GormGLAccountRepository) applyFilter(query *gorm.DB, filter ledger.GLAccountFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	sortField := ValidateSortField(filter.OrderBy, GLAccountSortFields, "account_number")
	orderDir := "ASC"
	if strings.EqualFold(filter.OrderDir, "desc") {
		orderDir = "DESC"
	}
	query = query.Order(sortField + " " + orderDir)
	if sortField != "account_number" {
		query = query.Order("account_number ASC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormGLAccountRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.GLAccountFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("(account_number LIKE ? OR LOWER(name) LIKE ?)",
			search+"%", "%"+strings.ToLower(search)+"%")
	}
	if filter.AccountType != nil {
		query = query.Where("account_type = ?", *filter.AccountType)
	}
	if filter.AccountSubtype != nil {
		query = query.Where("account_subtype = ?", *filter.AccountSubtype)
	}
	if filter.ParentAccountID != nil {
		query = query.Where("parent_account_id = ?", *filter.ParentAccountID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsHeader != nil {
		query = query.Where("is_header_account = ?", *filter.IsHeader)
	}
	if filter.IsBank != nil {
		query = query.Where("is_bank_account = ?", *filter.IsBank)
	}
	if filter.IsControl != nil {
		query = query.Where("is_control_account = ?", *filter.IsControl)
	}
	return query
}

func toGLAccounts(accountModels []models.GLAccountModel) []*ledger.GLAccount {
	accounts := make([]*ledger.GLAccount, len(accountModels))
	for i := range accountModels {
		accounts[i] = accountModels[i].ToDomain()
	}
	return accounts
}

// Ensure GormGLAccountRepository implements GLAccountRepository
var _ ledger.GLAccountRepository = (*GormGLAccountRepository)(nil)
