package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/propmgr/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerTransactionRepository implements LedgerTransactionRepository using GORM
type GormLedgerTransactionRepository struct {
	db *gorm.DB
}

// NewGormLedgerTransactionRepository creates a new GormLedgerTransactionRepository
func NewGormLedgerTransactionRepository(db *gorm.DB) *GormLedgerTransactionRepository {
	return &GormLedgerTransactionRepository{db: db}
}

// Create inserts the transaction and its lines
func (r *GormLedgerTransactionRepository) Create(ctx context.Context, tx *ledger.LedgerTransaction) error {
	model := models.LedgerTransactionModelFromDomain(tx)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if tx.ReversesTransactionID != nil && isUniqueViolation(err) {
			return shared.NewStateError("ALREADY_REVERSED", "The transaction has already been reversed")
		}
		return err
	}
	return nil
}

// FindByIDForTenant finds a transaction and its lines
func (r *GormLedgerTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.LedgerTransaction, error) {
	var model models.LedgerTransactionModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists transactions with their lines
func (r *GormLedgerTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LedgerTransactionFilter) ([]*ledger.LedgerTransaction, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerTransactionModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	sortField := ValidateSortField(filter.OrderBy, LedgerTransactionSortFields, "transaction_date")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir)).Order("created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var txModels []models.LedgerTransactionModel
	if err := query.Preload("Lines", orderedLines).Find(&txModels).Error; err != nil {
		return nil, err
	}
	transactions := make([]*ledger.LedgerTransaction, len(txModels))
	for i := range txModels {
		transactions[i] = txModels[i].ToDomain()
	}
	return transactions, nil
}

// CountForTenant counts transactions matching the filter
func (r *GormLedgerTransactionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.LedgerTransactionFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.LedgerTransactionModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsReversalOf reports whether some transaction already reverses id
func (r *GormLedgerTransactionRepository) ExistsReversalOf(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerTransactionModel{}).
		Where("tenant_id = ? AND reverses_transaction_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormLedgerTransactionRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.LedgerTransactionFilter) *gorm.DB {
	if filter.AccountID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.LedgerTransactionLineModel{}).
			Select("transaction_id").
			Where("account_id = ?", *filter.AccountID))
	}
	if filter.FromDate != nil {
		query = query.Where("transaction_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("transaction_date <= ?", *filter.ToDate)
	}
	return query
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_number ASC")
}

// Ensure GormLedgerTransactionRepository implements LedgerTransactionRepository
var _ ledger.LedgerTransactionRepository = (*GormLedgerTransactionRepository)(nil)
