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
)

// GormTaxRateRepository implements TaxRateRepository using GORM
type GormTaxRateRepository struct {
	db *gorm.DB
}

// NewGormTaxRateRepository creates a new GormTaxRateRepository
func NewGormTaxRateRepository(db *gorm.DB) *GormTaxRateRepository {
	return &GormTaxRateRepository{db: db}
}

// FindByID finds a rate owned by tenantID, or a system default when tenantID is nil
func (r *GormTaxRateRepository) FindByID(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID) (*ledger.TaxRate, error) {
	var model models.TaxRateModel
	if err := ownedBy(r.db.WithContext(ctx), tenantID).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCandidates returns the tenant's rates and the system defaults in effect on asOf.
// Jurisdiction-wide rows (empty region) are always candidates; regional rows only for regionCode.
func (r *GormTaxRateRepository) FindCandidates(ctx context.Context, tenantID uuid.UUID, jurisdiction, regionCode string, asOf time.Time) ([]*ledger.TaxRate, error) {
	query := r.db.WithContext(ctx).
		Where("(tenant_id = ? OR tenant_id IS NULL)", tenantID).
		Where("jurisdiction = ? AND is_active = ?", jurisdiction, true).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)", asOf, asOf)
	if regionCode != "" {
		query = query.Where("region_code IN ?", []string{regionCode, ""})
	} else {
		query = query.Where("region_code = ?", "")
	}

	var rateModels []models.TaxRateModel
	if err := query.Order("tax_code ASC").Order("effective_from DESC").Find(&rateModels).Error; err != nil {
		return nil, err
	}
	return toTaxRates(rateModels), nil
}

// FindAll lists the rates of tenantID, plus system defaults when the filter asks for them
func (r *GormTaxRateRepository) FindAll(ctx context.Context, tenantID *uuid.UUID, filter ledger.TaxRateFilter) ([]*ledger.TaxRate, error) {
	query := r.db.WithContext(ctx).Model(&models.TaxRateModel{})
	if tenantID != nil && filter.IncludeDefault {
		query = query.Where("(tenant_id = ? OR tenant_id IS NULL)", *tenantID)
	} else {
		query = ownedBy(query, tenantID)
	}
	if filter.Jurisdiction != "" {
		query = query.Where("jurisdiction = ?", strings.ToUpper(filter.Jurisdiction))
	}
	if filter.RegionCode != "" {
		query = query.Where("region_code = ?", strings.ToUpper(filter.RegionCode))
	}
	if filter.TaxCode != "" {
		query = query.Where("tax_code = ?", strings.ToUpper(filter.TaxCode))
	}
	if filter.ActiveOn != nil {
		query = query.Where("is_active = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)",
			true, *filter.ActiveOn, *filter.ActiveOn)
	}

	sortField := ValidateSortField(filter.OrderBy, TaxRateSortFields, "tax_code")
	orderDir := "ASC"
	if strings.EqualFold(filter.OrderDir, "desc") {
		orderDir = "DESC"
	}
	query = query.Order(sortField + " " + orderDir).Order("effective_from DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rateModels []models.TaxRateModel
	if err := query.Find(&rateModels).Error; err != nil {
		return nil, err
	}
	return toTaxRates(rateModels), nil
}

// Create inserts a new rate
func (r *GormTaxRateRepository) Create(ctx context.Context, rate *ledger.TaxRate) error {
	return r.db.WithContext(ctx).Create(models.TaxRateModelFromDomain(rate)).Error
}

// SaveWithLock saves the rate with optimistic locking
func (r *GormTaxRateRepository) SaveWithLock(ctx context.Context, rate *ledger.TaxRate, expectedVersion int) error {
	model := models.TaxRateModelFromDomain(rate)
	result := ownedBy(r.db.WithContext(ctx).Model(&models.TaxRateModel{}), rate.TenantID).
		Where("id = ? AND version = ?", rate.ID, expectedVersion).
		Updates(map[string]interface{}{
			"tax_name":          model.TaxName,
			"rate_basis_points": model.RateBasisPoints,
			"component_rates":   model.ComponentRates,
			"is_compound":       model.IsCompound,
			"is_recoverable":    model.IsRecoverable,
			"is_active":         model.IsActive,
			"effective_from":    model.EffectiveFrom,
			"effective_to":      model.EffectiveTo,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyError("STALE_TAX_RATE",
			fmt.Sprintf("Tax rate %s was modified by another transaction", rate.TaxCode))
	}
	return nil
}

// ownedBy scopes the query to tenantID's rows, or to system defaults when tenantID is nil
func ownedBy(query *gorm.DB, tenantID *uuid.UUID) *gorm.DB {
	if tenantID == nil {
		return query.Where("tenant_id IS NULL")
	}
	return query.Where("tenant_id = ?", *tenantID)
}

func toTaxRates(rateModels []models.TaxRateModel) []*ledger.TaxRate {
	rates := make([]*ledger.TaxRate, len(rateModels))
	for i := range rateModels {
		rates[i] = rateModels[i].ToDomain()
	}
	return rates
}

// Ensure GormTaxRateRepository implements TaxRateRepository
var _ ledger.TaxRateRepository = (*GormTaxRateRepository)(nil)
