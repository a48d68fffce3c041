package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// TaxService resolves the tax rates that apply to a tenant and manages rate rows
type TaxService struct {
	hooks
	rateRepo ledger.TaxRateRepository
}

// NewTaxService creates a new TaxService
func NewTaxService(rateRepo ledger.TaxRateRepository, logger *zap.Logger) *TaxService {
	return &TaxService{
		hooks:    newHooks(logger),
		rateRepo: rateRepo,
	}
}

// Resolve returns, per tax code, the rate that applies to the tenant in the jurisdiction on asOf.
// A nil or empty regionCode resolves only jurisdiction-wide rates; regional taxes need the region.
// The result is empty when nothing is in effect.
func (s *TaxService) Resolve(ctx context.Context, tenantID uuid.UUID, jurisdiction string, regionCode *string, asOf time.Time) ([]TaxRateResponse, error) {
	rates, err := s.resolve(ctx, tenantID, jurisdiction, regionCode, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]TaxRateResponse, len(rates))
	for i, r := range rates {
		out[i] = ToTaxRateResponse(r)
	}
	return out, nil
}

func (s *TaxService) resolve(ctx context.Context, tenantID uuid.UUID, jurisdiction string, regionCode *string, asOf time.Time) ([]*ledger.TaxRate, error) {
	jurisdiction = strings.ToUpper(strings.TrimSpace(jurisdiction))
	if jurisdiction == "" {
		return nil, shared.NewValidationError("INVALID_JURISDICTION", "Jurisdiction is required")
	}
	region := ""
	if regionCode != nil {
		region = strings.ToUpper(strings.TrimSpace(*regionCode))
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	candidates, err := s.rateRepo.FindCandidates(ctx, tenantID, jurisdiction, region, asOf)
	if err != nil {
		return nil, err
	}
	return ledger.SelectApplicable(tenantID, region, candidates, asOf), nil
}

// ComputeTax applies one rate to a base amount
func (s *TaxService) ComputeTax(baseCents int64, rate *ledger.TaxRate) (ledger.TaxComputation, error) {
	if rate == nil {
		return ledger.TaxComputation{}, shared.NewValidationError("INVALID_TAX_RATE", "Tax rate is required")
	}
	if baseCents < 0 {
		return ledger.TaxComputation{}, shared.NewValidationError("INVALID_AMOUNT", "Base amount cannot be negative")
	}
	return ledger.ComputeTax(baseCents, rate), nil
}

// ComputeTaxForJurisdiction resolves every rate in effect and sums the tax each produces on baseCents
func (s *TaxService) ComputeTaxForJurisdiction(ctx context.Context, tenantID uuid.UUID, jurisdiction string, regionCode *string, asOf time.Time, baseCents int64) (*TaxQuoteResponse, error) {
	if baseCents < 0 {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Base amount cannot be negative")
	}
	rates, err := s.resolve(ctx, tenantID, jurisdiction, regionCode, asOf)
	if err != nil {
		return nil, err
	}

	quote := &TaxQuoteResponse{
		BaseCents: baseCents,
		Taxes:     make([]ledger.TaxComputation, 0, len(rates)),
	}
	for _, r := range rates {
		c := ledger.ComputeTax(baseCents, r)
		quote.Taxes = append(quote.Taxes, c)
		quote.TotalTaxCents += c.TaxCents
	}
	return quote, nil
}

// CreateTaxRate creates a tenant override, or a system default when tenantID is nil
func (s *TaxService) CreateTaxRate(ctx context.Context, tenantID *uuid.UUID, req CreateTaxRateRequest) (*TaxRateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	components := make([]ledger.ComponentRate, len(req.ComponentRates))
	for i, c := range req.ComponentRates {
		components[i] = ledger.ComponentRate{Name: c.Name, RateBasisPoints: c.RateBasisPoints}
	}
	rate, err := ledger.NewTaxRate(tenantID, ledger.TaxRateFields{
		Jurisdiction:    req.Jurisdiction,
		RegionCode:      req.RegionCode,
		TaxName:         req.TaxName,
		TaxCode:         req.TaxCode,
		ReplacesTaxCode: req.ReplacesTaxCode,
		RateBasisPoints: req.RateBasisPoints,
		ComponentRates:  components,
		IsCompound:      req.IsCompound,
		IsRecoverable:   req.IsRecoverable,
		EffectiveFrom:   req.EffectiveFrom,
		EffectiveTo:     req.EffectiveTo,
	})
	if err != nil {
		return nil, err
	}

	if err := s.rateRepo.Create(ctx, rate); err != nil {
		return nil, err
	}

	s.logger.Info("Tax rate created",
		zap.String("tenant_id", ownerLabel(tenantID)),
		zap.String("tax_rate_id", rate.ID.String()),
		zap.String("tax_code", rate.TaxCode),
		zap.Int64("rate_basis_points", rate.RateBasisPoints))

	response := ToTaxRateResponse(rate)
	return &response, nil
}

// ListTaxRates lists the rates owned by tenantID, optionally with the system defaults
func (s *TaxService) ListTaxRates(ctx context.Context, tenantID *uuid.UUID, filter TaxRateListFilter) ([]TaxRateResponse, error) {
	if err := validateRequest(filter); err != nil {
		return nil, err
	}
	base := shared.DefaultFilter()
	base.OrderBy = "tax_code"
	if filter.Page > 0 {
		base.Page = filter.Page
	}
	if filter.PageSize > 0 {
		base.PageSize = filter.PageSize
	}

	rates, err := s.rateRepo.FindAll(ctx, tenantID, ledger.TaxRateFilter{
		Filter:         base,
		Jurisdiction:   strings.ToUpper(filter.Jurisdiction),
		RegionCode:     strings.ToUpper(filter.RegionCode),
		TaxCode:        strings.ToUpper(filter.TaxCode),
		IncludeDefault: filter.IncludeDefault,
		ActiveOn:       filter.ActiveOn,
	})
	if err != nil {
		return nil, err
	}
	out := make([]TaxRateResponse, len(rates))
	for i, r := range rates {
		out[i] = ToTaxRateResponse(r)
	}
	return out, nil
}

// ExpireTaxRate closes a rate's effective window. A tenant can only expire its own rates;
// system defaults are expired with a nil tenantID.
func (s *TaxService) ExpireTaxRate(ctx context.Context, tenantID *uuid.UUID, id uuid.UUID, req ExpireTaxRateRequest) (*TaxRateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rate, err := s.rateRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewNotFoundError("TAX_RATE_NOT_FOUND", fmt.Sprintf("Tax rate %s not found", id))
		}
		return nil, err
	}
	if req.Version != nil && *req.Version != rate.Version {
		return nil, shared.NewConcurrencyError("STALE_TAX_RATE", "The tax rate was modified by another request, reload and retry")
	}

	loaded := rate.Version
	if err := rate.Expire(req.EffectiveTo); err != nil {
		return nil, err
	}
	if err := s.rateRepo.SaveWithLock(ctx, rate, loaded); err != nil {
		return nil, err
	}

	s.logger.Info("Tax rate expired",
		zap.String("tenant_id", ownerLabel(tenantID)),
		zap.String("tax_rate_id", rate.ID.String()),
		zap.Time("effective_to", req.EffectiveTo))

	response := ToTaxRateResponse(rate)
	return &response, nil
}

func ownerLabel(tenantID *uuid.UUID) string {
	if tenantID == nil {
		return "system"
	}
	return tenantID.String()
}
