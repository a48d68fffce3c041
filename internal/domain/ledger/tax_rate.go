package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// basisPointsPerUnit is the number of basis points in 100%
const basisPointsPerUnit = 10000

// ComponentRate is one named sub-rate of a tax, such as the federal or provincial part
type ComponentRate struct {
	Name            string `json:"name"`
	RateBasisPoints int64  `json:"rate_basis_points"`
}

// ComponentRates is an ordered list of sub-rates stored as JSON
type ComponentRates []ComponentRate

// Value implements driver.Valuer for JSONB storage
func (c ComponentRates) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSONB retrieval
func (c *ComponentRates) Scan(value any) error {
	if value == nil {
		*c = ComponentRates{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ComponentRates", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*c = ComponentRates{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// TaxRateFields carries the attributes of a new tax rate
type TaxRateFields struct {
	Jurisdiction    string
	RegionCode      string
	TaxName         string
	TaxCode         string
	ReplacesTaxCode string
	RateBasisPoints int64
	ComponentRates  []ComponentRate
	IsCompound      bool
	IsRecoverable   bool
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
}

// TaxRate is a dated tax rate for a jurisdiction.
// A nil TenantID marks a system default that applies to every tenant without its own rate
// for the same tax code. Effective dates form the half-open window [EffectiveFrom, EffectiveTo).
type TaxRate struct {
	shared.BaseAggregateRoot
	TenantID        *uuid.UUID
	Jurisdiction    string
	RegionCode      string
	TaxName         string
	TaxCode         string
	ReplacesTaxCode string // a harmonized rate supersedes this code in its region
	RateBasisPoints int64
	ComponentRates  ComponentRates
	IsCompound      bool
	IsRecoverable   bool
	IsActive        bool
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
}

// NewTaxRate creates a tax rate. Pass a nil tenantID for a system default.
func NewTaxRate(tenantID *uuid.UUID, fields TaxRateFields) (*TaxRate, error) {
	rate := &TaxRate{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Jurisdiction:      strings.ToUpper(strings.TrimSpace(fields.Jurisdiction)),
		RegionCode:        strings.ToUpper(strings.TrimSpace(fields.RegionCode)),
		TaxName:           strings.TrimSpace(fields.TaxName),
		TaxCode:           strings.ToUpper(strings.TrimSpace(fields.TaxCode)),
		ReplacesTaxCode:   strings.ToUpper(strings.TrimSpace(fields.ReplacesTaxCode)),
		RateBasisPoints:   fields.RateBasisPoints,
		ComponentRates:    append(ComponentRates{}, fields.ComponentRates...),
		IsCompound:        fields.IsCompound,
		IsRecoverable:     fields.IsRecoverable,
		IsActive:          true,
		EffectiveFrom:     fields.EffectiveFrom,
		EffectiveTo:       fields.EffectiveTo,
	}
	if tenantID != nil {
		id := *tenantID
		rate.TenantID = &id
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	return rate, nil
}

// Validate checks the rate's invariants
func (r *TaxRate) Validate() error {
	if r.Jurisdiction == "" {
		return shared.NewValidationError("INVALID_JURISDICTION", "Jurisdiction is required")
	}
	if r.TaxCode == "" {
		return shared.NewValidationError("INVALID_TAX_CODE", "Tax code is required")
	}
	if r.TaxName == "" {
		return shared.NewValidationError("INVALID_TAX_NAME", "Tax name is required")
	}
	if r.ReplacesTaxCode == r.TaxCode {
		return shared.NewValidationError("INVALID_REPLACES_TAX_CODE", "A tax rate cannot replace its own tax code")
	}
	if r.RateBasisPoints < 0 {
		return shared.NewValidationError("INVALID_RATE", "Rate cannot be negative")
	}
	if len(r.ComponentRates) > 0 {
		var sum int64
		for i, c := range r.ComponentRates {
			if strings.TrimSpace(c.Name) == "" {
				return shared.NewValidationError("INVALID_COMPONENT", fmt.Sprintf("Component %d has no name", i+1))
			}
			if c.RateBasisPoints < 0 {
				return shared.NewValidationError("INVALID_COMPONENT", fmt.Sprintf("Component %s has a negative rate", c.Name))
			}
			sum += c.RateBasisPoints
		}
		if sum != r.RateBasisPoints {
			return shared.NewValidationError("COMPONENT_SUM_MISMATCH",
				fmt.Sprintf("Components sum to %d basis points but the rate is %d", sum, r.RateBasisPoints))
		}
	}
	if r.EffectiveFrom.IsZero() {
		return shared.NewValidationError("INVALID_EFFECTIVE_DATE", "Effective-from date is required")
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(r.EffectiveFrom) {
		return shared.NewValidationError("INVALID_EFFECTIVE_DATE", "Effective-to must be after effective-from")
	}
	return nil
}

// IsSystemDefault reports whether the rate has no owning tenant
func (r *TaxRate) IsSystemDefault() bool {
	return r.TenantID == nil
}

// IsEffectiveOn reports whether asOf falls inside [EffectiveFrom, EffectiveTo)
func (r *TaxRate) IsEffectiveOn(asOf time.Time) bool {
	if asOf.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || asOf.Before(*r.EffectiveTo)
}

// Components returns the sub-rates to apply, in declared order.
// A rate without explicit components is a single component of the whole rate.
func (r *TaxRate) Components() []ComponentRate {
	if len(r.ComponentRates) == 0 {
		return []ComponentRate{{Name: r.TaxName, RateBasisPoints: r.RateBasisPoints}}
	}
	return r.ComponentRates
}

// Expire closes the effective window at the given date
func (r *TaxRate) Expire(at time.Time) error {
	if r.EffectiveTo != nil && !at.Before(*r.EffectiveTo) {
		return shared.NewStateError("ALREADY_EXPIRED",
			fmt.Sprintf("Tax rate %s already ends on %s", r.TaxCode, r.EffectiveTo.Format(time.DateOnly)))
	}
	if !at.After(r.EffectiveFrom) {
		return shared.NewValidationError("INVALID_EFFECTIVE_DATE", "Expiry must be after effective-from")
	}
	r.EffectiveTo = &at
	r.IncrementVersion()
	return nil
}

// SelectApplicable picks, per tax code, the rate that applies to tenantID in regionCode on asOf.
// Rows with an empty region apply across the whole jurisdiction; rows for any other region
// are dropped, so an empty regionCode resolves jurisdiction-wide rates only.
// Precedence for one tax code: a tenant's own rate beats a system default (defaults are
// discarded, never merged), then a regional row beats a jurisdiction-wide one, then the
// latest EffectiveFrom wins and ties go to the lowest id. A selected rate with
// ReplacesTaxCode removes that code from the result, so a province's HST stands in for the
// federal GST. The result is ordered by tax code.
func SelectApplicable(tenantID uuid.UUID, regionCode string, candidates []*TaxRate, asOf time.Time) []*TaxRate {
	regionCode = strings.ToUpper(strings.TrimSpace(regionCode))
	chosen := make(map[string]*TaxRate)
	for _, r := range candidates {
		if !r.IsActive || !r.IsEffectiveOn(asOf) {
			continue
		}
		if r.TenantID != nil && *r.TenantID != tenantID {
			continue
		}
		if r.RegionCode != "" && r.RegionCode != regionCode {
			continue
		}
		if cur, ok := chosen[r.TaxCode]; !ok || outranks(r, cur) {
			chosen[r.TaxCode] = r
		}
	}

	for _, r := range chosen {
		if r.ReplacesTaxCode != "" {
			delete(chosen, r.ReplacesTaxCode)
		}
	}

	out := make([]*TaxRate, 0, len(chosen))
	for _, r := range chosen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaxCode < out[j].TaxCode })
	return out
}

func outranks(a, b *TaxRate) bool {
	if a.IsSystemDefault() != b.IsSystemDefault() {
		return !a.IsSystemDefault()
	}
	if (a.RegionCode == "") != (b.RegionCode == "") {
		return a.RegionCode != ""
	}
	if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
		return a.EffectiveFrom.After(b.EffectiveFrom)
	}
	return a.ID.String() < b.ID.String()
}

// ComponentTax is the tax produced by one component
type ComponentTax struct {
	Name            string `json:"name"`
	RateBasisPoints int64  `json:"rate_basis_points"`
	TaxableCents    int64  `json:"taxable_cents"`
	TaxCents        int64  `json:"tax_cents"`
}

// TaxComputation is the result of applying one rate to a base amount
type TaxComputation struct {
	TaxCode    string         `json:"tax_code"`
	BaseCents  int64          `json:"base_cents"`
	TaxCents   int64          `json:"tax_cents"`
	IsCompound bool           `json:"is_compound"`
	Components []ComponentTax `json:"components"`
}

// ComputeTax applies rate to baseCents. Each component is rounded on its own, half away
// from zero. A compound rate applies each component to the base plus the tax already
// accumulated, in declared order.
func ComputeTax(baseCents int64, rate *TaxRate) TaxComputation {
	result := TaxComputation{
		TaxCode:    rate.TaxCode,
		BaseCents:  baseCents,
		IsCompound: rate.IsCompound,
	}
	for _, c := range rate.Components() {
		taxable := baseCents
		if rate.IsCompound {
			taxable += result.TaxCents
		}
		tax := applyBasisPoints(taxable, c.RateBasisPoints)
		result.Components = append(result.Components, ComponentTax{
			Name:            c.Name,
			RateBasisPoints: c.RateBasisPoints,
			TaxableCents:    taxable,
			TaxCents:        tax,
		})
		result.TaxCents += tax
	}
	return result
}

func applyBasisPoints(cents, bp int64) int64 {
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromInt(bp)).
		Div(decimal.NewFromInt(basisPointsPerUnit)).
		Round(0).
		IntPart()
}
