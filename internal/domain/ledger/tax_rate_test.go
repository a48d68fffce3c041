package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestRate(t *testing.T, tenantID *uuid.UUID, code string, bp int64, from time.Time, to *time.Time) *TaxRate {
	t.Helper()
	r, err := NewTaxRate(tenantID, TaxRateFields{
		Jurisdiction:    "CA",
		RegionCode:      "ON",
		TaxName:         code,
		TaxCode:         code,
		RateBasisPoints: bp,
		EffectiveFrom:   from,
		EffectiveTo:     to,
	})
	require.NoError(t, err)
	return r
}

func TestNewTaxRate(t *testing.T) {
	t.Run("normalizes codes", func(t *testing.T) {
		r, err := NewTaxRate(nil, TaxRateFields{Jurisdiction: "ca", RegionCode: "on", TaxName: "HST", TaxCode: "hst", RateBasisPoints: 1300, EffectiveFrom: day(2020, 1, 1)})
		require.NoError(t, err)
		assert.Equal(t, "CA", r.Jurisdiction)
		assert.Equal(t, "ON", r.RegionCode)
		assert.Equal(t, "HST", r.TaxCode)
		assert.True(t, r.IsSystemDefault())
		assert.True(t, r.IsActive)
	})

	t.Run("components must sum to the rate", func(t *testing.T) {
		_, err := NewTaxRate(nil, TaxRateFields{
			Jurisdiction: "CA", TaxName: "HST", TaxCode: "HST", RateBasisPoints: 1300,
			ComponentRates: []ComponentRate{{Name: "GST", RateBasisPoints: 500}, {Name: "PST", RateBasisPoints: 700}},
			EffectiveFrom:  day(2020, 1, 1),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})

	t.Run("rejects an empty window", func(t *testing.T) {
		to := day(2020, 1, 1)
		_, err := NewTaxRate(nil, TaxRateFields{Jurisdiction: "CA", TaxName: "HST", TaxCode: "HST", RateBasisPoints: 1300, EffectiveFrom: day(2020, 1, 1), EffectiveTo: &to})
		assert.Error(t, err)
	})

	t.Run("rejects a negative rate", func(t *testing.T) {
		_, err := NewTaxRate(nil, TaxRateFields{Jurisdiction: "CA", TaxName: "HST", TaxCode: "HST", RateBasisPoints: -1, EffectiveFrom: day(2020, 1, 1)})
		assert.Error(t, err)
	})
}

func TestTaxRate_IsEffectiveOn(t *testing.T) {
	to := day(2021, 1, 1)
	r := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), &to)

	assert.False(t, r.IsEffectiveOn(day(2019, 12, 31)))
	assert.True(t, r.IsEffectiveOn(day(2020, 1, 1)))
	assert.True(t, r.IsEffectiveOn(day(2020, 12, 31)))
	assert.False(t, r.IsEffectiveOn(day(2021, 1, 1)), "effective_to is exclusive")

	open := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), nil)
	assert.True(t, open.IsEffectiveOn(day(2099, 1, 1)))
}

func TestTaxRate_Expire(t *testing.T) {
	r := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), nil)
	require.NoError(t, r.Expire(day(2022, 7, 1)))
	assert.Equal(t, day(2022, 7, 1), *r.EffectiveTo)

	assert.True(t, errors.Is(r.Expire(day(2023, 1, 1)), shared.ErrState))
	require.NoError(t, r.Expire(day(2022, 1, 1)), "an earlier expiry shortens the window")
	assert.Error(t, r.Expire(day(2019, 1, 1)))
}

func TestSelectApplicable(t *testing.T) {
	tenantID := uuid.New()
	asOf := day(2024, 6, 1)

	t.Run("tenant rate beats the default for the same code", func(t *testing.T) {
		def := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), nil)
		own := newTestRate(t, &tenantID, "HST", 1000, day(2023, 1, 1), nil)

		got := SelectApplicable(tenantID, "ON", []*TaxRate{def, own}, asOf)
		require.Len(t, got, 1)
		assert.Equal(t, own.ID, got[0].ID)

		// An older tenant rate still beats a newer default
		newer := newTestRate(t, nil, "HST", 1500, day(2024, 1, 1), nil)
		got = SelectApplicable(tenantID, "ON", []*TaxRate{newer, own, def}, asOf)
		require.Len(t, got, 1)
		assert.Equal(t, own.ID, got[0].ID)
	})

	t.Run("defaults fill codes the tenant does not override", func(t *testing.T) {
		gst := newTestRate(t, nil, "GST", 500, day(2020, 1, 1), nil)
		pst := newTestRate(t, nil, "PST", 700, day(2020, 1, 1), nil)
		ownPST := newTestRate(t, &tenantID, "PST", 800, day(2020, 1, 1), nil)

		got := SelectApplicable(tenantID, "ON", []*TaxRate{pst, ownPST, gst}, asOf)
		require.Len(t, got, 2)
		assert.Equal(t, "GST", got[0].TaxCode)
		assert.Equal(t, gst.ID, got[0].ID)
		assert.Equal(t, ownPST.ID, got[1].ID)
	})

	t.Run("returns nothing outside every window", func(t *testing.T) {
		to := day(2021, 1, 1)
		def := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), &to)
		own := newTestRate(t, &tenantID, "HST", 1300, day(2025, 1, 1), nil)
		assert.Empty(t, SelectApplicable(tenantID, "ON", []*TaxRate{def, own}, asOf))
	})

	t.Run("overlapping rows resolve to the latest start", func(t *testing.T) {
		older := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), nil)
		newer := newTestRate(t, nil, "HST", 1500, day(2024, 1, 1), nil)
		got := SelectApplicable(tenantID, "ON", []*TaxRate{newer, older}, asOf)
		require.Len(t, got, 1)
		assert.Equal(t, newer.ID, got[0].ID)
	})

	t.Run("ignores other tenants and inactive rows", func(t *testing.T) {
		other := uuid.New()
		foreign := newTestRate(t, &other, "HST", 1000, day(2020, 1, 1), nil)
		inactive := newTestRate(t, &tenantID, "HST", 1000, day(2020, 1, 1), nil)
		inactive.IsActive = false
		def := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), nil)

		got := SelectApplicable(tenantID, "ON", []*TaxRate{foreign, inactive, def}, asOf)
		require.Len(t, got, 1)
		assert.Equal(t, def.ID, got[0].ID)
	})
}

func TestSelectApplicable_Regions(t *testing.T) {
	tenantID := uuid.New()
	asOf := day(2026, 6, 1)
	rate := func(region, code, replaces string, bp int64) *TaxRate {
		r, err := NewTaxRate(nil, TaxRateFields{
			Jurisdiction:    "CA",
			RegionCode:      region,
			TaxName:         code,
			TaxCode:         code,
			ReplacesTaxCode: replaces,
			RateBasisPoints: bp,
			EffectiveFrom:   day(2020, 1, 1),
		})
		require.NoError(t, err)
		return r
	}
	gst := rate("", "GST", "", 500)
	bcPST := rate("BC", "PST", "", 700)
	onHST := rate("ON", "HST", "GST", 1300)
	nbHST := rate("NB", "HST", "GST", 1500)
	candidates := []*TaxRate{gst, bcPST, onHST, nbHST}

	codes := func(rates []*TaxRate) map[string]int64 {
		out := map[string]int64{}
		for _, r := range rates {
			out[r.TaxCode] = r.RateBasisPoints
		}
		return out
	}

	assert.Equal(t, map[string]int64{"GST": 500, "PST": 700}, codes(SelectApplicable(tenantID, "BC", candidates, asOf)))
	assert.Equal(t, map[string]int64{"HST": 1300}, codes(SelectApplicable(tenantID, "ON", candidates, asOf)))
	assert.Equal(t, map[string]int64{"HST": 1500}, codes(SelectApplicable(tenantID, "nb", candidates, asOf)))
	assert.Equal(t, map[string]int64{"GST": 500}, codes(SelectApplicable(tenantID, "", candidates, asOf)),
		"without a region only jurisdiction-wide rates apply")

	t.Run("regional row beats a jurisdiction-wide row for the same code", func(t *testing.T) {
		qcGST := rate("QC", "GST", "", 450)
		got := SelectApplicable(tenantID, "QC", []*TaxRate{gst, qcGST}, asOf)
		require.Len(t, got, 1)
		assert.Equal(t, qcGST.ID, got[0].ID)
	})

	t.Run("a tenant's jurisdiction-wide row still beats a regional default", func(t *testing.T) {
		own, err := NewTaxRate(&tenantID, TaxRateFields{
			Jurisdiction: "CA", TaxName: "HST", TaxCode: "HST", RateBasisPoints: 1000, EffectiveFrom: day(2020, 1, 1),
		})
		require.NoError(t, err)
		got := SelectApplicable(tenantID, "ON", []*TaxRate{gst, onHST, own}, asOf)
		require.Len(t, got, 2)
		assert.Equal(t, "GST", got[0].TaxCode, "the tenant's HST does not replace GST")
		assert.Equal(t, own.ID, got[1].ID)
	})

	t.Run("a rate cannot replace its own code", func(t *testing.T) {
		_, err := NewTaxRate(nil, TaxRateFields{
			Jurisdiction: "CA", RegionCode: "ON", TaxName: "HST", TaxCode: "HST", ReplacesTaxCode: "hst",
			RateBasisPoints: 1300, EffectiveFrom: day(2020, 1, 1),
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestComputeTax(t *testing.T) {
	split := func(compound bool) *TaxRate {
		r, err := NewTaxRate(nil, TaxRateFields{
			Jurisdiction: "CA", TaxName: "HST", TaxCode: "HST", RateBasisPoints: 1300, IsCompound: compound,
			ComponentRates: []ComponentRate{{Name: "A", RateBasisPoints: 650}, {Name: "B", RateBasisPoints: 650}},
			EffectiveFrom:  day(2020, 1, 1),
		})
		require.NoError(t, err)
		return r
	}
	single := newTestRate(t, nil, "HST", 1300, day(2020, 1, 1), nil)

	t.Run("split components equal a single rate", func(t *testing.T) {
		assert.Equal(t, int64(1300), ComputeTax(10000, single).TaxCents)
		assert.Equal(t, int64(1300), ComputeTax(10000, split(false)).TaxCents)
	})

	t.Run("compounding yields strictly more", func(t *testing.T) {
		result := ComputeTax(10000, split(true))
		assert.Equal(t, int64(1342), result.TaxCents)
		require.Len(t, result.Components, 2)
		assert.Equal(t, int64(650), result.Components[0].TaxCents)
		assert.Equal(t, int64(10650), result.Components[1].TaxableCents)
		assert.Equal(t, int64(692), result.Components[1].TaxCents)
		assert.Greater(t, result.TaxCents, ComputeTax(10000, split(false)).TaxCents)
	})

	t.Run("rounds half away from zero per component", func(t *testing.T) {
		r := newTestRate(t, nil, "X", 50, day(2020, 1, 1), nil)
		assert.Equal(t, int64(1), ComputeTax(100, r).TaxCents, "0.5 rounds up")
		assert.Equal(t, int64(-1), ComputeTax(-100, r).TaxCents, "-0.5 rounds down")
		assert.Equal(t, int64(0), ComputeTax(99, r).TaxCents)
	})

	t.Run("zero rate", func(t *testing.T) {
		r := newTestRate(t, nil, "EXEMPT", 0, day(2020, 1, 1), nil)
		assert.Zero(t, ComputeTax(10000, r).TaxCents)
	})
}

func TestComponentRates_ValueScan(t *testing.T) {
	rates := ComponentRates{{Name: "GST", RateBasisPoints: 500}, {Name: "PST", RateBasisPoints: 800}}
	v, err := rates.Value()
	require.NoError(t, err)

	var back ComponentRates
	require.NoError(t, back.Scan(v))
	assert.Equal(t, rates, back)

	require.NoError(t, back.Scan(nil))
	assert.Empty(t, back)
	assert.Error(t, back.Scan(42))
}
