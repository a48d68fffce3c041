package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate() *ChartTemplateDefinition {
	// Children listed before their parents on purpose
	return &ChartTemplateDefinition{
		Name:         "Residential",
		Jurisdiction: "us",
		Entries: []ChartTemplateEntry{
			{AccountNumber: "1010", Name: "Operating Cash", AccountType: AccountTypeAsset, ParentAccountNumber: "1000", IsBank: true},
			{AccountNumber: "1000", Name: "Cash", AccountType: AccountTypeAsset, IsHeader: true},
			{AccountNumber: "4000", Name: "Income", AccountType: AccountTypeRevenue, IsHeader: true},
			{AccountNumber: "4100", Name: "Rent Income", AccountType: AccountTypeRevenue, ParentAccountNumber: "4000"},
		},
	}
}

func TestChartTemplateDefinition_Validate(t *testing.T) {
	t.Run("accepts a valid template in any order", func(t *testing.T) {
		assert.NoError(t, sampleTemplate().Validate())
		assert.Equal(t, "residential/US", sampleTemplate().Key())
	})

	t.Run("rejects unresolved parents", func(t *testing.T) {
		tpl := sampleTemplate()
		tpl.Entries[0].ParentAccountNumber = "1999"
		err := tpl.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrTemplate))
	})

	t.Run("rejects a posting parent", func(t *testing.T) {
		tpl := sampleTemplate()
		tpl.Entries[1].IsHeader = false
		assert.True(t, errors.Is(tpl.Validate(), shared.ErrTemplate))
	})

	t.Run("rejects cycles", func(t *testing.T) {
		tpl := sampleTemplate()
		tpl.Entries[1].ParentAccountNumber = "1010"
		tpl.Entries[0].IsHeader = true
		assert.True(t, errors.Is(tpl.Validate(), shared.ErrTemplate))
	})

	t.Run("rejects duplicates and broken rules", func(t *testing.T) {
		tpl := sampleTemplate()
		tpl.Entries[3].AccountNumber = "4000"
		assert.True(t, errors.Is(tpl.Validate(), shared.ErrTemplate))

		tpl = sampleTemplate()
		tpl.Entries[3].AccountNumber = "1500"
		assert.True(t, errors.Is(tpl.Validate(), shared.ErrTemplate))
	})

	t.Run("rejects empty template", func(t *testing.T) {
		tpl := &ChartTemplateDefinition{Name: "x", Jurisdiction: "US"}
		assert.Error(t, tpl.Validate())
	})
}

func TestChartTemplateDefinition_NewAccounts(t *testing.T) {
	tenantID := uuid.New()
	tpl := sampleTemplate()

	accounts, err := tpl.NewAccounts(tenantID)
	require.NoError(t, err)
	require.Len(t, accounts, 4)
	for _, a := range accounts {
		assert.Nil(t, a.ParentAccountID)
		assert.Equal(t, tenantID, a.TenantID)
	}
	assert.True(t, accounts[0].IsBankAccount)
	assert.Equal(t, SideCredit, accounts[3].NormalBalance)

	assert.Equal(t, map[string]string{"1010": "1000", "4100": "4000"}, tpl.ParentNumbers())
}
