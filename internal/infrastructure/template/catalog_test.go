package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	catalog, err := LoadDefault()
	require.NoError(t, err)

	list := catalog.List()
	require.Len(t, list, 2)
	assert.Equal(t, "property_management/CA", list[0].Key())
	assert.Equal(t, "property_management/US", list[1].Key())

	us, err := catalog.Get("Property_Management", "us")
	require.NoError(t, err)
	assert.Len(t, us.Entries, 33)

	accounts, err := us.NewAccounts(uuid.New())
	require.NoError(t, err)
	byNumber := map[string]*ledger.GLAccount{}
	for _, a := range accounts {
		byNumber[a.AccountNumber] = a
	}
	assert.True(t, byNumber["1110"].IsBankAccount)
	assert.True(t, byNumber["2100"].IsControlAccount)
	assert.Equal(t, ledger.SideCredit, byNumber["4100"].NormalBalance)
	assert.Equal(t, "1100", us.ParentNumbers()["1110"])
}

func TestCatalog_GetUnknown(t *testing.T) {
	catalog, err := LoadDefault()
	require.NoError(t, err)

	_, err = catalog.Get("property_management", "FR")
	assert.True(t, errors.Is(err, shared.NewNotFoundError("TEMPLATE_NOT_FOUND", "")))
}

func TestParse(t *testing.T) {
	t.Run("rejects an invalid template", func(t *testing.T) {
		_, err := Parse([]byte(`
templates:
  - name: broken
    jurisdiction: US
    accounts:
      - {number: "1100", name: Cash, type: asset, parent: "1000"}
`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrTemplate))
	})

	t.Run("rejects a duplicate key", func(t *testing.T) {
		_, err := Parse([]byte(`
templates:
  - name: tiny
    jurisdiction: US
    accounts: [{number: "1000", name: Assets, type: asset}]
  - name: Tiny
    jurisdiction: us
    accounts: [{number: "1000", name: Assets, type: asset}]
`))
		assert.ErrorContains(t, err, "defined twice")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("templates: ["))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - name: tiny
    jurisdiction: GB
    accounts:
      - {number: "1000", name: Assets, type: asset, header: true}
      - {number: "1100", name: Cash, type: asset, parent: "1000", bank: true}
`), 0o600))

	catalog, err := Load(path)
	require.NoError(t, err)
	def, err := catalog.Get("tiny", "GB")
	require.NoError(t, err)
	assert.Len(t, def.Entries, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	fallback, err := Load("")
	require.NoError(t, err)
	assert.Len(t, fallback.List(), 2)
}
