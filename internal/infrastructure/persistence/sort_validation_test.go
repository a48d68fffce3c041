package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "sideways", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE gl_accounts;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "account_number"},
		{"whitelisted field", "name", "name"},
		{"unknown field returns default", "current_balance_cents", "account_number"},
		{"injection returns default", "name; DROP TABLE gl_accounts;--", "account_number"},
		{"case sensitive", "NAME", "account_number"},
		{"trimmed", "  account_type ", "account_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, GLAccountSortFields, "account_number"))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	assert.True(t, TaxRateSortFields["tax_code"])
	assert.True(t, LedgerTransactionSortFields["transaction_date"])
	for name, whitelist := range map[string]map[string]bool{
		"GLAccountSortFields":         GLAccountSortFields,
		"TaxRateSortFields":           TaxRateSortFields,
		"LedgerTransactionSortFields": LedgerTransactionSortFields,
	} {
		assert.True(t, whitelist["created_at"], "%s should allow created_at", name)
	}
}
