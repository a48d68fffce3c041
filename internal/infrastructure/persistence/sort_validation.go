package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// GLAccountSortFields contains allowed sort fields for GL accounts
var GLAccountSortFields = map[string]bool{
	"account_number": true,
	"name":           true,
	"account_type":   true,
	"created_at":     true,
	"updated_at":     true,
}

// TaxRateSortFields contains allowed sort fields for tax rates
var TaxRateSortFields = map[string]bool{
	"tax_code":       true,
	"jurisdiction":   true,
	"region_code":    true,
	"effective_from": true,
	"created_at":     true,
}

// LedgerTransactionSortFields contains allowed sort fields for journal records
var LedgerTransactionSortFields = map[string]bool{
	"transaction_date": true,
	"reference":        true,
	"created_at":       true,
}
