package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
)

// ChartTemplateEntry is one account of a chart template.
// ParentAccountNumber refers to another entry of the same template.
type ChartTemplateEntry struct {
	AccountNumber       string
	Name                string
	Description         string
	AccountType         AccountType
	AccountSubtype      string
	ParentAccountNumber string
	IsHeader            bool
	IsBank              bool
	IsControl           bool
}

// ChartTemplateDefinition is a named starter chart for one jurisdiction.
// Entries may appear in any order; parents need not precede their children.
type ChartTemplateDefinition struct {
	Name         string
	Jurisdiction string
	Description  string
	Entries      []ChartTemplateEntry
}

// Key identifies the template within a catalog
func (d *ChartTemplateDefinition) Key() string {
	return TemplateKey(d.Name, d.Jurisdiction)
}

// TemplateKey normalizes a (name, jurisdiction) pair
func TemplateKey(name, jurisdiction string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "/" + strings.ToUpper(strings.TrimSpace(jurisdiction))
}

// Validate checks every entry against the account rules and checks that the parent
// references form a forest. Nothing is persisted.
func (d *ChartTemplateDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return shared.NewTemplateError("INVALID_TEMPLATE", "Template name is required")
	}
	if strings.TrimSpace(d.Jurisdiction) == "" {
		return shared.NewTemplateError("INVALID_TEMPLATE", fmt.Sprintf("Template %s has no jurisdiction", d.Name))
	}
	if len(d.Entries) == 0 {
		return shared.NewTemplateError("EMPTY_TEMPLATE", fmt.Sprintf("Template %s has no accounts", d.Key()))
	}

	// A throwaway tenant lets the real constructors and BuildTree do the checking
	scratchTenant := uuid.New()
	accounts, err := d.NewAccounts(scratchTenant)
	if err != nil {
		return err
	}
	byNumber := make(map[string]*GLAccount, len(accounts))
	for _, a := range accounts {
		byNumber[a.AccountNumber] = a
	}
	for i, e := range d.Entries {
		if e.ParentAccountNumber == "" {
			continue
		}
		parent, ok := byNumber[strings.TrimSpace(e.ParentAccountNumber)]
		if !ok {
			return shared.NewTemplateError("UNRESOLVED_PARENT",
				fmt.Sprintf("Template %s: parent %s of account %s is not in the template", d.Key(), e.ParentAccountNumber, e.AccountNumber))
		}
		if !parent.IsHeaderAccount {
			return shared.NewTemplateError("PARENT_NOT_HEADER",
				fmt.Sprintf("Template %s: parent %s of account %s is not a header account", d.Key(), parent.AccountNumber, e.AccountNumber))
		}
		id := parent.ID
		accounts[i].ParentAccountID = &id
	}
	if _, err := BuildTree(scratchTenant, accounts); err != nil {
		return shared.NewTemplateError("INVALID_HIERARCHY", fmt.Sprintf("Template %s: %s", d.Key(), err.Error()))
	}
	return nil
}

// NewAccounts builds one unparented account per entry, in entry order.
// Duplicate account numbers and entries that break account rules fail with a TemplateError.
func (d *ChartTemplateDefinition) NewAccounts(tenantID uuid.UUID) ([]*GLAccount, error) {
	seen := make(map[string]bool, len(d.Entries))
	accounts := make([]*GLAccount, 0, len(d.Entries))
	for _, e := range d.Entries {
		number := strings.TrimSpace(e.AccountNumber)
		if seen[number] {
			return nil, shared.NewTemplateError("DUPLICATE_ACCOUNT_NUMBER",
				fmt.Sprintf("Template %s lists account %s more than once", d.Key(), number))
		}
		seen[number] = true

		account, err := NewGLAccount(tenantID, AccountFields{
			AccountNumber:    number,
			Name:             e.Name,
			Description:      e.Description,
			AccountType:      e.AccountType,
			AccountSubtype:   e.AccountSubtype,
			IsHeaderAccount:  e.IsHeader,
			IsBankAccount:    e.IsBank,
			IsControlAccount: e.IsControl,
		})
		if err != nil {
			return nil, shared.NewTemplateError("INVALID_ENTRY",
				fmt.Sprintf("Template %s account %s: %s", d.Key(), number, err.Error()))
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// ParentNumbers maps each child account number to its parent's account number
func (d *ChartTemplateDefinition) ParentNumbers() map[string]string {
	out := make(map[string]string)
	for _, e := range d.Entries {
		if p := strings.TrimSpace(e.ParentAccountNumber); p != "" {
			out[strings.TrimSpace(e.AccountNumber)] = p
		}
	}
	return out
}
