package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
)

const (
	maxAccountNameLength    = 200
	maxAccountSubtypeLength = 50 // gl_accounts.account_subtype is VARCHAR(50)
)

// AccountFields carries the caller-supplied attributes of a new GL account.
// NormalBalance is optional; when set it must agree with the account type.
type AccountFields struct {
	AccountNumber    string
	Name             string
	Description      string
	AccountType      AccountType
	AccountSubtype   string
	NormalBalance    *Side
	ParentAccountID  *uuid.UUID
	IsHeaderAccount  bool
	IsBankAccount    bool
	IsControlAccount bool
}

// GLAccount is a general-ledger account in a tenant's chart of accounts.
// CurrentBalanceCents is expressed in the account's normal-balance direction and is
// only meaningful for posting accounts; header balances are always computed.
type GLAccount struct {
	shared.TenantAggregateRoot
	AccountNumber       string
	Name                string
	Description         string
	AccountType         AccountType
	AccountSubtype      string
	NormalBalance       Side
	ParentAccountID     *uuid.UUID
	IsHeaderAccount     bool
	IsBankAccount       bool
	IsControlAccount    bool
	IsActive            bool
	CurrentBalanceCents int64
	YTDDebitCents       int64
	YTDCreditCents      int64
}

// NewGLAccount validates fields against the account type rules and creates an active
// account with a zero balance
func NewGLAccount(tenantID uuid.UUID, fields AccountFields) (*GLAccount, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID is required")
	}
	if !fields.AccountType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", fields.AccountType))
	}
	number := strings.TrimSpace(fields.AccountNumber)
	if err := ValidateAccountNumber(fields.AccountType, number); err != nil {
		return nil, err
	}
	normal := NormalBalanceFor(fields.AccountType)
	if fields.NormalBalance != nil {
		if err := ValidateNormalBalance(fields.AccountType, *fields.NormalBalance); err != nil {
			return nil, err
		}
	}
	if err := validateAccountName(fields.Name); err != nil {
		return nil, err
	}
	if err := validateAccountSubtype(fields.AccountSubtype); err != nil {
		return nil, err
	}

	account := &GLAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountNumber:       number,
		Name:                strings.TrimSpace(fields.Name),
		Description:         fields.Description,
		AccountType:         fields.AccountType,
		AccountSubtype:      fields.AccountSubtype,
		NormalBalance:       normal,
		IsHeaderAccount:     fields.IsHeaderAccount,
		IsBankAccount:       fields.IsBankAccount,
		IsControlAccount:    fields.IsControlAccount,
		IsActive:            true,
	}
	if fields.ParentAccountID != nil {
		if *fields.ParentAccountID == account.ID {
			return nil, shared.NewHierarchyError("SELF_PARENT", "An account cannot be its own parent")
		}
		parentID := *fields.ParentAccountID
		account.ParentAccountID = &parentID
	}

	account.AddDomainEvent(NewGLAccountCreatedEvent(account))

	return account, nil
}

// Validate re-checks the structural invariants of an account loaded from storage
func (a *GLAccount) Validate() error {
	if err := ValidateAccountNumber(a.AccountType, a.AccountNumber); err != nil {
		return err
	}
	return ValidateNormalBalance(a.AccountType, a.NormalBalance)
}

// IsPostingAccount returns true if the account may receive direct postings
func (a *GLAccount) IsPostingAccount() bool {
	return !a.IsHeaderAccount
}

// IsRoot returns true if the account has no parent
func (a *GLAccount) IsRoot() bool {
	return a.ParentAccountID == nil
}

// HasZeroBalance reports whether the stored posting balance is zero
func (a *GLAccount) HasZeroBalance() bool {
	return a.CurrentBalanceCents == 0
}

// UpdateDetails changes the descriptive attributes of the account
func (a *GLAccount) UpdateDetails(name, description, subtype string) error {
	if err := validateAccountName(name); err != nil {
		return err
	}
	if err := validateAccountSubtype(subtype); err != nil {
		return err
	}

	a.Name = strings.TrimSpace(name)
	a.Description = description
	a.AccountSubtype = subtype
	a.IncrementVersion()

	a.AddDomainEvent(NewGLAccountUpdatedEvent(a))
	return nil
}

// SetClassification changes the bank and control classification flags
func (a *GLAccount) SetClassification(isBank, isControl bool) {
	if a.IsBankAccount == isBank && a.IsControlAccount == isControl {
		return
	}
	a.IsBankAccount = isBank
	a.IsControlAccount = isControl
	a.IncrementVersion()
	a.AddDomainEvent(NewGLAccountUpdatedEvent(a))
}

// SetHeader converts the account between header and posting.
// Only an account with a zero stored balance may change role.
func (a *GLAccount) SetHeader(isHeader bool) error {
	if a.IsHeaderAccount == isHeader {
		return nil
	}
	if !a.HasZeroBalance() {
		return shared.NewStateError("NONZERO_BALANCE",
			fmt.Sprintf("Account %s has a nonzero balance and cannot change between header and posting", a.AccountNumber))
	}
	a.IsHeaderAccount = isHeader
	a.IncrementVersion()
	a.AddDomainEvent(NewGLAccountUpdatedEvent(a))
	return nil
}

// MoveTo sets a new parent. Cycle checks against the rest of the chart are done by
// the hierarchy; this only rejects the trivial self reference.
func (a *GLAccount) MoveTo(parentID *uuid.UUID) error {
	if parentID != nil && *parentID == a.ID {
		return shared.NewHierarchyError("SELF_PARENT", "An account cannot be its own parent")
	}
	old := a.ParentAccountID
	if parentID == nil {
		a.ParentAccountID = nil
	} else {
		id := *parentID
		a.ParentAccountID = &id
	}
	a.IncrementVersion()
	a.AddDomainEvent(NewGLAccountReparentedEvent(a, old))
	return nil
}

// Deactivate marks the account inactive.
// activeDescendants is the number of active accounts below this one in the chart.
func (a *GLAccount) Deactivate(activeDescendants int) error {
	if !a.IsActive {
		return shared.NewStateError("ALREADY_INACTIVE", fmt.Sprintf("Account %s is already inactive", a.AccountNumber))
	}
	if !a.IsHeaderAccount && !a.HasZeroBalance() {
		return shared.NewStateError("NONZERO_BALANCE",
			fmt.Sprintf("Account %s has a balance of %d cents and cannot be deactivated", a.AccountNumber, a.CurrentBalanceCents))
	}
	if activeDescendants > 0 {
		return shared.NewStateError("ACTIVE_DESCENDANTS",
			fmt.Sprintf("Account %s has %d active descendant account(s)", a.AccountNumber, activeDescendants))
	}

	a.IsActive = false
	a.IncrementVersion()
	a.AddDomainEvent(NewGLAccountStatusChangedEvent(a))
	return nil
}

// Reactivate marks the account active again
func (a *GLAccount) Reactivate() error {
	if a.IsActive {
		return shared.NewStateError("ALREADY_ACTIVE", fmt.Sprintf("Account %s is already active", a.AccountNumber))
	}
	a.IsActive = true
	a.IncrementVersion()
	a.AddDomainEvent(NewGLAccountStatusChangedEvent(a))
	return nil
}

func validateAccountName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if len(name) > maxAccountNameLength {
		return shared.NewValidationError("INVALID_ACCOUNT_NAME", fmt.Sprintf("Account name cannot exceed %d characters", maxAccountNameLength))
	}
	return nil
}

func validateAccountSubtype(subtype string) error {
	if utf8.RuneCountInString(subtype) > maxAccountSubtypeLength {
		return shared.NewValidationError("INVALID_ACCOUNT_SUBTYPE", fmt.Sprintf("Account subtype cannot exceed %d characters", maxAccountSubtypeLength))
	}
	return nil
}
