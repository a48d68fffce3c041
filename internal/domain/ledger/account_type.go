package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/propmgr/ledger/internal/domain/shared"
)

// AccountType is the closed set of general-ledger account classes
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AllAccountTypes lists every account type in chart order
var AllAccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// IsValid checks if the type is one of the known account types
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// ParseAccountType parses a case-insensitive account type name
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewValidationError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", s))
	}
	return t, nil
}

// Side is one of the two sides of a double-entry ledger.
// It is used both as an account's normal balance and as a posting line direction.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// IsValid checks if the side is debit or credit
func (s Side) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// String returns the string representation of Side
func (s Side) String() string {
	return string(s)
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// ParseSide parses a case-insensitive side name
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToLower(strings.TrimSpace(s)))
	if !side.IsValid() {
		return "", shared.NewValidationError("INVALID_SIDE", fmt.Sprintf("Side must be debit or credit, got %q", s))
	}
	return side, nil
}

// NumberRange is the inclusive numeric range reserved for an account type
type NumberRange struct {
	Min int
	Max int
}

// Contains reports whether n lies inside the range
func (r NumberRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// String returns the range as "min-max"
func (r NumberRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// NormalBalanceFor returns the side on which an account of the given type increases.
// Assets and expenses are debit-normal; liabilities, equity and revenue are credit-normal.
func NormalBalanceFor(t AccountType) Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// NumberRangeFor returns the account-number range reserved for the given type
func NumberRangeFor(t AccountType) NumberRange {
	switch t {
	case AccountTypeAsset:
		return NumberRange{Min: 1000, Max: 1999}
	case AccountTypeLiability:
		return NumberRange{Min: 2000, Max: 2999}
	case AccountTypeEquity:
		return NumberRange{Min: 3000, Max: 3999}
	case AccountTypeRevenue:
		return NumberRange{Min: 4000, Max: 4999}
	default:
		return NumberRange{Min: 5000, Max: 6999}
	}
}

// ValidateAccountNumber checks that number is purely numeric, has no leading zero and is inside the range for t
func ValidateAccountNumber(t AccountType, number string) error {
	if !t.IsValid() {
		return shared.NewValidationError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", t))
	}
	if number == "" {
		return shared.NewValidationError("INVALID_ACCOUNT_NUMBER", "Account number cannot be empty")
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return shared.NewValidationError("INVALID_ACCOUNT_NUMBER", fmt.Sprintf("Account number %q must contain digits only", number))
		}
	}
	// Numbers are compared as strings for uniqueness and ordering, so only the canonical form is allowed
	if number[0] == '0' {
		return shared.NewValidationError("INVALID_ACCOUNT_NUMBER", fmt.Sprintf("Account number %q must not start with 0", number))
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return shared.NewValidationError("INVALID_ACCOUNT_NUMBER", fmt.Sprintf("Account number %q is not a valid number", number))
	}
	rng := NumberRangeFor(t)
	if !rng.Contains(n) {
		return shared.NewValidationError("ACCOUNT_NUMBER_OUT_OF_RANGE",
			fmt.Sprintf("Account number %s is outside the %s range %s", number, t, rng))
	}
	return nil
}

// ValidateNormalBalance checks that nb matches the derivation for t
func ValidateNormalBalance(t AccountType, nb Side) error {
	if !nb.IsValid() {
		return shared.NewValidationError("INVALID_NORMAL_BALANCE", fmt.Sprintf("Normal balance must be debit or credit, got %q", nb))
	}
	if expected := NormalBalanceFor(t); nb != expected {
		return shared.NewValidationError("NORMAL_BALANCE_MISMATCH",
			fmt.Sprintf("A %s account has a %s normal balance, not %s", t, expected, nb))
	}
	return nil
}

// SignedDelta returns the change to an account's normal-oriented balance when amount is
// posted on direction: positive when direction matches the normal balance, negative otherwise.
func SignedDelta(normal, direction Side, amount int64) int64 {
	if direction == normal {
		return amount
	}
	return -amount
}
