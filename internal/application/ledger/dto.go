package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
)

// CreateAccountRequest represents a request to create a GL account
type CreateAccountRequest struct {
	AccountNumber    string     `json:"account_number" validate:"required,numeric,max=10"`
	Name             string     `json:"name" validate:"required,min=1,max=200"`
	Description      string     `json:"description" validate:"max=2000"`
	AccountType      string     `json:"account_type" validate:"required,oneof=asset liability equity revenue expense"`
	AccountSubtype   string     `json:"account_subtype" validate:"max=50"`
	NormalBalance    *string    `json:"normal_balance" validate:"omitempty,oneof=debit credit"`
	ParentAccountID  *uuid.UUID `json:"parent_account_id"`
	IsHeaderAccount  bool       `json:"is_header_account"`
	IsBankAccount    bool       `json:"is_bank_account"`
	IsControlAccount bool       `json:"is_control_account"`
	CreatedBy        *uuid.UUID `json:"-"`
}

// UpdateAccountRequest is a partial update of a GL account.
// The identity, ownership and balance fields are accepted only so that an attempt to change
// them can be rejected explicitly; sending the current value is not a change.
type UpdateAccountRequest struct {
	Name             *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description      *string    `json:"description" validate:"omitempty,max=2000"`
	AccountSubtype   *string    `json:"account_subtype" validate:"omitempty,max=50"`
	IsHeaderAccount  *bool      `json:"is_header_account"`
	IsBankAccount    *bool      `json:"is_bank_account"`
	IsControlAccount *bool      `json:"is_control_account"`
	ParentAccountID  *uuid.UUID `json:"parent_account_id"`
	MakeRoot         bool       `json:"make_root"`
	Version          *int       `json:"version"`

	AccountNumber       *string    `json:"account_number"`
	AccountType         *string    `json:"account_type"`
	NormalBalance       *string    `json:"normal_balance"`
	TenantID            *uuid.UUID `json:"tenant_id"`
	CurrentBalanceCents *int64     `json:"current_balance_cents"`
	YTDDebitCents       *int64     `json:"ytd_debit_cents"`
	YTDCreditCents      *int64     `json:"ytd_credit_cents"`
}

// ReparentAccountRequest moves an account under a new parent, or to the root when nil
type ReparentAccountRequest struct {
	ParentAccountID *uuid.UUID `json:"parent_account_id"`
	Version         *int       `json:"version"`
}

// AccountListFilter defines filtering options for account listing
type AccountListFilter struct {
	Search          string     `json:"search" validate:"max=100"`
	AccountType     string     `json:"account_type" validate:"omitempty,oneof=asset liability equity revenue expense"`
	AccountSubtype  string     `json:"account_subtype" validate:"max=50"`
	ParentAccountID *uuid.UUID `json:"parent_account_id"`
	IsActive        *bool      `json:"is_active"`
	IsHeader        *bool      `json:"is_header"`
	IsBank          *bool      `json:"is_bank"`
	IsControl       *bool      `json:"is_control"`
	Page            int        `json:"page" validate:"gte=0"`
	PageSize        int        `json:"page_size" validate:"gte=0,max=500"`
	OrderBy         string     `json:"order_by" validate:"omitempty,oneof=account_number name account_type created_at"`
	OrderDir        string     `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// toDomain converts the filter to the repository filter
func (f AccountListFilter) toDomain() ledger.GLAccountFilter {
	base := shared.DefaultFilter()
	if f.Page > 0 {
		base.Page = f.Page
	}
	if f.PageSize > 0 {
		base.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		base.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		base.OrderDir = f.OrderDir
	}
	base.Search = f.Search

	out := ledger.GLAccountFilter{
		Filter:          base,
		ParentAccountID: f.ParentAccountID,
		IsActive:        f.IsActive,
		IsHeader:        f.IsHeader,
		IsBank:          f.IsBank,
		IsControl:       f.IsControl,
	}
	if f.AccountType != "" {
		at := ledger.AccountType(f.AccountType)
		out.AccountType = &at
	}
	if f.AccountSubtype != "" {
		st := f.AccountSubtype
		out.AccountSubtype = &st
	}
	return out
}

// AccountResponse represents a GL account.
// CurrentBalanceCents is nil for header accounts, whose balance is always computed.
type AccountResponse struct {
	ID                  uuid.UUID  `json:"id"`
	TenantID            uuid.UUID  `json:"tenant_id"`
	AccountNumber       string     `json:"account_number"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	AccountType         string     `json:"account_type"`
	AccountSubtype      string     `json:"account_subtype"`
	NormalBalance       string     `json:"normal_balance"`
	ParentAccountID     *uuid.UUID `json:"parent_account_id,omitempty"`
	IsHeaderAccount     bool       `json:"is_header_account"`
	IsBankAccount       bool       `json:"is_bank_account"`
	IsControlAccount    bool       `json:"is_control_account"`
	IsActive            bool       `json:"is_active"`
	CurrentBalanceCents *int64     `json:"current_balance_cents,omitempty"`
	YTDDebitCents       int64      `json:"ytd_debit_cents"`
	YTDCreditCents      int64      `json:"ytd_credit_cents"`
	Version             int        `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ToAccountResponse converts a domain account to a response
func ToAccountResponse(a *ledger.GLAccount) AccountResponse {
	resp := AccountResponse{
		ID:               a.ID,
		TenantID:         a.TenantID,
		AccountNumber:    a.AccountNumber,
		Name:             a.Name,
		Description:      a.Description,
		AccountType:      a.AccountType.String(),
		AccountSubtype:   a.AccountSubtype,
		NormalBalance:    a.NormalBalance.String(),
		ParentAccountID:  a.ParentAccountID,
		IsHeaderAccount:  a.IsHeaderAccount,
		IsBankAccount:    a.IsBankAccount,
		IsControlAccount: a.IsControlAccount,
		IsActive:         a.IsActive,
		YTDDebitCents:    a.YTDDebitCents,
		YTDCreditCents:   a.YTDCreditCents,
		Version:          a.Version,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.IsPostingAccount() {
		balance := a.CurrentBalanceCents
		resp.CurrentBalanceCents = &balance
	}
	return resp
}

// ToAccountResponses converts a list of accounts
func ToAccountResponses(accounts []*ledger.GLAccount) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToAccountResponse(a)
	}
	return out
}

// AccountBalanceResponse is the balance of one account in its normal direction
type AccountBalanceResponse struct {
	AccountID     uuid.UUID `json:"account_id"`
	AccountNumber string    `json:"account_number"`
	NormalBalance string    `json:"normal_balance"`
	BalanceCents  int64     `json:"balance_cents"`
	Computed      bool      `json:"computed"`
}

// AccountTreeNode is an account with its computed balance and children
type AccountTreeNode struct {
	AccountResponse
	Depth        int               `json:"depth"`
	BalanceCents int64             `json:"balance_cents"`
	Children     []AccountTreeNode `json:"children"`
}

// ToAccountTree converts a forest to response nodes
func ToAccountTree(forest []*ledger.AccountNode) []AccountTreeNode {
	out := make([]AccountTreeNode, 0, len(forest))
	for _, n := range forest {
		out = append(out, AccountTreeNode{
			AccountResponse: ToAccountResponse(n.Account),
			Depth:           n.Depth,
			BalanceCents:    n.Balance,
			Children:        ToAccountTree(n.Children),
		})
	}
	return out
}

// FlatAccountResponse is one row of a flattened chart
type FlatAccountResponse struct {
	AccountResponse
	Depth        int   `json:"depth"`
	BalanceCents int64 `json:"balance_cents"`
}

// PostingLineRequest is one line of a transaction to post
type PostingLineRequest struct {
	AccountID   uuid.UUID `json:"account_id"`
	Direction   string    `json:"direction" validate:"required,oneof=debit credit"`
	AmountCents int64     `json:"amount_cents"`
	Memo        string    `json:"memo" validate:"max=500"`
}

// PostTransactionRequest represents a request to post a balanced transaction
type PostTransactionRequest struct {
	TransactionDate time.Time            `json:"transaction_date"`
	Reference       string               `json:"reference" validate:"max=100"`
	Memo            string               `json:"memo" validate:"max=500"`
	Lines           []PostingLineRequest `json:"lines" validate:"dive"`
	CreatedBy       *uuid.UUID           `json:"-"`
}

func (r PostTransactionRequest) domainLines() []ledger.PostingLine {
	lines := make([]ledger.PostingLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ledger.PostingLine{
			AccountID:   l.AccountID,
			Direction:   ledger.Side(l.Direction),
			AmountCents: l.AmountCents,
			Memo:        l.Memo,
		}
	}
	return lines
}

// ReverseTransactionRequest represents a request to reverse a committed transaction
type ReverseTransactionRequest struct {
	TransactionDate time.Time  `json:"transaction_date"`
	Reference       string     `json:"reference" validate:"max=100"`
	Memo            string     `json:"memo" validate:"max=500"`
	CreatedBy       *uuid.UUID `json:"-"`
}

// TransactionLineResponse represents one committed posting line
type TransactionLineResponse struct {
	ID          uuid.UUID `json:"id"`
	LineNumber  int       `json:"line_number"`
	AccountID   uuid.UUID `json:"account_id"`
	Direction   string    `json:"direction"`
	AmountCents int64     `json:"amount_cents"`
	Memo        string    `json:"memo,omitempty"`
}

// TransactionResponse represents a committed transaction
type TransactionResponse struct {
	ID                    uuid.UUID                 `json:"id"`
	TenantID              uuid.UUID                 `json:"tenant_id"`
	TransactionDate       time.Time                 `json:"transaction_date"`
	Reference             string                    `json:"reference"`
	Memo                  string                    `json:"memo"`
	ReversesTransactionID *uuid.UUID                `json:"reverses_transaction_id,omitempty"`
	TotalCents            int64                     `json:"total_cents"`
	Lines                 []TransactionLineResponse `json:"lines"`
	CreatedAt             time.Time                 `json:"created_at"`
}

// ToTransactionResponse converts a domain transaction to a response
func ToTransactionResponse(tx *ledger.LedgerTransaction) TransactionResponse {
	lines := make([]TransactionLineResponse, len(tx.Lines))
	for i, l := range tx.Lines {
		lines[i] = TransactionLineResponse{
			ID:          l.ID,
			LineNumber:  l.LineNumber,
			AccountID:   l.AccountID,
			Direction:   l.Direction.String(),
			AmountCents: l.AmountCents,
			Memo:        l.Memo,
		}
	}
	return TransactionResponse{
		ID:                    tx.ID,
		TenantID:              tx.TenantID,
		TransactionDate:       tx.TransactionDate,
		Reference:             tx.Reference,
		Memo:                  tx.Memo,
		ReversesTransactionID: tx.ReversesTransactionID,
		TotalCents:            tx.TotalCents(),
		Lines:                 lines,
		CreatedAt:             tx.CreatedAt,
	}
}

// TransactionListFilter defines filtering options for journal listing
type TransactionListFilter struct {
	AccountID *uuid.UUID `json:"account_id"`
	FromDate  *time.Time `json:"from_date"`
	ToDate    *time.Time `json:"to_date"`
	Page      int        `json:"page" validate:"gte=0"`
	PageSize  int        `json:"page_size" validate:"gte=0,max=500"`
}

func (f TransactionListFilter) toDomain() ledger.LedgerTransactionFilter {
	base := shared.DefaultFilter()
	base.OrderBy = "transaction_date"
	base.OrderDir = "desc"
	if f.Page > 0 {
		base.Page = f.Page
	}
	if f.PageSize > 0 {
		base.PageSize = f.PageSize
	}
	return ledger.LedgerTransactionFilter{
		Filter:    base,
		AccountID: f.AccountID,
		FromDate:  f.FromDate,
		ToDate:    f.ToDate,
	}
}

// ComponentRateRequest is one named sub-rate
type ComponentRateRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	RateBasisPoints int64  `json:"rate_basis_points" validate:"gte=0"`
}

// CreateTaxRateRequest represents a request to create a tax rate
type CreateTaxRateRequest struct {
	Jurisdiction    string                 `json:"jurisdiction" validate:"required,max=10"`
	RegionCode      string                 `json:"region_code" validate:"max=10"`
	TaxName         string                 `json:"tax_name" validate:"required,max=100"`
	TaxCode         string                 `json:"tax_code" validate:"required,max=20"`
	ReplacesTaxCode string                 `json:"replaces_tax_code" validate:"max=20"`
	RateBasisPoints int64                  `json:"rate_basis_points" validate:"gte=0,lte=100000"`
	ComponentRates  []ComponentRateRequest `json:"component_rates" validate:"dive"`
	IsCompound      bool                   `json:"is_compound"`
	IsRecoverable   bool                   `json:"is_recoverable"`
	EffectiveFrom   time.Time              `json:"effective_from" validate:"required"`
	EffectiveTo     *time.Time             `json:"effective_to"`
}

// ExpireTaxRateRequest closes a tax rate's effective window
type ExpireTaxRateRequest struct {
	EffectiveTo time.Time `json:"effective_to" validate:"required"`
	Version     *int      `json:"version"`
}

// TaxRateListFilter defines filtering options for tax rate listing
type TaxRateListFilter struct {
	Jurisdiction   string     `json:"jurisdiction" validate:"max=10"`
	RegionCode     string     `json:"region_code" validate:"max=10"`
	TaxCode        string     `json:"tax_code" validate:"max=20"`
	IncludeDefault bool       `json:"include_default"`
	ActiveOn       *time.Time `json:"active_on"`
	Page           int        `json:"page" validate:"gte=0"`
	PageSize       int        `json:"page_size" validate:"gte=0,max=500"`
}

// TaxRateResponse represents a tax rate
type TaxRateResponse struct {
	ID              uuid.UUID              `json:"id"`
	TenantID        *uuid.UUID             `json:"tenant_id,omitempty"`
	Jurisdiction    string                 `json:"jurisdiction"`
	RegionCode      string                 `json:"region_code"`
	TaxName         string                 `json:"tax_name"`
	TaxCode         string                 `json:"tax_code"`
	ReplacesTaxCode string                 `json:"replaces_tax_code,omitempty"`
	RateBasisPoints int64                  `json:"rate_basis_points"`
	ComponentRates  []ledger.ComponentRate `json:"component_rates"`
	IsCompound      bool                   `json:"is_compound"`
	IsRecoverable   bool                   `json:"is_recoverable"`
	IsActive        bool                   `json:"is_active"`
	IsSystemDefault bool                   `json:"is_system_default"`
	EffectiveFrom   time.Time              `json:"effective_from"`
	EffectiveTo     *time.Time             `json:"effective_to,omitempty"`
	Version         int                    `json:"version"`
}

// ToTaxRateResponse converts a domain tax rate to a response
func ToTaxRateResponse(r *ledger.TaxRate) TaxRateResponse {
	return TaxRateResponse{
		ID:              r.ID,
		TenantID:        r.TenantID,
		Jurisdiction:    r.Jurisdiction,
		RegionCode:      r.RegionCode,
		TaxName:         r.TaxName,
		TaxCode:         r.TaxCode,
		ReplacesTaxCode: r.ReplacesTaxCode,
		RateBasisPoints: r.RateBasisPoints,
		ComponentRates:  r.Components(),
		IsCompound:      r.IsCompound,
		IsRecoverable:   r.IsRecoverable,
		IsActive:        r.IsActive,
		IsSystemDefault: r.IsSystemDefault(),
		EffectiveFrom:   r.EffectiveFrom,
		EffectiveTo:     r.EffectiveTo,
		Version:         r.Version,
	}
}

// TaxQuoteResponse is the tax due on a base amount across every resolved rate
type TaxQuoteResponse struct {
	BaseCents     int64                   `json:"base_cents"`
	TotalTaxCents int64                   `json:"total_tax_cents"`
	Taxes         []ledger.TaxComputation `json:"taxes"`
}

// InitializeChartResponse reports the outcome of applying a chart template
type InitializeChartResponse struct {
	TemplateName    string `json:"template_name"`
	Jurisdiction    string `json:"jurisdiction"`
	AccountsCreated int    `json:"accounts_created"`
}

// ChartTemplateSummary describes a template available in the catalog
type ChartTemplateSummary struct {
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`
	Description  string `json:"description"`
	AccountCount int    `json:"account_count"`
}
