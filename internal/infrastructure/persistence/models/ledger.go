package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
)

// GLAccountModel is the persistence model for the GLAccount aggregate.
// TenantID is declared here rather than through TenantAggregateModel so that it can
// lead the (tenant_id, account_number) unique index.
type GLAccountModel struct {
	AggregateModel
	TenantID            uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_gl_accounts_tenant_number,priority:1"`
	CreatedBy           *uuid.UUID         `gorm:"type:uuid"`
	AccountNumber       string             `gorm:"type:varchar(10);not null;uniqueIndex:idx_gl_accounts_tenant_number,priority:2"`
	Name                string             `gorm:"type:varchar(200);not null"`
	Description         string             `gorm:"type:text"`
	AccountType         ledger.AccountType `gorm:"type:varchar(20);not null;index"`
	AccountSubtype      string             `gorm:"type:varchar(50)"`
	NormalBalance       ledger.Side        `gorm:"type:varchar(10);not null"`
	ParentAccountID     *uuid.UUID         `gorm:"type:uuid;index"`
	IsHeaderAccount     bool               `gorm:"not null"`
	IsBankAccount       bool               `gorm:"not null"`
	IsControlAccount    bool               `gorm:"not null"`
	IsActive            bool               `gorm:"not null;index"`
	CurrentBalanceCents int64              `gorm:"not null"`
	YTDDebitCents       int64              `gorm:"column:ytd_debit_cents;not null"`
	YTDCreditCents      int64              `gorm:"column:ytd_credit_cents;not null"`
}

// TableName returns the table name for GORM
func (GLAccountModel) TableName() string {
	return "gl_accounts"
}

// ToDomain converts the persistence model to a domain GLAccount
func (m *GLAccountModel) ToDomain() *ledger.GLAccount {
	return &ledger.GLAccount{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: m.ToDomainAggregateRoot(),
			TenantID:          m.TenantID,
			CreatedBy:         m.CreatedBy,
		},
		AccountNumber:       m.AccountNumber,
		Name:                m.Name,
		Description:         m.Description,
		AccountType:         m.AccountType,
		AccountSubtype:      m.AccountSubtype,
		NormalBalance:       m.NormalBalance,
		ParentAccountID:     m.ParentAccountID,
		IsHeaderAccount:     m.IsHeaderAccount,
		IsBankAccount:       m.IsBankAccount,
		IsControlAccount:    m.IsControlAccount,
		IsActive:            m.IsActive,
		CurrentBalanceCents: m.CurrentBalanceCents,
		YTDDebitCents:       m.YTDDebitCents,
		YTDCreditCents:      m.YTDCreditCents,
	}
}

// FromDomain populates the persistence model from a domain GLAccount
func (m *GLAccountModel) FromDomain(a *ledger.GLAccount) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.TenantID = a.TenantID
	m.CreatedBy = a.CreatedBy
	m.AccountNumber = a.AccountNumber
	m.Name = a.Name
	m.Description = a.Description
	m.AccountType = a.AccountType
	m.AccountSubtype = a.AccountSubtype
	m.NormalBalance = a.NormalBalance
	m.ParentAccountID = a.ParentAccountID
	m.IsHeaderAccount = a.IsHeaderAccount
	m.IsBankAccount = a.IsBankAccount
	m.IsControlAccount = a.IsControlAccount
	m.IsActive = a.IsActive
	m.CurrentBalanceCents = a.CurrentBalanceCents
	m.YTDDebitCents = a.YTDDebitCents
	m.YTDCreditCents = a.YTDCreditCents
}

// GLAccountModelFromDomain creates a new persistence model from a domain GLAccount
func GLAccountModelFromDomain(a *ledger.GLAccount) *GLAccountModel {
	m := &GLAccountModel{}
	m.FromDomain(a)
	return m
}

// TaxRateModel is the persistence model for the TaxRate aggregate.
// A NULL tenant_id marks a system default.
type TaxRateModel struct {
	AggregateModel
	TenantID        *uuid.UUID            `gorm:"type:uuid;index"`
	Jurisdiction    string                `gorm:"type:varchar(10);not null;index:idx_tax_rates_jurisdiction,priority:1"`
	RegionCode      string                `gorm:"type:varchar(10);not null;index:idx_tax_rates_jurisdiction,priority:2"`
	TaxName         string                `gorm:"type:varchar(100);not null"`
	TaxCode         string                `gorm:"type:varchar(20);not null"`
	ReplacesTaxCode string                `gorm:"type:varchar(20);not null;default:''"`
	RateBasisPoints int64                 `gorm:"not null"`
	ComponentRates  ledger.ComponentRates `gorm:"type:jsonb;not null"`
	IsCompound      bool                  `gorm:"not null"`
	IsRecoverable   bool                  `gorm:"not null"`
	IsActive        bool                  `gorm:"not null"`
	EffectiveFrom   time.Time             `gorm:"type:date;not null"`
	EffectiveTo     *time.Time            `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (TaxRateModel) TableName() string {
	return "tax_rates"
}

// ToDomain converts the persistence model to a domain TaxRate
func (m *TaxRateModel) ToDomain() *ledger.TaxRate {
	components := m.ComponentRates
	if components == nil {
		components = ledger.ComponentRates{}
	}
	return &ledger.TaxRate{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		TenantID:          m.TenantID,
		Jurisdiction:      m.Jurisdiction,
		RegionCode:        m.RegionCode,
		TaxName:           m.TaxName,
		TaxCode:           m.TaxCode,
		ReplacesTaxCode:   m.ReplacesTaxCode,
		RateBasisPoints:   m.RateBasisPoints,
		ComponentRates:    components,
		IsCompound:        m.IsCompound,
		IsRecoverable:     m.IsRecoverable,
		IsActive:          m.IsActive,
		EffectiveFrom:     m.EffectiveFrom,
		EffectiveTo:       m.EffectiveTo,
	}
}

// FromDomain populates the persistence model from a domain TaxRate
func (m *TaxRateModel) FromDomain(r *ledger.TaxRate) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.TenantID = r.TenantID
	m.Jurisdiction = r.Jurisdiction
	m.RegionCode = r.RegionCode
	m.TaxName = r.TaxName
	m.TaxCode = r.TaxCode
	m.ReplacesTaxCode = r.ReplacesTaxCode
	m.RateBasisPoints = r.RateBasisPoints
	m.ComponentRates = r.ComponentRates
	m.IsCompound = r.IsCompound
	m.IsRecoverable = r.IsRecoverable
	m.IsActive = r.IsActive
	m.EffectiveFrom = r.EffectiveFrom
	m.EffectiveTo = r.EffectiveTo
}

// TaxRateModelFromDomain creates a new persistence model from a domain TaxRate
func TaxRateModelFromDomain(r *ledger.TaxRate) *TaxRateModel {
	m := &TaxRateModel{}
	m.FromDomain(r)
	return m
}

// LedgerTransactionModel is the journal record of a committed transaction.
// The unique index on reverses_transaction_id allows a transaction to be reversed once.
type LedgerTransactionModel struct {
	TenantAggregateModel
	TransactionDate       time.Time                    `gorm:"type:date;not null;index"`
	Reference             string                       `gorm:"type:varchar(100)"`
	Memo                  string                       `gorm:"type:text"`
	ReversesTransactionID *uuid.UUID                   `gorm:"type:uuid;uniqueIndex"`
	Lines                 []LedgerTransactionLineModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (LedgerTransactionModel) TableName() string {
	return "ledger_transactions"
}

// ToDomain converts the persistence model to a domain LedgerTransaction
func (m *LedgerTransactionModel) ToDomain() *ledger.LedgerTransaction {
	tx := &ledger.LedgerTransaction{
		TenantAggregateRoot:   m.ToDomainTenantAggregateRoot(),
		TransactionDate:       m.TransactionDate,
		Reference:             m.Reference,
		Memo:                  m.Memo,
		ReversesTransactionID: m.ReversesTransactionID,
		Lines:                 make([]ledger.PostingLine, len(m.Lines)),
	}
	for i, line := range m.Lines {
		tx.Lines[i] = line.ToDomain()
	}
	return tx
}

// FromDomain populates the persistence model from a domain LedgerTransaction
func (m *LedgerTransactionModel) FromDomain(t *ledger.LedgerTransaction) {
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	m.TransactionDate = t.TransactionDate
	m.Reference = t.Reference
	m.Memo = t.Memo
	m.ReversesTransactionID = t.ReversesTransactionID
	m.Lines = make([]LedgerTransactionLineModel, len(t.Lines))
	for i, line := range t.Lines {
		m.Lines[i] = LedgerTransactionLineModel{
			ID:            line.ID,
			TransactionID: t.ID,
			TenantID:      t.TenantID,
			LineNumber:    line.LineNumber,
			AccountID:     line.AccountID,
			Direction:     line.Direction,
			AmountCents:   line.AmountCents,
			Memo:          line.Memo,
		}
	}
}

// LedgerTransactionModelFromDomain creates a new persistence model from a domain LedgerTransaction
func LedgerTransactionModelFromDomain(t *ledger.LedgerTransaction) *LedgerTransactionModel {
	m := &LedgerTransactionModel{}
	m.FromDomain(t)
	return m
}

// LedgerTransactionLineModel is one posting line of a journal record
type LedgerTransactionLineModel struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID   `gorm:"type:uuid;not null;index"`
	TenantID      uuid.UUID   `gorm:"type:uuid;not null"`
	LineNumber    int         `gorm:"not null"`
	AccountID     uuid.UUID   `gorm:"type:uuid;not null;index"`
	Direction     ledger.Side `gorm:"type:varchar(10);not null"`
	AmountCents   int64       `gorm:"not null"`
	Memo          string      `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LedgerTransactionLineModel) TableName() string {
	return "ledger_transaction_lines"
}

// ToDomain converts the line model to a domain PostingLine
func (m *LedgerTransactionLineModel) ToDomain() ledger.PostingLine {
	return ledger.PostingLine{
		ID:          m.ID,
		LineNumber:  m.LineNumber,
		AccountID:   m.AccountID,
		Direction:   m.Direction,
		AmountCents: m.AmountCents,
		Memo:        m.Memo,
	}
}

// LedgerModels lists the models of the ledger schema, parents first
func LedgerModels() []any {
	return []any{
		&GLAccountModel{},
		&TaxRateModel{},
		&LedgerTransactionModel{},
		&LedgerTransactionLineModel{},
	}
}
