package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeGLAccount         = "GLAccount"
	AggregateTypeLedgerTransaction = "LedgerTransaction"
	AggregateTypeChart             = "ChartOfAccounts"
)

// Event type constants
const (
	EventTypeGLAccountCreated           = "GLAccountCreated"
	EventTypeGLAccountUpdated           = "GLAccountUpdated"
	EventTypeGLAccountReparented        = "GLAccountReparented"
	EventTypeGLAccountStatusChanged     = "GLAccountStatusChanged"
	EventTypeLedgerTransactionPosted    = "LedgerTransactionPosted"
	EventTypeChartOfAccountsInitialized = "ChartOfAccountsInitialized"
)

// GLAccountCreatedEvent is published when a new GL account is created
type GLAccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID   `json:"account_id"`
	AccountNumber string      `json:"account_number"`
	Name          string      `json:"name"`
	AccountType   AccountType `json:"account_type"`
	NormalBalance Side        `json:"normal_balance"`
	IsHeader      bool        `json:"is_header"`
}

// NewGLAccountCreatedEvent creates a new GLAccountCreatedEvent
func NewGLAccountCreatedEvent(a *GLAccount) *GLAccountCreatedEvent {
	return &GLAccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGLAccountCreated, AggregateTypeGLAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		AccountNumber:   a.AccountNumber,
		Name:            a.Name,
		AccountType:     a.AccountType,
		NormalBalance:   a.NormalBalance,
		IsHeader:        a.IsHeaderAccount,
	}
}

// GLAccountUpdatedEvent is published when descriptive attributes or flags change
type GLAccountUpdatedEvent struct {
	shared.BaseDomainEvent
	AccountID      uuid.UUID `json:"account_id"`
	AccountNumber  string    `json:"account_number"`
	Name           string    `json:"name"`
	AccountSubtype string    `json:"account_subtype,omitempty"`
	IsHeader       bool      `json:"is_header"`
	IsBank         bool      `json:"is_bank"`
	IsControl      bool      `json:"is_control"`
}

// NewGLAccountUpdatedEvent creates a new GLAccountUpdatedEvent
func NewGLAccountUpdatedEvent(a *GLAccount) *GLAccountUpdatedEvent {
	return &GLAccountUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGLAccountUpdated, AggregateTypeGLAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		AccountNumber:   a.AccountNumber,
		Name:            a.Name,
		AccountSubtype:  a.AccountSubtype,
		IsHeader:        a.IsHeaderAccount,
		IsBank:          a.IsBankAccount,
		IsControl:       a.IsControlAccount,
	}
}

// GLAccountReparentedEvent is published when an account moves in the hierarchy
type GLAccountReparentedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID  `json:"account_id"`
	AccountNumber string     `json:"account_number"`
	OldParentID   *uuid.UUID `json:"old_parent_id,omitempty"`
	NewParentID   *uuid.UUID `json:"new_parent_id,omitempty"`
}

// NewGLAccountReparentedEvent creates a new GLAccountReparentedEvent
func NewGLAccountReparentedEvent(a *GLAccount, oldParentID *uuid.UUID) *GLAccountReparentedEvent {
	return &GLAccountReparentedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGLAccountReparented, AggregateTypeGLAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		AccountNumber:   a.AccountNumber,
		OldParentID:     oldParentID,
		NewParentID:     a.ParentAccountID,
	}
}

// GLAccountStatusChangedEvent is published when an account is deactivated or reactivated
type GLAccountStatusChangedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID `json:"account_id"`
	AccountNumber string    `json:"account_number"`
	IsActive      bool      `json:"is_active"`
}

// NewGLAccountStatusChangedEvent creates a new GLAccountStatusChangedEvent
func NewGLAccountStatusChangedEvent(a *GLAccount) *GLAccountStatusChangedEvent {
	return &GLAccountStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGLAccountStatusChanged, AggregateTypeGLAccount, a.ID, a.TenantID),
		AccountID:       a.ID,
		AccountNumber:   a.AccountNumber,
		IsActive:        a.IsActive,
	}
}

// LedgerTransactionPostedEvent is published after a transaction commits
type LedgerTransactionPostedEvent struct {
	shared.BaseDomainEvent
	TransactionID         uuid.UUID   `json:"transaction_id"`
	TransactionDate       time.Time   `json:"transaction_date"`
	Reference             string      `json:"reference,omitempty"`
	TotalCents            int64       `json:"total_cents"`
	AccountIDs            []uuid.UUID `json:"account_ids"`
	ReversesTransactionID *uuid.UUID  `json:"reverses_transaction_id,omitempty"`
}

// NewLedgerTransactionPostedEvent creates a new LedgerTransactionPostedEvent
func NewLedgerTransactionPostedEvent(tx *LedgerTransaction) *LedgerTransactionPostedEvent {
	ids := make([]uuid.UUID, 0, len(tx.Lines))
	seen := make(map[uuid.UUID]bool, len(tx.Lines))
	for _, l := range tx.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return &LedgerTransactionPostedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent(EventTypeLedgerTransactionPosted, AggregateTypeLedgerTransaction, tx.ID, tx.TenantID),
		TransactionID:         tx.ID,
		TransactionDate:       tx.TransactionDate,
		Reference:             tx.Reference,
		TotalCents:            tx.TotalCents(),
		AccountIDs:            ids,
		ReversesTransactionID: tx.ReversesTransactionID,
	}
}

// ChartOfAccountsInitializedEvent is published once a template has been applied to a tenant
type ChartOfAccountsInitializedEvent struct {
	shared.BaseDomainEvent
	TemplateName string `json:"template_name"`
	Jurisdiction string `json:"jurisdiction"`
	AccountCount int    `json:"account_count"`
}

// NewChartOfAccountsInitializedEvent creates a new ChartOfAccountsInitializedEvent.
// The aggregate id is the tenant itself since the chart has no row of its own.
func NewChartOfAccountsInitializedEvent(tenantID uuid.UUID, templateName, jurisdiction string, count int) *ChartOfAccountsInitializedEvent {
	return &ChartOfAccountsInitializedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChartOfAccountsInitialized, AggregateTypeChart, tenantID, tenantID),
		TemplateName:    templateName,
		Jurisdiction:    jurisdiction,
		AccountCount:    count,
	}
}
