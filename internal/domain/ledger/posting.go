package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
)

const maxReferenceLength = 100

// PostingLine is one debit or credit of a ledger transaction
type PostingLine struct {
	ID          uuid.UUID
	LineNumber  int
	AccountID   uuid.UUID
	Direction   Side
	AmountCents int64
	Memo        string
}

// LedgerTransaction is a balanced set of posting lines committed as one unit.
// Once committed it is never mutated; corrections are posted as reversing transactions.
type LedgerTransaction struct {
	shared.TenantAggregateRoot
	TransactionDate       time.Time
	Reference             string
	Memo                  string
	ReversesTransactionID *uuid.UUID
	Lines                 []PostingLine
}

// NewLedgerTransaction validates lines and builds an uncommitted transaction
func NewLedgerTransaction(tenantID uuid.UUID, date time.Time, reference, memo string, lines []PostingLine) (*LedgerTransaction, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID is required")
	}
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > maxReferenceLength {
		return nil, shared.NewValidationError("INVALID_REFERENCE", fmt.Sprintf("Reference cannot exceed %d characters", maxReferenceLength))
	}
	if date.IsZero() {
		date = time.Now()
	}

	tx := &LedgerTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TransactionDate:     date,
		Reference:           reference,
		Memo:                memo,
		Lines:               make([]PostingLine, len(lines)),
	}
	for i, l := range lines {
		l.ID = uuid.New()
		l.LineNumber = i + 1
		tx.Lines[i] = l
	}
	return tx, nil
}

// ValidateLines checks the pure preconditions of a posting: at least one line, every
// amount positive, a valid direction on every line and debits equal to credits
func ValidateLines(lines []PostingLine) error {
	if len(lines) == 0 {
		return shared.NewValidationError("EMPTY_TRANSACTION", "A transaction must have at least one line")
	}
	var debits, credits int64
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return shared.NewValidationError("INVALID_LINE", fmt.Sprintf("Line %d has no account", i+1))
		}
		if !l.Direction.IsValid() {
			return shared.NewValidationError("INVALID_DIRECTION",
				fmt.Sprintf("Line %d direction must be debit or credit, got %q", i+1, l.Direction))
		}
		if l.AmountCents <= 0 {
			return shared.NewValidationError("INVALID_AMOUNT",
				fmt.Sprintf("Line %d amount must be positive, got %d", i+1, l.AmountCents))
		}
		var err error
		if l.Direction == SideDebit {
			debits, err = addCents(debits, l.AmountCents)
		} else {
			credits, err = addCents(credits, l.AmountCents)
		}
		if err != nil {
			return err
		}
	}
	if debits != credits {
		return shared.NewValidationError("UNBALANCED_TRANSACTION",
			fmt.Sprintf("Debits (%d) must equal credits (%d)", debits, credits))
	}
	return nil
}

func addCents(sum, amount int64) (int64, error) {
	if sum > math.MaxInt64-amount {
		return 0, shared.NewValidationError("AMOUNT_OVERFLOW", "Transaction total exceeds the representable range")
	}
	return sum + amount, nil
}

// TotalCents returns the sum of the debit side
func (t *LedgerTransaction) TotalCents() int64 {
	var total int64
	for _, l := range t.Lines {
		if l.Direction == SideDebit {
			total += l.AmountCents
		}
	}
	return total
}

// IsReversal reports whether this transaction reverses another one
func (t *LedgerTransaction) IsReversal() bool {
	return t.ReversesTransactionID != nil
}

// ReversalLines mirrors the lines with every direction swapped
func (t *LedgerTransaction) ReversalLines() []PostingLine {
	out := make([]PostingLine, len(t.Lines))
	for i, l := range t.Lines {
		out[i] = PostingLine{
			AccountID:   l.AccountID,
			Direction:   l.Direction.Opposite(),
			AmountCents: l.AmountCents,
			Memo:        l.Memo,
		}
	}
	return out
}

// MarkPosted records the committed-transaction event
func (t *LedgerTransaction) MarkPosted() {
	t.AddDomainEvent(NewLedgerTransactionPostedEvent(t))
}

// AccountDelta is the net effect of a transaction on one account
type AccountDelta struct {
	AccountID   uuid.UUID
	DebitCents  int64
	CreditCents int64
}

// BalanceDelta returns the change to an account's normal-oriented balance
func (d AccountDelta) BalanceDelta(normal Side) int64 {
	return SignedDelta(normal, SideDebit, d.DebitCents) + SignedDelta(normal, SideCredit, d.CreditCents)
}

// AggregateByAccount folds lines into one delta per account, ordered by account id so
// that concurrent postings touch rows in the same order
func AggregateByAccount(lines []PostingLine) []AccountDelta {
	byAccount := make(map[uuid.UUID]*AccountDelta)
	for _, l := range lines {
		d, ok := byAccount[l.AccountID]
		if !ok {
			d = &AccountDelta{AccountID: l.AccountID}
			byAccount[l.AccountID] = d
		}
		if l.Direction == SideDebit {
			d.DebitCents += l.AmountCents
		} else {
			d.CreditCents += l.AmountCents
		}
	}
	out := make([]AccountDelta, 0, len(byAccount))
	for _, d := range byAccount {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AccountID.String() < out[j].AccountID.String()
	})
	return out
}

// CheckPostable verifies that account may receive a direct posting
func CheckPostable(account *GLAccount) error {
	if !account.IsActive {
		return shared.NewStateError("ACCOUNT_INACTIVE", fmt.Sprintf("Account %s is inactive", account.AccountNumber))
	}
	if account.IsHeaderAccount {
		return shared.NewValidationError("HEADER_ACCOUNT_POSTING",
			fmt.Sprintf("Account %s is a header account and cannot receive postings", account.AccountNumber))
	}
	return nil
}
