package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLines(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("accepts a balanced transaction", func(t *testing.T) {
		err := ValidateLines([]PostingLine{
			{AccountID: a, Direction: SideDebit, AmountCents: 500},
			{AccountID: b, Direction: SideCredit, AmountCents: 500},
		})
		assert.NoError(t, err)
	})

	tests := []struct {
		name  string
		lines []PostingLine
		code  string
	}{
		{"empty", nil, "EMPTY_TRANSACTION"},
		{"unbalanced", []PostingLine{
			{AccountID: a, Direction: SideDebit, AmountCents: 500},
			{AccountID: b, Direction: SideCredit, AmountCents: 400},
		}, "UNBALANCED_TRANSACTION"},
		{"zero amount", []PostingLine{
			{AccountID: a, Direction: SideDebit, AmountCents: 0},
			{AccountID: b, Direction: SideCredit, AmountCents: 0},
		}, "INVALID_AMOUNT"},
		{"negative amount", []PostingLine{
			{AccountID: a, Direction: SideDebit, AmountCents: -5},
			{AccountID: b, Direction: SideCredit, AmountCents: -5},
		}, "INVALID_AMOUNT"},
		{"bad direction", []PostingLine{
			{AccountID: a, Direction: Side("sideways"), AmountCents: 5},
		}, "INVALID_DIRECTION"},
		{"missing account", []PostingLine{
			{Direction: SideDebit, AmountCents: 5},
		}, "INVALID_LINE"},
		{"overflow", []PostingLine{
			{AccountID: a, Direction: SideDebit, AmountCents: math.MaxInt64},
			{AccountID: a, Direction: SideDebit, AmountCents: 1},
			{AccountID: b, Direction: SideCredit, AmountCents: math.MaxInt64},
		}, "AMOUNT_OVERFLOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.lines)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestNewLedgerTransaction(t *testing.T) {
	tenantID := uuid.New()
	a, b := uuid.New(), uuid.New()
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tx, err := NewLedgerTransaction(tenantID, date, " RENT-001 ", "March rent", []PostingLine{
		{AccountID: a, Direction: SideDebit, AmountCents: 150000},
		{AccountID: b, Direction: SideCredit, AmountCents: 150000},
	})
	require.NoError(t, err)
	assert.Equal(t, "RENT-001", tx.Reference)
	assert.Equal(t, int64(150000), tx.TotalCents())
	assert.Equal(t, 1, tx.Lines[0].LineNumber)
	assert.Equal(t, 2, tx.Lines[1].LineNumber)
	assert.NotEqual(t, uuid.Nil, tx.Lines[0].ID)
	assert.False(t, tx.IsReversal())

	tx.MarkPosted()
	events := tx.GetDomainEvents()
	require.Len(t, events, 1)
	posted := events[0].(*LedgerTransactionPostedEvent)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, posted.AccountIDs)

	t.Run("reversal lines swap directions", func(t *testing.T) {
		rev := tx.ReversalLines()
		require.Len(t, rev, 2)
		assert.Equal(t, SideCredit, rev[0].Direction)
		assert.Equal(t, SideDebit, rev[1].Direction)
		assert.NoError(t, ValidateLines(rev))
	})

	t.Run("rejects unbalanced lines", func(t *testing.T) {
		_, err := NewLedgerTransaction(tenantID, date, "", "", []PostingLine{
			{AccountID: a, Direction: SideDebit, AmountCents: 500},
			{AccountID: b, Direction: SideCredit, AmountCents: 400},
		})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestAggregateByAccount(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	deltas := AggregateByAccount([]PostingLine{
		{AccountID: a, Direction: SideDebit, AmountCents: 300},
		{AccountID: b, Direction: SideCredit, AmountCents: 500},
		{AccountID: a, Direction: SideDebit, AmountCents: 200},
		{AccountID: a, Direction: SideCredit, AmountCents: 50},
		{AccountID: b, Direction: SideDebit, AmountCents: 50},
	})
	require.Len(t, deltas, 2)
	assert.True(t, deltas[0].AccountID.String() < deltas[1].AccountID.String())

	byID := map[uuid.UUID]AccountDelta{deltas[0].AccountID: deltas[0], deltas[1].AccountID: deltas[1]}
	assert.Equal(t, int64(500), byID[a].DebitCents)
	assert.Equal(t, int64(50), byID[a].CreditCents)
	assert.Equal(t, int64(450), byID[a].BalanceDelta(SideDebit))
	assert.Equal(t, int64(450), byID[b].BalanceDelta(SideCredit))
	assert.Equal(t, int64(-450), byID[b].BalanceDelta(SideDebit))
}

func TestCheckPostable(t *testing.T) {
	tenantID := uuid.New()

	a := newTestAccount(t, tenantID, "1000", AccountTypeAsset)
	assert.NoError(t, CheckPostable(a))

	h := newTestAccount(t, tenantID, "1100", AccountTypeAsset)
	h.IsHeaderAccount = true
	assert.True(t, errors.Is(CheckPostable(h), shared.ErrValidation))

	i := newTestAccount(t, tenantID, "1200", AccountTypeAsset)
	i.IsActive = false
	assert.True(t, errors.Is(CheckPostable(i), shared.ErrState))
}
