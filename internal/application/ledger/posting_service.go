package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/propmgr/ledger/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PostingService posts balanced transactions to the ledger.
// Every balance change is a relative increment issued inside one store transaction;
// the service never writes a balance it has read.
type PostingService struct {
	hooks
	txScope         TransactionScope
	transactionRepo ledger.LedgerTransactionRepository
	maxLines        int
}

// NewPostingService creates a new PostingService
func NewPostingService(
	txScope TransactionScope,
	transactionRepo ledger.LedgerTransactionRepository,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		hooks:           newHooks(logger),
		txScope:         txScope,
		transactionRepo: transactionRepo,
	}
}

// SetMaxLines limits the number of lines per transaction; zero means unlimited
func (s *PostingService) SetMaxLines(n int) {
	s.maxLines = n
}

// Post validates and commits a transaction.
// Nothing is written unless every line can be applied. Re-submitting the same request
// posts it again.
func (s *PostingService) Post(ctx context.Context, tenantID uuid.UUID, req PostTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrLineCount, len(req.Lines),
	)

	if err := validateRequest(req); err != nil {
		return nil, s.reject(ctx, span, tenantID, err)
	}
	if s.maxLines > 0 && len(req.Lines) > s.maxLines {
		return nil, s.reject(ctx, span, tenantID, shared.NewValidationError("TOO_MANY_LINES",
			fmt.Sprintf("A transaction may have at most %d lines", s.maxLines)))
	}

	tx, err := ledger.NewLedgerTransaction(tenantID, req.TransactionDate, req.Reference, req.Memo, req.domainLines())
	if err != nil {
		return nil, s.reject(ctx, span, tenantID, err)
	}
	if req.CreatedBy != nil {
		tx.SetCreatedBy(*req.CreatedBy)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return applyTransaction(ctx, repos, tx)
	})
	if err != nil {
		return nil, s.reject(ctx, span, tenantID, err)
	}

	s.committed(ctx, span, tx)
	response := ToTransactionResponse(tx)
	return &response, nil
}

// Reverse posts a transaction that undoes a committed one.
// A transaction can be reversed only once.
func (s *PostingService) Reverse(ctx context.Context, tenantID, transactionID uuid.UUID, req ReverseTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "reverse")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		"reversed_transaction_id", transactionID.String(),
	)

	if err := validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var reversal *ledger.LedgerTransaction
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		journal := repos.TransactionRepo()
		original, err := journal.FindByIDForTenant(ctx, tenantID, transactionID)
		if err != nil {
			if isNotFound(err) {
				return shared.NewNotFoundError("TRANSACTION_NOT_FOUND", fmt.Sprintf("Transaction %s not found", transactionID))
			}
			return err
		}
		reversed, err := journal.ExistsReversalOf(ctx, tenantID, transactionID)
		if err != nil {
			return err
		}
		if reversed {
			return shared.NewStateError("ALREADY_REVERSED", fmt.Sprintf("Transaction %s has already been reversed", transactionID))
		}

		reference := req.Reference
		if reference == "" && original.Reference != "" {
			reference = "REV-" + original.Reference
		}
		memo := req.Memo
		if memo == "" {
			memo = fmt.Sprintf("Reversal of %s", transactionID)
		}
		reversal, err = ledger.NewLedgerTransaction(tenantID, req.TransactionDate, reference, memo, original.ReversalLines())
		if err != nil {
			return err
		}
		reversal.ReversesTransactionID = &original.ID
		if req.CreatedBy != nil {
			reversal.SetCreatedBy(*req.CreatedBy)
		}
		return applyTransaction(ctx, repos, reversal)
	})
	if err != nil {
		return nil, s.reject(ctx, span, tenantID, err)
	}

	s.committed(ctx, span, reversal)
	response := ToTransactionResponse(reversal)
	return &response, nil
}

// GetTransaction retrieves a committed transaction with its lines
func (s *PostingService) GetTransaction(ctx context.Context, tenantID, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.transactionRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToTransactionResponse(tx)
	return &response, nil
}

// ListTransactions lists committed transactions, newest first
func (s *PostingService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter TransactionListFilter) (*shared.Paginated[TransactionResponse], error) {
	if err := validateRequest(filter); err != nil {
		return nil, err
	}
	domainFilter := filter.toDomain()

	txs, err := s.transactionRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.transactionRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	items := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		items[i] = ToTransactionResponse(tx)
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// applyTransaction checks every referenced account before touching any of them, then
// applies one relative update per account and records the journal entry
func applyTransaction(ctx context.Context, repos TransactionalRepositories, tx *ledger.LedgerTransaction) error {
	deltas := ledger.AggregateByAccount(tx.Lines)
	ids := make([]uuid.UUID, len(deltas))
	for i, d := range deltas {
		ids[i] = d.AccountID
	}

	accounts, err := repos.AccountRepo().FindByIDsForTenant(ctx, tx.TenantID, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*ledger.GLAccount, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, d := range deltas {
		account, ok := byID[d.AccountID]
		if !ok {
			return shared.NewValidationError("ACCOUNT_NOT_FOUND",
				fmt.Sprintf("Account %s does not exist in this chart", d.AccountID))
		}
		if err := ledger.CheckPostable(account); err != nil {
			return err
		}
	}

	for _, d := range deltas {
		account := byID[d.AccountID]
		if err := repos.AccountRepo().ApplyDelta(ctx, tx.TenantID, d.AccountID,
			d.BalanceDelta(account.NormalBalance), d.DebitCents, d.CreditCents); err != nil {
			return err
		}
	}
	return repos.TransactionRepo().Create(ctx, tx)
}

func (s *PostingService) committed(ctx context.Context, span trace.Span, tx *ledger.LedgerTransaction) {
	tx.MarkPosted()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTransactionID, tx.ID.String(),
		telemetry.SpanAttrTotalCents, tx.TotalCents(),
	)
	s.logger.Info("Ledger transaction posted",
		zap.String("tenant_id", tx.TenantID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.Int("lines", len(tx.Lines)),
		zap.Int64("total_cents", tx.TotalCents()))
	s.metrics.RecordPosting(ctx, tx.TenantID, len(tx.Lines), tx.TotalCents(), tx.IsReversal())
	s.publishDomainEvents(ctx, tx)
}

// reject logs and counts a failed posting and returns err unchanged
func (s *PostingService) reject(ctx context.Context, span trace.Span, tenantID uuid.UUID, err error) error {
	telemetry.RecordError(span, err)
	reason := "internal"
	var de *shared.DomainError
	if errors.As(err, &de) {
		reason = de.Code
		if reason == "" {
			reason = string(de.Kind)
		}
	}
	s.logger.Warn("Ledger transaction rejected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reason", reason),
		zap.Error(err))
	s.metrics.RecordPostingRejected(ctx, tenantID, reason)
	return err
}
