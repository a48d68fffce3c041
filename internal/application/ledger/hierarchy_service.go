package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// HierarchyService answers tree queries over a tenant's chart and moves accounts within it
type HierarchyService struct {
	hooks
	accountRepo ledger.GLAccountRepository
	txScope     TransactionScope
}

// NewHierarchyService creates a new HierarchyService
func NewHierarchyService(
	accountRepo ledger.GLAccountRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *HierarchyService {
	return &HierarchyService{
		hooks:       newHooks(logger),
		accountRepo: accountRepo,
		txScope:     txScope,
	}
}

// GetTree returns the tenant's chart as a forest with computed balances.
// The tree is built from a single snapshot query.
func (s *HierarchyService) GetTree(ctx context.Context, tenantID uuid.UUID) ([]AccountTreeNode, error) {
	forest, err := s.buildForest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ToAccountTree(forest), nil
}

// GetFlattened returns the tenant's chart in depth-first order with each row's depth
func (s *HierarchyService) GetFlattened(ctx context.Context, tenantID uuid.UUID) ([]FlatAccountResponse, error) {
	forest, err := s.buildForest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	flat := ledger.Flatten(forest)
	out := make([]FlatAccountResponse, len(flat))
	for i, f := range flat {
		out[i] = FlatAccountResponse{
			AccountResponse: ToAccountResponse(f.Account),
			Depth:           f.Depth,
			BalanceCents:    f.Balance,
		}
	}
	return out, nil
}

// GetSubtree returns the tree rooted at one account
func (s *HierarchyService) GetSubtree(ctx context.Context, tenantID, rootID uuid.UUID) (*AccountTreeNode, error) {
	forest, err := s.buildForest(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	node := ledger.FindNode(forest, rootID)
	if node == nil {
		return nil, accountNotFound(rootID)
	}
	tree := ToAccountTree([]*ledger.AccountNode{node})
	return &tree[0], nil
}

func (s *HierarchyService) buildForest(ctx context.Context, tenantID uuid.UUID) ([]*ledger.AccountNode, error) {
	snapshot, err := s.accountRepo.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	forest, err := ledger.BuildTree(tenantID, snapshot)
	if err != nil {
		s.logger.Error("Chart hierarchy is corrupt",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}
	ledger.ComputeBalances(forest)
	return forest, nil
}

// ReparentAccount moves an account under a new parent, or makes it a root when
// req.ParentAccountID is nil. The move is checked against a fresh locked snapshot.
func (s *HierarchyService) ReparentAccount(ctx context.Context, tenantID, id uuid.UUID, req ReparentAccountRequest) (*AccountResponse, error) {
	var account *ledger.GLAccount
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts := repos.AccountRepo()
		snapshot, err := accounts.SnapshotForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		account = findAccount(snapshot, id)
		if account == nil {
			return accountNotFound(id)
		}
		if req.Version != nil && *req.Version != account.Version {
			return shared.NewConcurrencyError("STALE_ACCOUNT", "The account was modified by another request, reload and retry")
		}
		loaded := account.Version
		if err := moveAccount(snapshot, account, req.ParentAccountID); err != nil {
			return err
		}
		if account.Version == loaded {
			return nil
		}
		return accounts.SaveWithLock(ctx, account, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GL account moved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", id.String()))
	s.publishDomainEvents(ctx, account)

	response := ToAccountResponse(account)
	return &response, nil
}

// moveAccount validates and applies a parent change against the snapshot.
// Moving to the current parent is a no-op.
func moveAccount(snapshot []*ledger.GLAccount, account *ledger.GLAccount, newParentID *uuid.UUID) error {
	if sameParent(account.ParentAccountID, newParentID) {
		return nil
	}
	var parent *ledger.GLAccount
	if newParentID != nil {
		parent = findAccount(snapshot, *newParentID)
		if parent == nil {
			// Accounts of other tenants are never in the snapshot
			return shared.NewHierarchyError("PARENT_NOT_FOUND", "Parent account does not exist in this chart")
		}
	}
	if err := ledger.ValidateParent(snapshot, account, parent); err != nil {
		return err
	}
	return account.MoveTo(newParentID)
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
