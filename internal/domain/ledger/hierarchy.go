package ledger

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/shared"
)

// AccountNode is a GL account positioned in the chart hierarchy
type AccountNode struct {
	Account  *GLAccount
	Children []*AccountNode
	Depth    int
	// Balance is the computed balance in the account's normal direction.
	// It is filled by ComputeBalances and is zero until then.
	Balance int64
}

// FlatAccount is one row of a flattened chart, in depth-first pre-order
type FlatAccount struct {
	Account *GLAccount
	Depth   int
	Balance int64
}

// BuildTree arranges a snapshot of one tenant's accounts into a forest.
// Every level is ordered by account number. A parent reference that is not in the
// snapshot, an account of another tenant, or a cycle fails with a HierarchyError.
func BuildTree(tenantID uuid.UUID, accounts []*GLAccount) ([]*AccountNode, error) {
	byID := make(map[uuid.UUID]*GLAccount, len(accounts))
	for _, a := range accounts {
		if a.TenantID != tenantID {
			return nil, shared.NewHierarchyError("CROSS_TENANT_ACCOUNT",
				fmt.Sprintf("Account %s does not belong to tenant %s", a.AccountNumber, tenantID))
		}
		if _, dup := byID[a.ID]; dup {
			return nil, shared.NewHierarchyError("DUPLICATE_ACCOUNT", fmt.Sprintf("Account %s appears twice", a.ID))
		}
		byID[a.ID] = a
	}

	// Pass 1: group by parent
	children := make(map[uuid.UUID][]*GLAccount, len(accounts))
	var roots []*GLAccount
	for _, a := range accounts {
		if a.ParentAccountID == nil {
			roots = append(roots, a)
			continue
		}
		if _, ok := byID[*a.ParentAccountID]; !ok {
			return nil, shared.NewHierarchyError("PARENT_NOT_IN_CHART",
				fmt.Sprintf("Parent of account %s is not part of this chart", a.AccountNumber))
		}
		children[*a.ParentAccountID] = append(children[*a.ParentAccountID], a)
	}

	// Pass 2: walk every ancestor chain
	acyclic := make(map[uuid.UUID]bool, len(accounts))
	for _, a := range accounts {
		if err := checkAncestorChain(a, byID, acyclic); err != nil {
			return nil, err
		}
	}

	sortByNumber(roots)
	forest := make([]*AccountNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, buildNode(r, children, 0))
	}
	return forest, nil
}

// checkAncestorChain follows parent links from a until it reaches a root or an account
// already known to be acyclic. Reaching any account twice means a cycle.
func checkAncestorChain(a *GLAccount, byID map[uuid.UUID]*GLAccount, acyclic map[uuid.UUID]bool) error {
	visited := make(map[uuid.UUID]bool)
	path := make([]uuid.UUID, 0, 8)
	cur := a
	for cur != nil && !acyclic[cur.ID] {
		if visited[cur.ID] {
			return shared.NewHierarchyError("CYCLE_DETECTED",
				fmt.Sprintf("Account %s is its own ancestor", cur.AccountNumber))
		}
		visited[cur.ID] = true
		path = append(path, cur.ID)
		if cur.ParentAccountID == nil {
			break
		}
		cur = byID[*cur.ParentAccountID]
	}
	for _, id := range path {
		acyclic[id] = true
	}
	return nil
}

func buildNode(a *GLAccount, children map[uuid.UUID][]*GLAccount, depth int) *AccountNode {
	node := &AccountNode{Account: a, Depth: depth}
	kids := children[a.ID]
	sortByNumber(kids)
	node.Children = make([]*AccountNode, 0, len(kids))
	for _, k := range kids {
		node.Children = append(node.Children, buildNode(k, children, depth+1))
	}
	return node
}

func sortByNumber(accounts []*GLAccount) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].AccountNumber == accounts[j].AccountNumber {
			return accounts[i].ID.String() < accounts[j].ID.String()
		}
		return accounts[i].AccountNumber < accounts[j].AccountNumber
	})
}

// ComputeHeaderBalance folds the stored balances of all posting accounts in the subtree
// rooted at node. A header's own stored balance is never read. Each descendant's
// balance is converted to node's normal-balance direction, so a contra account
// reduces its header's total.
func ComputeHeaderBalance(node *AccountNode) int64 {
	return foldBalance(node, false)
}

// ComputeBalances fills Balance on every node of the forest
func ComputeBalances(forest []*AccountNode) {
	for _, n := range forest {
		foldBalance(n, true)
	}
}

func foldBalance(node *AccountNode, assign bool) int64 {
	var total int64
	if node.Account.IsPostingAccount() {
		total = node.Account.CurrentBalanceCents
	}
	for _, child := range node.Children {
		v := foldBalance(child, assign)
		if child.Account.NormalBalance != node.Account.NormalBalance {
			v = -v
		}
		total += v
	}
	if assign {
		node.Balance = total
	}
	return total
}

// Flatten returns the forest in depth-first pre-order, each row annotated with its depth
func Flatten(forest []*AccountNode) []FlatAccount {
	var out []FlatAccount
	var walk func(nodes []*AccountNode)
	walk = func(nodes []*AccountNode) {
		for _, n := range nodes {
			out = append(out, FlatAccount{Account: n.Account, Depth: n.Depth, Balance: n.Balance})
			walk(n.Children)
		}
	}
	walk(forest)
	return out
}

// FindNode returns the node for id anywhere in the forest, or nil
func FindNode(forest []*AccountNode, id uuid.UUID) *AccountNode {
	for _, n := range forest {
		if n.Account.ID == id {
			return n
		}
		if found := FindNode(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// IsDescendant reports whether candidate lies below ancestorID in the snapshot.
// A broken chain in the snapshot stops the walk.
func IsDescendant(accounts []*GLAccount, ancestorID, candidateID uuid.UUID) bool {
	byID := make(map[uuid.UUID]*GLAccount, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return isDescendant(byID, ancestorID, candidateID)
}

func isDescendant(byID map[uuid.UUID]*GLAccount, ancestorID, candidateID uuid.UUID) bool {
	visited := make(map[uuid.UUID]bool)
	cur, ok := byID[candidateID]
	for ok && cur.ParentAccountID != nil && !visited[cur.ID] {
		visited[cur.ID] = true
		if *cur.ParentAccountID == ancestorID {
			return true
		}
		cur, ok = byID[*cur.ParentAccountID]
	}
	return false
}

// ValidateParent checks that parent may hold account in the chart described by the snapshot.
// A nil parent makes account a root and is always allowed.
func ValidateParent(accounts []*GLAccount, account *GLAccount, parent *GLAccount) error {
	if parent == nil {
		return nil
	}
	if parent.TenantID != account.TenantID {
		return shared.NewHierarchyError("CROSS_TENANT_PARENT", "Parent account belongs to another tenant")
	}
	if parent.ID == account.ID {
		return shared.NewHierarchyError("SELF_PARENT", "An account cannot be its own parent")
	}
	if !parent.IsHeaderAccount {
		return shared.NewHierarchyError("PARENT_NOT_HEADER",
			fmt.Sprintf("Parent account %s is a posting account; only header accounts may have children", parent.AccountNumber))
	}
	if IsDescendant(accounts, account.ID, parent.ID) {
		return shared.NewHierarchyError("MOVE_UNDER_DESCENDANT",
			fmt.Sprintf("Account %s cannot be moved under its own descendant %s", account.AccountNumber, parent.AccountNumber))
	}
	return nil
}

// CountActiveDescendants counts active accounts anywhere below id in the snapshot
func CountActiveDescendants(accounts []*GLAccount, id uuid.UUID) int {
	byID := make(map[uuid.UUID]*GLAccount, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	count := 0
	for _, a := range accounts {
		if a.ID != id && a.IsActive && isDescendant(byID, id, a.ID) {
			count++
		}
	}
	return count
}

// HasChildren reports whether any account in the snapshot has id as its direct parent
func HasChildren(accounts []*GLAccount, id uuid.UUID) bool {
	for _, a := range accounts {
		if a.ParentAccountID != nil && *a.ParentAccountID == id {
			return true
		}
	}
	return false
}
