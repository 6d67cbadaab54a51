// Package hierarchy computes display balances for parent-indexed forests
// of accounts or categories. Group nodes hold no balance of their own —
// their displayed balance is the recursive sum of their descendants.
package hierarchy

import "github.com/lmoreira/fintrack-api/internal/domain"

// Node is the shape shared by accounts and categories: an id, an optional
// parent reference, a group flag, a stored balance (meaningful for leaves
// only) and a type discriminator (asset/liability or income/expense).
type Node interface {
	NodeID() string
	NodeParentID() string
	NodeIsGroup() bool
	NodeBalance() float64
	NodeType() string
}

// Row is one entry of a rendered tree: the node, its computed balance and
// its indentation level.
type Row[N Node] struct {
	Node    N
	Balance float64
	Level   int
}

// index is a parentID -> children adjacency map plus an id lookup, built
// once per call to avoid re-filtering the node slice at every recursion
// level. Sibling order follows the input slice.
type index[N Node] struct {
	byID     map[string]N
	children map[string][]N
}

func buildIndex[N Node](nodes []N) *index[N] {
	idx := &index[N]{
		byID:     make(map[string]N, len(nodes)),
		children: make(map[string][]N),
	}
	for _, n := range nodes {
		idx.byID[n.NodeID()] = n
		idx.children[n.NodeParentID()] = append(idx.children[n.NodeParentID()], n)
	}
	return idx
}

// ComputeBalance returns the display balance of the node with the given
// id: the stored balance for a leaf, the recursive sum of all descendant
// leaves for a group. A group with no children sums to zero.
//
// The upstream store is supposed to keep the forest acyclic, but that is
// an assumption, not a guarantee — a visited set turns a cycle into
// ErrCycleDetected instead of unbounded recursion.
func ComputeBalance[N Node](nodes []N, id string) (float64, error) {
	idx := buildIndex(nodes)
	node, ok := idx.byID[id]
	if !ok {
		return 0, &domain.ErrNotFound{Resource: "node", ID: id}
	}
	return computeBalance(idx, node, make(map[string]bool))
}

func computeBalance[N Node](idx *index[N], node N, visited map[string]bool) (float64, error) {
	id := node.NodeID()
	if visited[id] {
		return 0, &domain.ErrCycleDetected{NodeID: id}
	}
	visited[id] = true

	if !node.NodeIsGroup() {
		return node.NodeBalance(), nil
	}

	total := 0.0
	for _, child := range idx.children[id] {
		sub, err := computeBalance(idx, child, visited)
		if err != nil {
			return 0, err
		}
		total += sub
	}
	return total, nil
}

// RenderTree produces a depth-first, pre-order traversal of the forest
// rooted at the children of parentID (pass "" for the root pass), with a
// computed balance and indentation level per row.
//
// When showZero is false, rows whose computed balance is exactly zero are
// filtered out. Filtering is per-node, not subtree-pruning: a hidden
// node's descendants are still visited and shown on their own merits.
func RenderTree[N Node](nodes []N, parentID string, showZero bool) ([]Row[N], error) {
	idx := buildIndex(nodes)
	var rows []Row[N]
	if err := renderTree(idx, parentID, 0, showZero, make(map[string]bool), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func renderTree[N Node](idx *index[N], parentID string, level int, showZero bool, visited map[string]bool, rows *[]Row[N]) error {
	for _, node := range idx.children[parentID] {
		id := node.NodeID()
		if visited[id] {
			return &domain.ErrCycleDetected{NodeID: id}
		}
		visited[id] = true

		balance, err := computeBalance(idx, node, make(map[string]bool))
		if err != nil {
			return err
		}

		if showZero || balance != 0 {
			*rows = append(*rows, Row[N]{Node: node, Balance: balance, Level: level})
		}

		if err := renderTree(idx, id, level+1, showZero, visited, rows); err != nil {
			return err
		}
	}
	return nil
}
