package store

import (
	"context"
	"errors"

	"github.com/rongwang/bookkeeper-server/internal/models"
)

// maxCascadeDepth bounds the traversal of a recursive delete. Trees deeper
// than this indicate a broken invariant and abort before any deletion.
const maxCascadeDepth = 512

var errCascadeTooDeep = errors.New("cascade exceeds maximum tree depth")

// DeleteRecursive deletes the account and every transitive descendant, each
// node delegated to the adapter, children strictly before their parent so no
// observable state contains a dangling parent reference. On success it
// returns the removed ids. If any deletion fails the operation aborts and
// the error reports exactly which ids were removed and which were not; the
// removed ids are dropped from the tree, the rest stay.
func (s *Store) DeleteRecursive(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()

	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}

	order, err := s.deleteOrderLocked(id)
	if err != nil {
		s.mu.Unlock()
		return nil, &PartialCascadeError{Remaining: order, Err: err}
	}

	removed := make([]string, 0, len(order))
	for i, nodeID := range order {
		if err := s.repo.DeleteAccount(ctx, nodeID); err != nil {
			s.removeLocked(removed)
			s.mu.Unlock()
			s.notifyWatchers()
			return removed, &PartialCascadeError{
				Removed:   removed,
				Remaining: order[i:],
				Err:       err,
			}
		}
		removed = append(removed, nodeID)
	}

	s.removeLocked(removed)
	s.mu.Unlock()

	s.notifyWatchers()
	return removed, nil
}

// DeleteAll clears every account in the book with a single adapter call and
// empties the tree.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()

	if err := s.repo.DeleteAccountsByBook(ctx, s.ownerID, s.bookID); err != nil {
		s.mu.Unlock()
		return &PersistenceError{Op: "delete-all", Err: err}
	}

	s.accounts = nil
	s.byID = make(map[string]*models.Account)
	s.byParent = make(map[string][]*models.Account)
	s.mu.Unlock()

	s.notifyWatchers()
	return nil
}

// deleteOrderLocked returns the subtree rooted at id with every node after
// all of its descendants. The traversal is an explicit stack, not call-stack
// recursion, and is bounded by maxCascadeDepth.
func (s *Store) deleteOrderLocked(id string) ([]string, error) {
	type frame struct {
		id    string
		depth int
	}

	// Depth-first pre-order (parent before children), then reversed: in the
	// reversal every node follows all of its descendants.
	preOrder := make([]string, 0, 8)
	stack := []frame{{id: id}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth >= maxCascadeDepth {
			return preOrder, errCascadeTooDeep
		}
		preOrder = append(preOrder, top.id)
		for _, child := range s.byParent[top.id] {
			stack = append(stack, frame{id: child.ID, depth: top.depth + 1})
		}
	}

	order := make([]string, len(preOrder))
	for i, nodeID := range preOrder {
		order[len(preOrder)-1-i] = nodeID
	}
	return order, nil
}
