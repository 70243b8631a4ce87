// Package store holds the in-memory account tree for one owner's active
// book. It is a cache over the persistence adapter: every mutation is
// persisted first and applied to the tree only on success, and the whole
// tree is rebuilt from the adapter on change notifications. A coarse
// read-write lock makes each top-level operation atomic from the point of
// view of concurrent readers.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/rongwang/bookkeeper-server/internal/colors"
	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/repository"
)

// rootKey indexes top-level accounts in the byParent map.
const rootKey = ""

// maxTreeDepth bounds ancestor walks during cycle checks.
const maxTreeDepth = 64

// Store is the account tree for one (owner, book) pair.
type Store struct {
	mu       sync.RWMutex
	repo     repository.Repository
	ownerID  string
	bookID   string
	accounts []*models.Account            // creation order
	byID     map[string]*models.Account
	byParent map[string][]*models.Account // creation order per parent

	watchMu  sync.Mutex
	watchers []func()
}

// New creates an empty Store scoped to the given owner and book. Call Load
// before use.
func New(repo repository.Repository, ownerID, bookID string) *Store {
	return &Store{
		repo:     repo,
		ownerID:  ownerID,
		bookID:   bookID,
		byID:     make(map[string]*models.Account),
		byParent: make(map[string][]*models.Account),
	}
}

// Load fetches all accounts from the adapter and rebuilds the indexes. It is
// also the resynchronization path for change notifications.
func (s *Store) Load(ctx context.Context) error {
	listed, err := s.repo.ListAccounts(ctx, s.ownerID, s.bookID)
	if err != nil {
		return &PersistenceError{Op: "list", Err: err}
	}

	s.mu.Lock()
	s.accounts = s.accounts[:0]
	s.byID = make(map[string]*models.Account, len(listed))
	s.byParent = make(map[string][]*models.Account)
	for i := range listed {
		account := listed[i]
		s.indexLocked(&account)
	}
	s.mu.Unlock()

	s.notifyWatchers()
	return nil
}

// Watch registers fn to be called after every successful mutation or reload.
func (s *Store) Watch(fn func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) notifyWatchers() {
	s.watchMu.Lock()
	watchers := make([]func(), len(s.watchers))
	copy(watchers, s.watchers)
	s.watchMu.Unlock()

	for _, fn := range watchers {
		fn()
	}
}

// Create validates and persists a new account, then inserts it into the
// tree. The id and creation timestamp are assigned by the adapter. The
// caller-supplied color is kept as given; an empty color falls back to the
// default for the account type.
func (s *Store) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if strings.TrimSpace(account.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !account.AccountType.IsValid() {
		return nil, &ValidationError{Field: "accountType", Reason: "unrecognized type " + string(account.AccountType)}
	}
	if account.Color == "" {
		account.Color = colors.DefaultForType(account.AccountType)
	}
	account.OwnerID = s.ownerID
	account.BookID = s.bookID

	s.mu.Lock()

	if account.ParentID != nil {
		if _, ok := s.byID[*account.ParentID]; !ok {
			s.mu.Unlock()
			return nil, &NotFoundError{ID: *account.ParentID}
		}
	}

	id, err := s.repo.CreateAccount(ctx, account)
	if err != nil {
		s.mu.Unlock()
		return nil, &PersistenceError{Op: "create", ID: account.ID, Err: err}
	}
	account.ID = id

	created := *account
	s.indexLocked(&created)
	result := created
	s.mu.Unlock()

	s.notifyWatchers()
	return &result, nil
}

// Update applies a field-level patch, re-validating the no-cycle invariant
// on re-parenting. The patch is rejected before any adapter call when it
// would leave the account nameless, give it an unknown type, or make it its
// own ancestor.
func (s *Store) Update(ctx context.Context, id string, patch *models.AccountPatch) (*models.Account, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.AccountType != nil && !patch.AccountType.IsValid() {
		return nil, &ValidationError{Field: "accountType", Reason: "unrecognized type " + string(*patch.AccountType)}
	}

	s.mu.Lock()

	target, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}

	if patch.ParentID != nil && *patch.ParentID != nil {
		newParentID := **patch.ParentID
		if _, ok := s.byID[newParentID]; !ok {
			s.mu.Unlock()
			return nil, &NotFoundError{ID: newParentID}
		}
		if s.wouldCycleLocked(id, newParentID) {
			s.mu.Unlock()
			return nil, &CycleError{ID: id, NewParentID: newParentID}
		}
	}

	// A type change re-derives the color unless the patch overrides it.
	if patch.AccountType != nil && *patch.AccountType != target.AccountType && patch.Color == nil {
		derived := colors.DefaultForType(*patch.AccountType)
		patch.Color = &derived
	}

	if err := s.repo.UpdateAccount(ctx, id, patch); err != nil {
		s.mu.Unlock()
		if err == repository.ErrNotFound {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &PersistenceError{Op: "update", ID: id, Err: err}
	}

	oldParent := parentKey(target)
	applyPatch(target, patch)
	if parentKey(target) != oldParent {
		s.reindexParentLocked(target, oldParent)
	}

	result := *target
	s.mu.Unlock()

	s.notifyWatchers()
	return &result, nil
}

// Reparent moves an account under a new parent (nil for top-level). It is a
// thin wrapper over Update and therefore enforces the cycle check.
func (s *Store) Reparent(ctx context.Context, id string, newParentID *string) (*models.Account, error) {
	return s.Update(ctx, id, &models.AccountPatch{ParentID: &newParentID})
}

// ToggleFavorite flips the favorite flag and persists the change.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (*models.Account, error) {
	s.mu.Lock()

	target, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}

	flipped := !target.Favorite
	patch := &models.AccountPatch{Favorite: &flipped}
	if err := s.repo.UpdateAccount(ctx, id, patch); err != nil {
		s.mu.Unlock()
		if err == repository.ErrNotFound {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &PersistenceError{Op: "update", ID: id, Err: err}
	}

	target.Favorite = flipped
	result := *target
	s.mu.Unlock()

	s.notifyWatchers()
	return &result, nil
}

// Get returns a copy of the account with the given id, or nil.
func (s *Store) Get(id string) *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return nil
	}
	copied := *account
	return &copied
}

// Lookup resolves an id to an account for the color resolver and the
// navigation machine. Same as Get; named for use as a lookup callback.
func (s *Store) Lookup(id string) *models.Account {
	return s.Get(id)
}

// Children returns the direct sub-accounts of parentID in creation order.
func (s *Store) Children(parentID string) []*models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.byParent[parentID])
}

// Roots returns the top-level accounts in creation order.
func (s *Store) Roots() []*models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.byParent[rootKey])
}

// Favorites returns every account flagged favorite, at any depth.
func (s *Store) Favorites() []*models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, account := range s.accounts {
		if account.Favorite {
			copied := *account
			out = append(out, &copied)
		}
	}
	return out
}

// All returns every account in creation order.
func (s *Store) All() []*models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.accounts)
}

// TopLevelColor resolves the inherited display color of the account's
// top-level ancestor.
func (s *Store) TopLevelColor(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return colors.Fallback
	}
	return colors.TopLevel(account, func(parentID string) *models.Account {
		return s.byID[parentID]
	})
}

// wouldCycleLocked reports whether attaching id under newParentID would make
// id its own ancestor. The walk is depth-bounded.
func (s *Store) wouldCycleLocked(id, newParentID string) bool {
	if id == newParentID {
		return true
	}
	current := s.byID[newParentID]
	for depth := 0; current != nil && current.ParentID != nil; depth++ {
		if depth >= maxTreeDepth {
			return true // broken invariant, fail closed
		}
		if *current.ParentID == id {
			return true
		}
		current = s.byID[*current.ParentID]
	}
	return false
}

func (s *Store) indexLocked(account *models.Account) {
	s.accounts = append(s.accounts, account)
	s.byID[account.ID] = account
	key := parentKey(account)
	s.byParent[key] = append(s.byParent[key], account)
}

func (s *Store) reindexParentLocked(account *models.Account, oldParent string) {
	siblings := s.byParent[oldParent]
	for i, sibling := range siblings {
		if sibling.ID == account.ID {
			s.byParent[oldParent] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	key := parentKey(account)
	s.byParent[key] = append(s.byParent[key], account)
}

// removeLocked drops the given ids from every index.
func (s *Store) removeLocked(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := s.accounts[:0]
	for _, account := range s.accounts {
		if drop[account.ID] {
			delete(s.byID, account.ID)
			continue
		}
		kept = append(kept, account)
	}
	s.accounts = kept

	s.byParent = make(map[string][]*models.Account, len(s.accounts))
	for _, account := range s.accounts {
		key := parentKey(account)
		s.byParent[key] = append(s.byParent[key], account)
	}
}

func applyPatch(target *models.Account, patch *models.AccountPatch) {
	if patch.Name != nil {
		target.Name = *patch.Name
	}
	if patch.Description != nil {
		target.Description = *patch.Description
	}
	if patch.ParentID != nil {
		target.ParentID = *patch.ParentID
	}
	if patch.AccountType != nil {
		target.AccountType = *patch.AccountType
	}
	if patch.Currency != nil {
		target.Currency = *patch.Currency
	}
	if patch.Color != nil {
		target.Color = *patch.Color
	}
	if patch.Notes != nil {
		target.Notes = *patch.Notes
	}
	if patch.Placeholder != nil {
		target.Placeholder = *patch.Placeholder
	}
	if patch.Hidden != nil {
		target.Hidden = *patch.Hidden
	}
	if patch.Favorite != nil {
		target.Favorite = *patch.Favorite
	}
	if patch.Balance != nil {
		target.Balance = *patch.Balance
	}
}

func parentKey(account *models.Account) string {
	if account.ParentID == nil {
		return rootKey
	}
	return *account.ParentID
}

func cloneAll(accounts []*models.Account) []*models.Account {
	if len(accounts) == 0 {
		return nil
	}
	out := make([]*models.Account, len(accounts))
	for i, account := range accounts {
		copied := *account
		out[i] = &copied
	}
	return out
}
