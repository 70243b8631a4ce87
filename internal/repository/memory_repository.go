package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rongwang/bookkeeper-server/internal/models"
)

// MemoryRepository implements the Repository interface with in-process maps.
// It backs tests and local development, where a PostgreSQL instance is not
// available. Change notifications are delivered asynchronously, matching the
// eventual-consistency contract of the real adapter.
type MemoryRepository struct {
	mu          sync.RWMutex
	accounts    []*models.Account // insertion order == creation order
	books       map[string]*models.Book
	users       map[string]*models.User
	activeBooks map[string]string          // owner id -> book id
	settings    map[string]json.RawMessage // owner id -> document
	subscribers map[int]memorySubscriber
	nextSubID   int
}

type memorySubscriber struct {
	ownerID  string
	onChange func()
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		books:       make(map[string]*models.Book),
		users:       make(map[string]*models.User),
		activeBooks: make(map[string]string),
		settings:    make(map[string]json.RawMessage),
		subscribers: make(map[int]memorySubscriber),
	}
}

// User repository methods
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// Account repository methods
func (r *MemoryRepository) ListAccounts(ctx context.Context, ownerID, bookID string) ([]models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Account
	for _, a := range r.accounts {
		if a.OwnerID == ownerID && a.BookID == bookID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CreateAccount(ctx context.Context, account *models.Account) (string, error) {
	r.mu.Lock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	copied := *account
	r.accounts = append(r.accounts, &copied)
	if book, ok := r.books[account.BookID]; ok {
		book.AccountCount++
	}

	r.mu.Unlock()
	r.notify(account.OwnerID)
	return account.ID, nil
}

func (r *MemoryRepository) UpdateAccount(ctx context.Context, id string, patch *models.AccountPatch) error {
	r.mu.Lock()

	target := r.findLocked(id)
	if target == nil {
		r.mu.Unlock()
		return ErrNotFound
	}

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

	ownerID := target.OwnerID
	r.mu.Unlock()
	r.notify(ownerID)
	return nil
}

func (r *MemoryRepository) DeleteAccount(ctx context.Context, id string) error {
	r.mu.Lock()

	for i, a := range r.accounts {
		if a.ID == id {
			r.accounts = append(r.accounts[:i], r.accounts[i+1:]...)
			if book, ok := r.books[a.BookID]; ok {
				book.AccountCount--
			}
			ownerID := a.OwnerID
			r.mu.Unlock()
			r.notify(ownerID)
			return nil
		}
	}

	r.mu.Unlock()
	return ErrNotFound
}

func (r *MemoryRepository) DeleteAccountsByBook(ctx context.Context, ownerID, bookID string) error {
	r.mu.Lock()

	kept := r.accounts[:0]
	for _, a := range r.accounts {
		if a.OwnerID == ownerID && a.BookID == bookID {
			continue
		}
		kept = append(kept, a)
	}
	r.accounts = kept
	if book, ok := r.books[bookID]; ok {
		book.AccountCount = 0
	}

	r.mu.Unlock()
	r.notify(ownerID)
	return nil
}

// Book repository methods
func (r *MemoryRepository) CreateBook(ctx context.Context, book *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}

	copied := *book
	r.books[book.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[bookID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *MemoryRepository) ListBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Book
	for _, b := range r.books {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	// Map iteration order is random; present books oldest-first like the
	// SQL implementation.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *MemoryRepository) DeleteBook(ctx context.Context, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[bookID]
	if !ok {
		return ErrNotFound
	}

	kept := r.accounts[:0]
	for _, a := range r.accounts {
		if a.BookID == bookID {
			continue
		}
		kept = append(kept, a)
	}
	r.accounts = kept
	delete(r.books, b.ID)
	return nil
}

func (r *MemoryRepository) TouchBookExported(ctx context.Context, bookID string, when time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[bookID]
	if !ok {
		return ErrNotFound
	}
	exported := when
	b.LastExported = &exported
	return nil
}

func (r *MemoryRepository) GetActiveBook(ctx context.Context, ownerID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.activeBooks[ownerID], nil
}

func (r *MemoryRepository) SetActiveBook(ctx context.Context, ownerID, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activeBooks[ownerID] = bookID
	return nil
}

// Settings repository methods
func (r *MemoryRepository) GetSettings(ctx context.Context, ownerID string) (json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw, ok := r.settings[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

func (r *MemoryRepository) PutSettings(ctx context.Context, ownerID string, settings json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make(json.RawMessage, len(settings))
	copy(stored, settings)
	r.settings[ownerID] = stored
	return nil
}

// Subscribe registers a change callback for ownerID.
func (r *MemoryRepository) Subscribe(ownerID string, onChange func()) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = memorySubscriber{ownerID: ownerID, onChange: onChange}

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
	return cancel, nil
}

// notify fires subscriber callbacks for ownerID. Delivery is asynchronous so
// a mutation made while the engine holds its own lock cannot deadlock
// against the resynchronization the callback triggers.
func (r *MemoryRepository) notify(ownerID string) {
	r.mu.RLock()
	var callbacks []func()
	for _, sub := range r.subscribers {
		if sub.ownerID == ownerID {
			callbacks = append(callbacks, sub.onChange)
		}
	}
	r.mu.RUnlock()

	for _, cb := range callbacks {
		go cb()
	}
}

func (r *MemoryRepository) findLocked(id string) *models.Account {
	for _, a := range r.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}
