package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/navigation"
	"github.com/rongwang/bookkeeper-server/internal/store"
)

// Book operations
func (s *DefaultService) ListBooks(ctx context.Context, userID string) ([]*models.Book, string, error) {
	books, err := s.repo.ListBooks(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("error listing books: %w", err)
	}

	activeID, err := s.repo.GetActiveBook(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("error getting active book: %w", err)
	}

	out := make([]*models.Book, len(books))
	for i := range books {
		book := books[i]
		out[i] = &book
	}
	return out, activeID, nil
}

// CreateBook creates a new book. An empty name is auto-numbered after the
// existing books, mirroring the "New book" action in the books screen.
func (s *DefaultService) CreateBook(ctx context.Context, userID, name string) (*models.Book, error) {
	if name == "" {
		existing, err := s.repo.ListBooks(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("error listing books: %w", err)
		}
		name = fmt.Sprintf("Book %d", len(existing)+1)
	}

	book := &models.Book{
		OwnerID: userID,
		Name:    name,
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("error creating book: %w", err)
	}
	return book, nil
}

// DeleteBook removes a book and all of its accounts. The last remaining
// book cannot be deleted; deleting the active book activates the oldest
// remaining one.
func (s *DefaultService) DeleteBook(ctx context.Context, userID, bookID string) error {
	if err := s.checkBook(ctx, userID, bookID); err != nil {
		return err
	}

	books, err := s.repo.ListBooks(ctx, userID)
	if err != nil {
		return fmt.Errorf("error listing books: %w", err)
	}
	if len(books) <= 1 {
		return ErrLastBook
	}

	if err := s.repo.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("error deleting book: %w", err)
	}

	s.dropStore(userID, bookID)

	activeID, err := s.repo.GetActiveBook(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting active book: %w", err)
	}
	if activeID == bookID {
		for _, book := range books {
			if book.ID != bookID {
				if err := s.repo.SetActiveBook(ctx, userID, book.ID); err != nil {
					return fmt.Errorf("error switching active book: %w", err)
				}
				break
			}
		}
	}
	return nil
}

// ActivateBook switches the user's active book. Navigation resets to the
// list because the previous drill-down context belongs to the old book.
func (s *DefaultService) ActivateBook(ctx context.Context, userID, bookID string) error {
	if err := s.checkBook(ctx, userID, bookID); err != nil {
		return err
	}
	if err := s.repo.SetActiveBook(ctx, userID, bookID); err != nil {
		return fmt.Errorf("error setting active book: %w", err)
	}

	m := s.machineFor(userID)
	m.Dispatch(navigation.CloseSettings{})
	m.Dispatch(navigation.Deleted{AccountIDs: []string{m.Current().AccountID}})
	return nil
}

// ExportBook stamps the book's last-exported time.
func (s *DefaultService) ExportBook(ctx context.Context, userID, bookID string) (*models.Book, error) {
	if err := s.checkBook(ctx, userID, bookID); err != nil {
		return nil, err
	}

	if err := s.repo.TouchBookExported(ctx, bookID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("error stamping export: %w", err)
	}

	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("error getting book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// Settings passthrough: the engine stores and returns the document without
// interpreting it.
func (s *DefaultService) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	raw, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	return raw, nil
}

func (s *DefaultService) PutSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	if !json.Valid(settings) {
		return &store.ValidationError{Field: "settings", Reason: "not valid JSON"}
	}
	if err := s.repo.PutSettings(ctx, userID, settings); err != nil {
		return fmt.Errorf("error storing settings: %w", err)
	}
	return nil
}

// dropStore evicts a book's store and cancels its subscription.
func (s *DefaultService) dropStore(userID, bookID string) {
	key := userID + "/" + bookID

	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancels[key]; ok {
		cancel()
		delete(s.cancels, key)
	}
	delete(s.stores, key)
}
