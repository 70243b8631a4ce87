package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBook(t *testing.T, r *MemoryRepository, ownerID string) *models.Book {
	t.Helper()

	book := &models.Book{OwnerID: ownerID, Name: "Book 1"}
	require.NoError(t, r.CreateBook(context.Background(), book))
	return book
}

func TestAccountCRUDAndCounters(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	book := seedBook(t, r, "owner")

	id, err := r.CreateAccount(ctx, &models.Account{
		OwnerID:     "owner",
		BookID:      book.ID,
		Name:        "Assets",
		AccountType: models.AccountTypeAsset,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := r.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccountCount)

	// Patch a couple of fields; untouched fields survive
	name := "All Assets"
	fav := true
	require.NoError(t, r.UpdateAccount(ctx, id, &models.AccountPatch{Name: &name, Favorite: &fav}))

	listed, err := r.ListAccounts(ctx, "owner", book.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "All Assets", listed[0].Name)
	assert.True(t, listed[0].Favorite)
	assert.Equal(t, models.AccountTypeAsset, listed[0].AccountType)

	// Pointer-to-nil parent clears the parent
	var top *string
	require.NoError(t, r.UpdateAccount(ctx, id, &models.AccountPatch{ParentID: &top}))

	// Delete decrements the counter
	require.NoError(t, r.DeleteAccount(ctx, id))
	got, err = r.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AccountCount)

	assert.ErrorIs(t, r.UpdateAccount(ctx, id, &models.AccountPatch{Name: &name}), ErrNotFound)
	assert.ErrorIs(t, r.DeleteAccount(ctx, id), ErrNotFound)
}

func TestListAccountsScoping(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	mine := seedBook(t, r, "owner")
	theirs := seedBook(t, r, "other")

	_, err := r.CreateAccount(ctx, &models.Account{OwnerID: "owner", BookID: mine.ID, Name: "A", AccountType: models.AccountTypeAsset})
	require.NoError(t, err)
	_, err = r.CreateAccount(ctx, &models.Account{OwnerID: "other", BookID: theirs.ID, Name: "B", AccountType: models.AccountTypeAsset})
	require.NoError(t, err)

	listed, err := r.ListAccounts(ctx, "owner", mine.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "A", listed[0].Name)

	listed, err = r.ListAccounts(ctx, "owner", theirs.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteBookRemovesAccounts(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	book := seedBook(t, r, "owner")
	keep := seedBook(t, r, "owner")

	_, err := r.CreateAccount(ctx, &models.Account{OwnerID: "owner", BookID: book.ID, Name: "A", AccountType: models.AccountTypeAsset})
	require.NoError(t, err)
	_, err = r.CreateAccount(ctx, &models.Account{OwnerID: "owner", BookID: keep.ID, Name: "B", AccountType: models.AccountTypeAsset})
	require.NoError(t, err)

	require.NoError(t, r.DeleteBook(ctx, book.ID))

	books, err := r.ListBooks(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, keep.ID, books[0].ID)

	listed, err := r.ListAccounts(ctx, "owner", book.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	listed, err = r.ListAccounts(ctx, "owner", keep.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestActiveBookAndSettings(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	book := seedBook(t, r, "owner")

	// Unset active book reads as empty, not an error
	active, err := r.GetActiveBook(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, r.SetActiveBook(ctx, "owner", book.ID))
	active, err = r.GetActiveBook(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, book.ID, active)

	// Settings round-trip and overwrite
	require.NoError(t, r.PutSettings(ctx, "owner", []byte(`{"theme":"dark"}`)))
	require.NoError(t, r.PutSettings(ctx, "owner", []byte(`{"theme":"light"}`)))
	raw, err := r.GetSettings(ctx, "owner")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, string(raw))
}

func TestSubscribeFansOutPerOwner(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	book := seedBook(t, r, "owner")

	mine := make(chan struct{}, 16)
	other := make(chan struct{}, 16)

	cancel, err := r.Subscribe("owner", func() { mine <- struct{}{} })
	require.NoError(t, err)
	defer cancel()

	cancelOther, err := r.Subscribe("someone-else", func() { other <- struct{}{} })
	require.NoError(t, err)
	defer cancelOther()

	id, err := r.CreateAccount(ctx, &models.Account{OwnerID: "owner", BookID: book.ID, Name: "A", AccountType: models.AccountTypeAsset})
	require.NoError(t, err)

	select {
	case <-mine:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification for the owner")
	}
	select {
	case <-other:
		t.Fatal("notification leaked to another owner's subscriber")
	case <-time.After(50 * time.Millisecond):
	}

	// After cancel, no further notifications
	cancel()
	require.NoError(t, r.DeleteAccount(ctx, id))
	select {
	case <-mine:
		t.Fatal("notification delivered after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExportStamp(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	book := seedBook(t, r, "owner")
	require.Nil(t, book.LastExported)

	when := time.Now().UTC()
	require.NoError(t, r.TouchBookExported(ctx, book.ID, when))

	got, err := r.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastExported)
	assert.WithinDuration(t, when, *got.LastExported, time.Second)
}
