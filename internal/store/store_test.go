package store

import (
	"context"
	"testing"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner = "owner-1"
	testBook  = "book-1"
)

func newTestStore(t *testing.T) (*Store, *repository.MemoryRepository) {
	t.Helper()

	repo := repository.NewMemoryRepository()
	s := New(repo, testOwner, testBook)
	require.NoError(t, s.Load(context.Background()))
	return s, repo
}

func mustCreate(t *testing.T, s *Store, name string, accountType models.AccountType, parentID *string) *models.Account {
	t.Helper()

	account, err := s.Create(context.Background(), &models.Account{
		Name:        name,
		AccountType: accountType,
		ParentID:    parentID,
		Currency:    "INR",
	})
	require.NoError(t, err)
	return account
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Empty and whitespace-only names are rejected before persistence
	var vErr *ValidationError
	_, err := s.Create(ctx, &models.Account{Name: "", AccountType: models.AccountTypeBank})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	_, err = s.Create(ctx, &models.Account{Name: "   ", AccountType: models.AccountTypeBank})
	require.ErrorAs(t, err, &vErr)

	// Unknown type rejected
	_, err = s.Create(ctx, &models.Account{Name: "X", AccountType: "GOODWILL"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "accountType", vErr.Field)

	// Unknown parent rejected
	missing := "nope"
	var nfErr *NotFoundError
	_, err = s.Create(ctx, &models.Account{Name: "X", AccountType: models.AccountTypeBank, ParentID: &missing})
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "nope", nfErr.ID)

	assert.Empty(t, s.All())
}

func TestCreateAssignsColorAndScope(t *testing.T) {
	s, _ := newTestStore(t)

	expense := mustCreate(t, s, "Groceries", models.AccountTypeExpense, nil)
	assert.Equal(t, "#F44336", expense.Color)
	assert.Equal(t, testOwner, expense.OwnerID)
	assert.Equal(t, testBook, expense.BookID)
	assert.NotEmpty(t, expense.ID)

	// Explicit color is kept
	account, err := s.Create(context.Background(), &models.Account{
		Name:        "Custom",
		AccountType: models.AccountTypeExpense,
		Color:       "#123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "#123456", account.Color)
}

func TestChildrenRootsFavorites(t *testing.T) {
	s, _ := newTestStore(t)

	assets := mustCreate(t, s, "Assets", models.AccountTypeAsset, nil)
	bank := mustCreate(t, s, "Bank", models.AccountTypeBank, &assets.ID)
	cash := mustCreate(t, s, "Cash", models.AccountTypeCash, &assets.ID)
	income := mustCreate(t, s, "Income", models.AccountTypeIncome, nil)

	roots := s.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, assets.ID, roots[0].ID)
	assert.Equal(t, income.ID, roots[1].ID)

	children := s.Children(assets.ID)
	require.Len(t, children, 2)
	assert.Equal(t, bank.ID, children[0].ID)
	assert.Equal(t, cash.ID, children[1].ID)

	// Children of a leaf or of an unknown id is empty
	assert.Empty(t, s.Children(income.ID))
	assert.Empty(t, s.Children("missing"))

	// Favorites span all depths
	_, err := s.Update(context.Background(), bank.ID, favoritePatch(true))
	require.NoError(t, err)
	favorites := s.Favorites()
	require.Len(t, favorites, 1)
	assert.Equal(t, bank.ID, favorites[0].ID)
}

func favoritePatch(v bool) *models.AccountPatch {
	return &models.AccountPatch{Favorite: &v}
}

func TestUpdateRenameAndRetype(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	account := mustCreate(t, s, "Groceries", models.AccountTypeExpense, nil)

	// A type change without an explicit color re-derives the color
	newType := models.AccountTypeLiability
	updated, err := s.Update(ctx, account.ID, &models.AccountPatch{AccountType: &newType})
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeLiability, updated.AccountType)
	assert.Equal(t, "#9C27B0", updated.Color)

	// A type change with an explicit color keeps it
	backToExpense := models.AccountTypeExpense
	keep := "#111111"
	updated, err = s.Update(ctx, account.ID, &models.AccountPatch{AccountType: &backToExpense, Color: &keep})
	require.NoError(t, err)
	assert.Equal(t, "#111111", updated.Color)

	// Unknown id
	var nfErr *NotFoundError
	name := "Renamed"
	_, err = s.Update(ctx, "missing", &models.AccountPatch{Name: &name})
	require.ErrorAs(t, err, &nfErr)
}

func TestReparentCycleMatrix(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// a <- b <- c <- d
	a := mustCreate(t, s, "A", models.AccountTypeAsset, nil)
	b := mustCreate(t, s, "B", models.AccountTypeAsset, &a.ID)
	c := mustCreate(t, s, "C", models.AccountTypeAsset, &b.ID)
	d := mustCreate(t, s, "D", models.AccountTypeAsset, &c.ID)

	var cycleErr *CycleError

	// Self-parenting
	_, err := s.Reparent(ctx, a.ID, &a.ID)
	require.ErrorAs(t, err, &cycleErr)

	// Parent under each of its descendants
	for _, descendant := range []string{b.ID, c.ID, d.ID} {
		_, err = s.Reparent(ctx, a.ID, &descendant)
		require.ErrorAs(t, err, &cycleErr, "a under %s must be a cycle", descendant)
	}
	_, err = s.Reparent(ctx, b.ID, &d.ID)
	require.ErrorAs(t, err, &cycleErr)

	// The tree is unchanged after rejected moves
	got := s.Get(a.ID)
	assert.Nil(t, got.ParentID)

	// Sibling and ancestor moves are legal
	moved, err := s.Reparent(ctx, d.ID, &a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentID)

	// To top level
	moved, err = s.Reparent(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
	assert.Len(t, s.Roots(), 2)

	// Unknown new parent
	missing := "missing"
	var nfErr *NotFoundError
	_, err = s.Reparent(ctx, b.ID, &missing)
	require.ErrorAs(t, err, &nfErr)
}

func TestToggleFavorite(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	account := mustCreate(t, s, "Wallet", models.AccountTypeCash, nil)

	toggled, err := s.ToggleFavorite(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Favorite)

	toggled, err = s.ToggleFavorite(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Favorite)

	var nfErr *NotFoundError
	_, err = s.ToggleFavorite(ctx, "missing")
	require.ErrorAs(t, err, &nfErr)
}

func TestTopLevelColor(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	root, err := s.Create(ctx, &models.Account{
		Name:        "Assets",
		AccountType: models.AccountTypeAsset,
		Color:       "#00FF00",
	})
	require.NoError(t, err)
	child := mustCreate(t, s, "Bank", models.AccountTypeBank, &root.ID)
	grandchild := mustCreate(t, s, "Checking", models.AccountTypeBank, &child.ID)

	assert.Equal(t, "#00FF00", s.TopLevelColor(root.ID))
	assert.Equal(t, "#00FF00", s.TopLevelColor(grandchild.ID))
	assert.Equal(t, "#2196F3", s.TopLevelColor("missing"))
}

func TestLoadRebuildsFromRepository(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	assets := mustCreate(t, s, "Assets", models.AccountTypeAsset, nil)
	mustCreate(t, s, "Bank", models.AccountTypeBank, &assets.ID)

	// A second store over the same repository sees the same tree
	other := New(repo, testOwner, testBook)
	require.NoError(t, other.Load(ctx))
	assert.Len(t, other.All(), 2)
	assert.Len(t, other.Children(assets.ID), 1)

	// A store for a different book sees nothing
	foreign := New(repo, testOwner, "book-2")
	require.NoError(t, foreign.Load(ctx))
	assert.Empty(t, foreign.All())
}

func TestWatchFiresAfterMutations(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var fired int
	s.Watch(func() { fired++ })

	account := mustCreate(t, s, "Assets", models.AccountTypeAsset, nil)
	require.Equal(t, 1, fired)

	_, err := s.ToggleFavorite(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, 2, fired)

	// Failed mutations do not notify
	_, err = s.ToggleFavorite(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, 2, fired)
}
