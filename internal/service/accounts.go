package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rongwang/bookkeeper-server/internal/colors"
	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/navigation"
)

// Account queries
func (s *DefaultService) TopLevelAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return st.Roots(), nil
}

func (s *DefaultService) AllAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return st.All(), nil
}

func (s *DefaultService) FavoriteAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return st.Favorites(), nil
}

func (s *DefaultService) ChildAccounts(ctx context.Context, userID, bookID, accountID string) ([]*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return st.Children(accountID), nil
}

// Account commands
func (s *DefaultService) CreateAccount(ctx context.Context, userID, bookID string, req models.CreateAccountRequest) (*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency(ctx, userID)
	}

	account := &models.Account{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		AccountType: req.AccountType,
		Currency:    currency,
		Color:       req.Color,
		Notes:       req.Notes,
		Placeholder: req.Placeholder,
		Hidden:      req.Hidden,
		Favorite:    req.Favorite,
		Balance:     req.Balance,
	}

	created, err := st.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	s.machineFor(userID).Dispatch(navigation.Saved{AccountID: created.ID})
	return created, nil
}

func (s *DefaultService) UpdateAccount(ctx context.Context, userID, bookID, accountID string, req models.UpdateAccountRequest) (*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	updated, err := st.Update(ctx, accountID, req.Patch())
	if err != nil {
		return nil, err
	}

	s.machineFor(userID).Dispatch(navigation.Saved{AccountID: updated.ID})
	return updated, nil
}

// DeleteAccount removes the account and its whole subtree. The removed ids
// are returned even on partial failure, alongside the error reporting what
// was not removed.
func (s *DefaultService) DeleteAccount(ctx context.Context, userID, bookID, accountID string) ([]string, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	removed, err := st.DeleteRecursive(ctx, accountID)
	if len(removed) > 0 {
		// Mutation outcomes drive navigation too: a view whose subject is
		// gone must retarget.
		s.machineFor(userID).Dispatch(navigation.Deleted{AccountIDs: removed})
	}
	return removed, err
}

func (s *DefaultService) DeleteAllAccounts(ctx context.Context, userID, bookID string) error {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return err
	}

	all := st.All()
	if err := st.DeleteAll(ctx); err != nil {
		return err
	}

	if len(all) > 0 {
		ids := make([]string, len(all))
		for i, account := range all {
			ids[i] = account.ID
		}
		s.machineFor(userID).Dispatch(navigation.Deleted{AccountIDs: ids})
	}
	return nil
}

func (s *DefaultService) ToggleFavorite(ctx context.Context, userID, bookID, accountID string) (*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return st.ToggleFavorite(ctx, accountID)
}

func (s *DefaultService) ReparentAccount(ctx context.Context, userID, bookID, accountID string, req models.ReparentAccountRequest) (*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	newParent := req.NewParentID
	if req.MakeTopLevel {
		newParent = nil
	}
	return st.Reparent(ctx, accountID, newParent)
}

// defaultAccount describes one entry of the starter chart of accounts.
type defaultAccount struct {
	name        string
	accountType models.AccountType
	children    []defaultAccount
}

// defaultChart is the chart seeded by "create default accounts" in the
// account preferences.
var defaultChart = []defaultAccount{
	{name: "Assets", accountType: models.AccountTypeAsset, children: []defaultAccount{
		{name: "Cash in Wallet", accountType: models.AccountTypeCash},
		{name: "Checking Account", accountType: models.AccountTypeBank},
		{name: "Savings Account", accountType: models.AccountTypeBank},
	}},
	{name: "Liabilities", accountType: models.AccountTypeLiability, children: []defaultAccount{
		{name: "Credit Card", accountType: models.AccountTypeCreditCard},
	}},
	{name: "Income", accountType: models.AccountTypeIncome, children: []defaultAccount{
		{name: "Salary", accountType: models.AccountTypeIncome},
		{name: "Other Income", accountType: models.AccountTypeIncome},
	}},
	{name: "Expenses", accountType: models.AccountTypeExpense, children: []defaultAccount{
		{name: "Dining", accountType: models.AccountTypeExpense},
		{name: "Groceries", accountType: models.AccountTypeExpense},
		{name: "Rent", accountType: models.AccountTypeExpense},
		{name: "Transportation", accountType: models.AccountTypeExpense},
		{name: "Utilities", accountType: models.AccountTypeExpense},
	}},
	{name: "Equity", accountType: models.AccountTypeEquity, children: []defaultAccount{
		{name: "Opening Balances", accountType: models.AccountTypeEquity},
	}},
}

// CreateDefaultAccounts seeds the standard chart of accounts: placeholder
// top-level accounts per category with common starter sub-accounts.
func (s *DefaultService) CreateDefaultAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error) {
	st, err := s.storeFor(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	currency := s.defaultCurrency(ctx, userID)

	var created []*models.Account
	for _, top := range defaultChart {
		parent, err := st.Create(ctx, &models.Account{
			Name:        top.name,
			AccountType: top.accountType,
			Color:       colors.DefaultForType(top.accountType),
			Currency:    currency,
			Placeholder: true,
		})
		if err != nil {
			return created, fmt.Errorf("error seeding account %q: %w", top.name, err)
		}
		created = append(created, parent)

		for _, child := range top.children {
			sub, err := st.Create(ctx, &models.Account{
				Name:        child.name,
				AccountType: child.accountType,
				Color:       colors.DefaultForType(child.accountType),
				Currency:    currency,
				ParentID:    &parent.ID,
			})
			if err != nil {
				return created, fmt.Errorf("error seeding account %q: %w", child.name, err)
			}
			created = append(created, sub)
		}
	}
	return created, nil
}

// defaultCurrency reads the creation-default currency out of the otherwise
// opaque settings document. Falls back to INR, the document default.
func (s *DefaultService) defaultCurrency(ctx context.Context, userID string) string {
	raw, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return "INR"
	}
	var doc struct {
		DefaultCurrency string `json:"defaultCurrency"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.DefaultCurrency == "" {
		return "INR"
	}
	return doc.DefaultCurrency
}
