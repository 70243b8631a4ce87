package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateAccountRequest struct {
	Name        string          `json:"name" binding:"required"`
	AccountType AccountType     `json:"accountType" binding:"required"`
	ParentID    *string         `json:"parentId"`
	Color       string          `json:"color"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
	Currency    string          `json:"currency"`
	Placeholder bool            `json:"placeholder"`
	Hidden      bool            `json:"hidden"`
	Favorite    bool            `json:"favorite"`
	Balance     decimal.Decimal `json:"balance"`
}

// UpdateAccountRequest carries a field-level patch. MakeTopLevel clears the
// parent; it takes precedence over ParentID.
type UpdateAccountRequest struct {
	Name         *string          `json:"name"`
	AccountType  *AccountType     `json:"accountType"`
	ParentID     *string          `json:"parentId"`
	MakeTopLevel bool             `json:"makeTopLevel"`
	Color        *string          `json:"color"`
	Description  *string          `json:"description"`
	Notes        *string          `json:"notes"`
	Currency     *string          `json:"currency"`
	Placeholder  *bool            `json:"placeholder"`
	Hidden       *bool            `json:"hidden"`
	Favorite     *bool            `json:"favorite"`
	Balance      *decimal.Decimal `json:"balance"`
}

// Patch converts the request into an engine-level patch.
func (r *UpdateAccountRequest) Patch() *AccountPatch {
	p := &AccountPatch{
		Name:        r.Name,
		Description: r.Description,
		AccountType: r.AccountType,
		Currency:    r.Currency,
		Color:       r.Color,
		Notes:       r.Notes,
		Placeholder: r.Placeholder,
		Hidden:      r.Hidden,
		Favorite:    r.Favorite,
		Balance:     r.Balance,
	}
	if r.MakeTopLevel {
		var top *string
		p.ParentID = &top
	} else if r.ParentID != nil {
		p.ParentID = &r.ParentID
	}
	return p
}

type ReparentAccountRequest struct {
	NewParentID  *string `json:"newParentId"`
	MakeTopLevel bool    `json:"makeTopLevel"`
}

type CreateBookRequest struct {
	Name string `json:"name"`
}

type DispatchRequest struct {
	Action    string `json:"action" binding:"required"`
	AccountID string `json:"accountId"`
	ParentID  string `json:"parentId"`
	Page      string `json:"page"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type AccountResponse struct {
	Status  string   `json:"status"`
	Account *Account `json:"account,omitempty"`
}

type AccountListResponse struct {
	Status   string     `json:"status"`
	Accounts []*Account `json:"accounts"`
}

type DeleteAccountResponse struct {
	Status    string   `json:"status"`
	Removed   []string `json:"removed"`
	Remaining []string `json:"remaining,omitempty"`
}

type BookResponse struct {
	Status string `json:"status"`
	Book   *Book  `json:"book,omitempty"`
}

type BookListResponse struct {
	Status       string  `json:"status"`
	Books        []*Book `json:"books"`
	ActiveBookID string  `json:"activeBookId"`
}

type SettingsResponse struct {
	Status   string          `json:"status"`
	Settings json.RawMessage `json:"settings"`
}

type NavigationResponse struct {
	Status      string          `json:"status"`
	State       json.RawMessage `json:"state"`
	HeaderColor string          `json:"headerColor"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
