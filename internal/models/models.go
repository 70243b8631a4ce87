package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
	AccountTypeCurrency   AccountType = "CURRENCY"
	AccountTypeEquity     AccountType = "EQUITY"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeLiability  AccountType = "LIABILITY"
	AccountTypeMutualFund AccountType = "MUTUAL_FUND"
	AccountTypePayable    AccountType = "PAYABLE"
	AccountTypeReceivable AccountType = "RECEIVABLE"
)

// AccountTypes lists every recognized account type, in display order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeBank,
	AccountTypeCash,
	AccountTypeCreditCard,
	AccountTypeCurrency,
	AccountTypeEquity,
	AccountTypeExpense,
	AccountTypeIncome,
	AccountTypeLiability,
	AccountTypeMutualFund,
	AccountTypePayable,
	AccountTypeReceivable,
}

// IsValid reports whether t is one of the recognized account types.
func (t AccountType) IsValid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Account represents a node in the account hierarchy. ParentID is nil for a
// top-level account.
type Account struct {
	ID          string          `db:"id" json:"id"`
	OwnerID     string          `db:"owner_id" json:"-"`
	BookID      string          `db:"book_id" json:"bookId"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	ParentID    *string         `db:"parent_id" json:"parentId"`
	AccountType AccountType     `db:"account_type" json:"accountType"`
	Currency    string          `db:"currency" json:"currency"`
	Color       string          `db:"color" json:"color"`
	Notes       string          `db:"notes" json:"notes"`
	Placeholder bool            `db:"placeholder" json:"placeholder"`
	Hidden      bool            `db:"hidden" json:"hidden"`
	Favorite    bool            `db:"favorite" json:"favorite"`
	Balance     decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// AccountPatch carries field-level edits for an account. Nil fields are left
// unchanged. ParentID is doubly indirect so a patch can distinguish "not
// touched" (nil) from "make top-level" (pointer to nil).
type AccountPatch struct {
	Name        *string
	Description *string
	ParentID    **string
	AccountType *AccountType
	Currency    *string
	Color       *string
	Notes       *string
	Placeholder *bool
	Hidden      *bool
	Favorite    *bool
	Balance     *decimal.Decimal
}

// Book is an independent, switchable collection of accounts.
type Book struct {
	ID               string     `db:"id" json:"id"`
	OwnerID          string     `db:"owner_id" json:"-"`
	Name             string     `db:"name" json:"name"`
	AccountCount     int        `db:"account_count" json:"accountCount"`
	TransactionCount int        `db:"transaction_count" json:"transactionCount"`
	LastExported     *time.Time `db:"last_exported" json:"lastExported"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
}

// User represents an authenticated owner of books and accounts.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultSettings is the settings document written for a new user. The engine
// treats settings as an opaque blob; only defaultCurrency is ever read back,
// as a creation default for new accounts.
const DefaultSettings = `{
	"theme": "dark",
	"passcodeEnabled": false,
	"accountColorInReports": false,
	"defaultCurrency": "INR",
	"defaultTransactionType": "Debit",
	"doubleEntryEnabled": true,
	"compactViewEnabled": false,
	"saveAccountOpeningBalances": true,
	"backupOnDelete": true,
	"backupOnImport": true,
	"exportAllTransactions": false,
	"deleteExportedTransactions": false,
	"useXMLOFXHeader": false,
	"defaultExportFormat": "GnuCash XML",
	"defaultExportEmail": ""
}`
